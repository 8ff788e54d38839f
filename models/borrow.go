package models

import (
	"time"

	"Gin_postgres_redis_gear_inventory/qrcode"
)

// BorrowTransaction is the audit row for one borrowed product. It is created
// on borrow, mutated exactly once on return, and never deleted.
type BorrowTransaction struct {
	ID            string  `gorm:"type:uuid;primaryKey" json:"id"`
	Number        string  `gorm:"size:40;uniqueIndex;not null" json:"number"`
	BorrowGroupID *string `gorm:"type:uuid;index" json:"borrowGroupId,omitempty"`

	ProductID  uint64 `gorm:"index;not null" json:"productId"`
	BorrowerID string `gorm:"type:uuid;index;not null" json:"borrowerId"`

	BorrowedAt time.Time  `gorm:"index;not null" json:"borrowedAt"`
	DueDate    time.Time  `gorm:"type:date;not null" json:"dueDate"`
	ReturnedAt *time.Time `gorm:"index" json:"returnedAt,omitempty"`
	ReturnedBy *string    `gorm:"type:uuid" json:"returnedBy,omitempty"`

	Note string `gorm:"size:255" json:"note,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (BorrowTransaction) TableName() string { return TransactionTable }

func (t *BorrowTransaction) Open() bool { return t.ReturnedAt == nil }

// Overdue reports whether the transaction is open and its due date lies
// strictly before the current calendar day (UTC).
func (t *BorrowTransaction) Overdue(now time.Time) bool {
	if !t.Open() {
		return false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	return t.DueDate.Before(today)
}

// QRPayload is the borrow-slip label, derived from the number.
func (t *BorrowTransaction) QRPayload() string { return qrcode.EncodeBorrow(t.Number) }
