package models

import (
	"time"

	"Gin_postgres_redis_gear_inventory/qrcode"
)

const (
	ProductTable     = "gear_products"
	TransactionTable = "gear_borrow_transactions"
	SequenceTable    = "gear_day_sequences"
)

// Product status values. "missing" is an administrative override: it is set
// and cleared by hand and blocks new borrows regardless of transaction state.
const (
	StatusAvailable = "available"
	StatusBorrowed  = "borrowed"
	StatusMissing   = "missing"
)

// StatusFromOpen recomputes a product's status from its open-transaction
// count, used when the missing override is cleared: a product that is still
// out goes back to borrowed, never straight to available.
func StatusFromOpen(open int64) string {
	if open > 0 {
		return StatusBorrowed
	}
	return StatusAvailable
}

type Product struct {
	ID        uint64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string   `gorm:"size:200;not null" json:"name"`
	Category  string   `gorm:"size:100;index" json:"category,omitempty"`
	Serial    string   `gorm:"size:120" json:"serial,omitempty"` // not unique: vendors reuse serials
	Condition string   `gorm:"size:100" json:"condition,omitempty"`
	Location  string   `gorm:"size:200" json:"location,omitempty"`
	Status    string   `gorm:"size:20;not null;default:'available';index" json:"status"`
	LengthM   *float64 `json:"lengthM,omitempty"` // cable-type items
	Folder    string   `gorm:"size:255;index" json:"folder,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Product) TableName() string { return ProductTable }

// QRPayload is derived from the ID, never stored.
func (p *Product) QRPayload() string { return qrcode.EncodeProduct(p.ID) }

// DaySequence holds the per-day counter behind transaction numbers. NextSeq
// is read and bumped under a row lock inside the borrow transaction.
type DaySequence struct {
	Day     string `gorm:"size:8;primaryKey"`
	NextSeq int    `gorm:"not null;default:1"`
}

func (DaySequence) TableName() string { return SequenceTable }
