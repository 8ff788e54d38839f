package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/models"
)

func (r *Repo) CreateProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Create(p).Error
}

func (r *Repo) SaveProduct(ctx context.Context, p *models.Product) error {
	return r.DB.WithContext(ctx).Save(p).Error
}

// DeleteProduct refuses to delete a product with an open transaction so the
// audit trail never dangles.
func (r *Repo) DeleteProduct(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return inventory.ErrNotFound
			}
			return err
		}
		var open int64
		if err := tx.Model(&models.BorrowTransaction{}).
			Where("product_id = ? AND returned_at IS NULL", id).
			Count(&open).Error; err != nil {
			return err
		}
		if open > 0 {
			return inventory.ErrHasOpenTransaction
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
}

// MarkMissing is the administrative override. It is allowed even while the
// product is out; the open transaction stays open.
func (r *Repo) MarkMissing(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("status", models.StatusMissing)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

// MarkAvailable clears the missing override. If an open transaction still
// references the product, the status goes back to borrowed, not available,
// so it keeps mirroring the open-transaction invariant.
func (r *Repo) MarkAvailable(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return inventory.ErrNotFound
			}
			return err
		}
		var open int64
		if err := tx.Model(&models.BorrowTransaction{}).
			Where("product_id = ? AND returned_at IS NULL", id).
			Count(&open).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).
			Where("id = ?", id).
			Update("status", models.StatusFromOpen(open)).Error
	})
}

// Admin listing: each product joined with its current open transaction.

type ProductRow struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Serial    string    `json:"serial,omitempty"`
	Condition string    `json:"condition,omitempty"`
	Location  string    `json:"location,omitempty"`
	Status    string    `json:"status"`
	LengthM   *float64  `json:"lengthM,omitempty"`
	Folder    string    `json:"folder,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Current open transaction (nullable)
	TransactionID       *string    `json:"transactionId,omitempty"`
	Number              *string    `json:"number,omitempty"`
	BorrowerID          *string    `json:"borrowerId,omitempty"`
	BorrowerUsername    *string    `json:"borrowerUsername,omitempty"`
	BorrowerDisplayName *string    `json:"borrowerDisplayName,omitempty"`
	BorrowedAt          *time.Time `json:"borrowedAt,omitempty"`
	DueDate             *time.Time `json:"dueDate,omitempty"`
	Overdue             bool       `json:"overdue"`
}

type ProductsQuery struct {
	Q        string // matches name/serial
	Status   string // "", "available", "borrowed", "missing", "overdue"
	Category string
	Folder   string
	Page     int
	Size     int
}

type PagedProducts struct {
	Total int64        `json:"total"`
	Items []ProductRow `json:"items"`
}

func (r *Repo) productFilter(ctx context.Context, q ProductsQuery) *gorm.DB {
	// The partial unique index guarantees at most one open transaction per
	// product, so the LEFT JOIN never multiplies rows.
	qry := r.DB.WithContext(ctx).
		Table(models.ProductTable + " p").
		Joins("LEFT JOIN " + models.TransactionTable + " ot ON ot.product_id = p.id AND ot.returned_at IS NULL").
		Joins("LEFT JOIN " + models.UserTable + " u ON u.id = ot.borrower_id")

	if s := strings.TrimSpace(q.Q); s != "" {
		pat := "%" + strings.ToLower(s) + "%"
		qry = qry.Where("LOWER(p.name) LIKE ? OR LOWER(p.serial) LIKE ?", pat, pat)
	}
	if q.Category != "" {
		qry = qry.Where("p.category = ?", q.Category)
	}
	if q.Folder != "" {
		qry = qry.Where("p.folder = ?", q.Folder)
	}
	switch q.Status {
	case "overdue":
		qry = qry.Where("ot.due_date IS NOT NULL AND ot.due_date < CURRENT_DATE")
	case models.StatusAvailable, models.StatusBorrowed, models.StatusMissing:
		qry = qry.Where("p.status = ?", q.Status)
	}
	return qry
}

func (r *Repo) ListProducts(ctx context.Context, q ProductsQuery) (*PagedProducts, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}

	var total int64
	if err := r.productFilter(ctx, q).Count(&total).Error; err != nil {
		return nil, err
	}

	var rows []ProductRow
	if err := r.productFilter(ctx, q).
		Select(`
			p.id, p.name, p.category, p.serial, p.condition, p.location,
			p.status, p.length_m, p.folder, p.created_at, p.updated_at,
			ot.id     AS transaction_id,
			ot.number AS number,
			ot.borrower_id,
			ot.borrowed_at,
			ot.due_date,
			u.username     AS borrower_username,
			u.display_name AS borrower_display_name,
			CASE WHEN ot.due_date IS NOT NULL AND ot.due_date < CURRENT_DATE THEN TRUE ELSE FALSE END AS overdue
		`).
		Order("p.created_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedProducts{Total: total, Items: rows}, nil
}
