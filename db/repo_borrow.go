package db

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/models"
)

// Repo implements inventory.Store on Postgres. Every mutation runs inside
// one gorm transaction with a row lock on the product, so a lost race
// surfaces as NotBorrowable instead of a double borrow.

func (r *Repo) GetProduct(ctx context.Context, id uint64) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := r.FindUserByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, inventory.ErrNotFound
	}
	return u, err
}

func (r *Repo) CreateBorrows(ctx context.Context, now time.Time, specs []inventory.BorrowSpec) ([]models.BorrowTransaction, error) {
	// Row locks are taken in ascending product-id order; two overlapping
	// groups arriving in different orders must not deadlock each other.
	sort.Slice(specs, func(i, j int) bool { return specs[i].ProductID < specs[j].ProductID })

	var out []models.BorrowTransaction
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, spec := range specs {
			var p models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&p, "id = ?", spec.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotFound}
				}
				return err
			}
			if p.Status != models.StatusAvailable {
				return &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotBorrowable}
			}

			// Conditional write: whoever changed the row since our read
			// wins, we surface the loss instead of double-borrowing.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND status = ?", spec.ProductID, models.StatusAvailable).
				Update("status", models.StatusBorrowed)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotBorrowable}
			}

			number, err := nextNumber(tx, now)
			if err != nil {
				return err
			}
			rec := models.BorrowTransaction{
				ID:            uuid.NewString(),
				Number:        number,
				BorrowGroupID: spec.GroupID,
				ProductID:     spec.ProductID,
				BorrowerID:    spec.BorrowerID,
				BorrowedAt:    now.UTC(),
				DueDate:       spec.DueDate,
				Note:          spec.Note,
			}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) ReturnByNumber(ctx context.Context, number, returnedBy string, now time.Time) (*models.BorrowTransaction, error) {
	var rec models.BorrowTransaction
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "number = ? AND returned_at IS NULL", number).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return inventory.ErrNotFound
			}
			return err
		}
		return closeTransaction(tx, &rec, returnedBy, now)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) ReturnByProduct(ctx context.Context, productID uint64, returnedBy string, now time.Time) (*models.BorrowTransaction, error) {
	var rec models.BorrowTransaction
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the product first so a concurrent borrow cannot open a new
		// transaction while we pick the one to close.
		var p models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "id = ?", productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return inventory.ErrAmbiguousOrNotFound
			}
			return err
		}

		var open []models.BorrowTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_id = ? AND returned_at IS NULL", productID).
			Find(&open).Error; err != nil {
			return err
		}
		// The partial unique index makes len > 1 impossible; stay defensive.
		if len(open) != 1 {
			return inventory.ErrAmbiguousOrNotFound
		}
		rec = open[0]
		return closeTransaction(tx, &rec, returnedBy, now)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func closeTransaction(tx *gorm.DB, rec *models.BorrowTransaction, returnedBy string, now time.Time) error {
	t := now.UTC()
	res := tx.Model(&models.BorrowTransaction{}).
		Where("id = ? AND returned_at IS NULL", rec.ID).
		Updates(map[string]any{
			"returned_at": t,
			"returned_by": returnedBy,
			"updated_at":  t,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return inventory.ErrNotFound
	}
	rec.ReturnedAt = &t
	rec.ReturnedBy = &returnedBy

	// borrowed -> available only; an administrative "missing" set while the
	// product was out must survive the return.
	return tx.Model(&models.Product{}).
		Where("id = ? AND status = ?", rec.ProductID, models.StatusBorrowed).
		Update("status", models.StatusAvailable).Error
}

func (r *Repo) GetByNumber(ctx context.Context, number string) (*models.BorrowTransaction, error) {
	var rec models.BorrowTransaction
	if err := r.DB.WithContext(ctx).First(&rec, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) OpenByProduct(ctx context.Context, productID uint64) (*models.BorrowTransaction, error) {
	var rec models.BorrowTransaction
	if err := r.DB.WithContext(ctx).
		First(&rec, "product_id = ? AND returned_at IS NULL", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// Listing

type TransactionsQuery struct {
	Status     string // "", "open", "returned", "overdue"
	BorrowerID string
	ProductID  uint64
	GroupID    string
	Page       int
	Size       int
}

type PagedTransactions struct {
	Total int64                      `json:"total"`
	Items []models.BorrowTransaction `json:"items"`
}

func (r *Repo) ListTransactions(ctx context.Context, q TransactionsQuery) (*PagedTransactions, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}

	base := func() *gorm.DB {
		tx := r.DB.WithContext(ctx).Model(&models.BorrowTransaction{})
		switch q.Status {
		case "open":
			tx = tx.Where("returned_at IS NULL")
		case "returned":
			tx = tx.Where("returned_at IS NOT NULL")
		case "overdue":
			tx = tx.Where("returned_at IS NULL AND due_date < CURRENT_DATE")
		}
		if q.BorrowerID != "" {
			tx = tx.Where("borrower_id = ?", q.BorrowerID)
		}
		if q.ProductID != 0 {
			tx = tx.Where("product_id = ?", q.ProductID)
		}
		if q.GroupID != "" {
			tx = tx.Where("borrow_group_id = ?", q.GroupID)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.BorrowTransaction
	if err := base().
		Order("borrowed_at DESC").
		Offset((q.Page - 1) * q.Size).
		Limit(q.Size).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &PagedTransactions{Total: total, Items: items}, nil
}

// GroupTransactions returns every transaction stamped with the group id, for
// the grouped return/report views.
func (r *Repo) GroupTransactions(ctx context.Context, groupID string) ([]models.BorrowTransaction, error) {
	var items []models.BorrowTransaction
	err := r.DB.WithContext(ctx).
		Where("borrow_group_id = ?", groupID).
		Order("borrowed_at ASC").
		Find(&items).Error
	return items, err
}

func (r *Repo) CountOpenByBorrower(ctx context.Context, borrowerID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.BorrowTransaction{}).
		Where("borrower_id = ? AND returned_at IS NULL", borrowerID).
		Count(&n).Error
	return n, err
}
