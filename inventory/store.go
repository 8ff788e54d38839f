package inventory

import (
	"context"
	"time"

	"Gin_postgres_redis_gear_inventory/models"
)

// BorrowSpec is one product's share of a borrow operation, fully validated
// by the engine before it reaches the store.
type BorrowSpec struct {
	ProductID  uint64
	BorrowerID string
	DueDate    time.Time
	GroupID    *string
	Note       string
}

// Store is the persistence contract the engine runs on. Implementations must
// make each call an atomic unit of work: CreateBorrows either creates every
// transaction and flips every product to borrowed, or does nothing, and the
// availability check must be serialized per product (row lock or conditional
// update) so two concurrent borrows cannot both succeed.
//
// The production implementation is db.Repo on Postgres; tests use memstore.
type Store interface {
	GetProduct(ctx context.Context, id uint64) (*models.Product, error)
	GetUser(ctx context.Context, id string) (*models.User, error)

	// CreateBorrows assigns transaction numbers from the per-day sequence
	// and creates one transaction per spec, processing members in ascending
	// product-id order so per-product locks are taken in one global order.
	// Per-member failures surface as *GroupMemberError wrapping ErrNotFound
	// or ErrNotBorrowable.
	CreateBorrows(ctx context.Context, now time.Time, specs []BorrowSpec) ([]models.BorrowTransaction, error)

	// ReturnByNumber closes the open transaction with the given number.
	// Unknown or already-closed numbers fail with ErrNotFound.
	ReturnByNumber(ctx context.Context, number, returnedBy string, now time.Time) (*models.BorrowTransaction, error)

	// ReturnByProduct closes the single open transaction for the product.
	// Zero (or, defensively, more than one) open transactions fail with
	// ErrAmbiguousOrNotFound.
	ReturnByProduct(ctx context.Context, productID uint64, returnedBy string, now time.Time) (*models.BorrowTransaction, error)

	// GetByNumber looks a transaction up regardless of its open state.
	GetByNumber(ctx context.Context, number string) (*models.BorrowTransaction, error)

	// OpenByProduct returns the product's open transaction, ErrNotFound if none.
	OpenByProduct(ctx context.Context, productID uint64) (*models.BorrowTransaction, error)
}
