// Package inventory implements the borrow/return engine: request validation,
// permission checks, grouped borrows and QR-based return resolution, on top
// of a Store that owns atomicity.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_gear_inventory/models"
	"Gin_postgres_redis_gear_inventory/qrcode"
)

// Actor is the acting principal as handed over by the auth middleware.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }
func (a Actor) IsGuest() bool { return a.Role == models.RoleGuest }

type BorrowRequest struct {
	ProductID  uint64 `json:"productId" binding:"required"`
	BorrowerID string `json:"borrowerId"` // defaults to the actor
	DueDate    string `json:"dueDate" binding:"required"`
	Note       string `json:"note"`
}

type GroupBorrowRequest struct {
	ProductIDs []uint64 `json:"productIds" binding:"required"`
	BorrowerID string   `json:"borrowerId"`
	DueDate    string   `json:"dueDate" binding:"required"`
	Note       string   `json:"note"`
}

type GroupBorrowResult struct {
	BorrowGroupID string                     `json:"borrowGroupId"`
	Transactions  []models.BorrowTransaction `json:"transactions"`
}

// ReturnRequest carries exactly one of QRCode or TransactionNumber.
type ReturnRequest struct {
	QRCode            string `json:"qrCode"`
	TransactionNumber string `json:"transactionNumber"`
}

type ScanResult struct {
	Kind        qrcode.Kind               `json:"kind"`
	Product     *models.Product           `json:"product,omitempty"`
	Transaction *models.BorrowTransaction `json:"transaction,omitempty"`
}

type Engine struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

// NewWithClock pins the clock, for tests.
func NewWithClock(store Store, now func() time.Time) *Engine {
	return &Engine{store: store, now: now}
}

// Borrow checks out a single product to the borrower.
func (e *Engine) Borrow(ctx context.Context, actor Actor, req BorrowRequest) (*models.BorrowTransaction, error) {
	spec, err := e.borrowSpec(ctx, actor, req.ProductID, req.BorrowerID, req.DueDate, req.Note, nil)
	if err != nil {
		return nil, err
	}
	txs, err := e.store.CreateBorrows(ctx, e.now(), []BorrowSpec{*spec})
	if err != nil {
		// A single borrow has no group to blame; unwrap the member error.
		var me *GroupMemberError
		if errors.As(err, &me) {
			return nil, me.Err
		}
		return nil, err
	}
	return &txs[0], nil
}

// BorrowGroup checks out several products at once under a freshly generated
// group id. It is all-or-nothing: if any member fails its check, no product
// changes state and the error names the failing member.
func (e *Engine) BorrowGroup(ctx context.Context, actor Actor, req GroupBorrowRequest) (*GroupBorrowResult, error) {
	if len(req.ProductIDs) == 0 {
		return nil, &ValidationError{Field: "productIds", Message: "must not be empty"}
	}
	gid := uuid.NewString()
	specs := make([]BorrowSpec, 0, len(req.ProductIDs))
	for _, pid := range req.ProductIDs {
		spec, err := e.borrowSpec(ctx, actor, pid, req.BorrowerID, req.DueDate, req.Note, &gid)
		if err != nil {
			return nil, err
		}
		specs = append(specs, *spec)
	}
	txs, err := e.store.CreateBorrows(ctx, e.now(), specs)
	if err != nil {
		return nil, err
	}
	return &GroupBorrowResult{BorrowGroupID: gid, Transactions: txs}, nil
}

func (e *Engine) borrowSpec(ctx context.Context, actor Actor, productID uint64, borrowerID, dueDate, note string, groupID *string) (*BorrowSpec, error) {
	if actor.IsGuest() {
		return nil, ErrForbidden
	}
	if productID == 0 {
		return nil, &ValidationError{Field: "productId", Message: "is required"}
	}
	borrower := borrowerID
	if borrower == "" {
		borrower = actor.UserID
	}
	if borrower != actor.UserID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	due, err := e.parseDueDate(dueDate)
	if err != nil {
		return nil, err
	}
	if _, err := e.store.GetUser(ctx, borrower); err != nil {
		return nil, err
	}
	return &BorrowSpec{
		ProductID:  productID,
		BorrowerID: borrower,
		DueDate:    due,
		GroupID:    groupID,
		Note:       note,
	}, nil
}

func (e *Engine) parseDueDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, &ValidationError{Field: "dueDate", Message: "is required"}
	}
	due, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "dueDate", Message: "must be a YYYY-MM-DD date"}
	}
	today := e.now().UTC().Truncate(24 * time.Hour)
	if due.Before(today) {
		return time.Time{}, &ValidationError{Field: "dueDate", Message: "must not be in the past"}
	}
	return due, nil
}

// Return closes an open transaction identified either by a scanned QR
// payload or a typed transaction number, and frees the product.
func (e *Engine) Return(ctx context.Context, actor Actor, req ReturnRequest) (*models.BorrowTransaction, error) {
	if actor.IsGuest() {
		return nil, ErrForbidden
	}
	if (req.QRCode == "") == (req.TransactionNumber == "") {
		return nil, &ValidationError{Field: "qrCode", Message: "supply exactly one of qrCode or transactionNumber"}
	}
	now := e.now()
	if req.TransactionNumber != "" {
		return e.store.ReturnByNumber(ctx, req.TransactionNumber, actor.UserID, now)
	}
	p, err := qrcode.Decode(req.QRCode)
	if err != nil {
		return nil, err
	}
	switch p.Kind {
	case qrcode.KindBorrow:
		return e.store.ReturnByNumber(ctx, p.Number, actor.UserID, now)
	default:
		return e.store.ReturnByProduct(ctx, p.ProductID, actor.UserID, now)
	}
}

// Scan resolves an arbitrary QR payload to a product or a transaction
// summary for the scanner screens and the mobile client.
func (e *Engine) Scan(ctx context.Context, payload string) (*ScanResult, error) {
	p, err := qrcode.Decode(payload)
	if err != nil {
		return nil, err
	}
	switch p.Kind {
	case qrcode.KindProduct:
		prod, err := e.store.GetProduct(ctx, p.ProductID)
		if err != nil {
			return nil, err
		}
		res := &ScanResult{Kind: qrcode.KindProduct, Product: prod}
		if tx, err := e.store.OpenByProduct(ctx, p.ProductID); err == nil {
			res.Transaction = tx
		} else if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return res, nil
	default:
		tx, err := e.store.GetByNumber(ctx, p.Number)
		if err != nil {
			return nil, err
		}
		res := &ScanResult{Kind: qrcode.KindBorrow, Transaction: tx}
		if prod, err := e.store.GetProduct(ctx, tx.ProductID); err == nil {
			res.Product = prod
		}
		return res, nil
	}
}
