package inventory

import (
	"errors"
	"fmt"
)

// Every borrow/return outcome maps to one of these; controllers translate
// them to HTTP statuses. None of them is fatal to the process.
var (
	ErrNotFound            = errors.New("not found")
	ErrNotBorrowable       = errors.New("product is not borrowable")
	ErrForbidden           = errors.New("forbidden")
	ErrAmbiguousOrNotFound = errors.New("no open transaction matches")
	ErrSequenceExhausted   = errors.New("transaction number sequence exhausted")
	ErrHasOpenTransaction  = errors.New("product has an open borrow transaction")
)

// ValidationError reports malformed or missing caller input with a field
// the caller can point at.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// GroupMemberError identifies which member of a grouped borrow failed, so
// the whole-group rollback can still surface a precise message.
type GroupMemberError struct {
	ProductID uint64
	Err       error
}

func (e *GroupMemberError) Error() string {
	return fmt.Sprintf("product %d: %v", e.ProductID, e.Err)
}

func (e *GroupMemberError) Unwrap() error { return e.Err }
