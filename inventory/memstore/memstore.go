// Package memstore is an in-memory inventory.Store. A single mutex gives it
// the same per-product serialization the Postgres store gets from row locks,
// which makes it suitable for engine and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"Gin_postgres_redis_gear_inventory/inventory"
	"Gin_postgres_redis_gear_inventory/models"
	"Gin_postgres_redis_gear_inventory/txnumber"
)

type Store struct {
	mu       sync.Mutex
	products map[uint64]*models.Product
	users    map[string]*models.User
	txs      map[string]*models.BorrowTransaction // by ID
	byNumber map[string]*models.BorrowTransaction
	seqs     map[string]int // day key -> last issued seq
	nextPID  uint64
}

func New() *Store {
	return &Store{
		products: make(map[uint64]*models.Product),
		users:    make(map[string]*models.User),
		txs:      make(map[string]*models.BorrowTransaction),
		byNumber: make(map[string]*models.BorrowTransaction),
		seqs:     make(map[string]int),
	}
}

// AddProduct seeds a product. A zero ID gets the next free one.
func (s *Store) AddProduct(p models.Product) *models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextPID++
		p.ID = s.nextPID
	} else if p.ID > s.nextPID {
		s.nextPID = p.ID
	}
	if p.Status == "" {
		p.Status = models.StatusAvailable
	}
	cp := p
	s.products[p.ID] = &cp
	return &cp
}

// AddUser seeds a user. A zero ID gets a fresh uuid.
func (s *Store) AddUser(u models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleMember
	}
	cp := u
	s.users[u.ID] = &cp
	return &cp
}

func (s *Store) GetProduct(_ context.Context, id uint64) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) CreateBorrows(_ context.Context, now time.Time, specs []inventory.BorrowSpec) ([]models.BorrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same ascending product-id order the Postgres store locks in.
	sort.Slice(specs, func(i, j int) bool { return specs[i].ProductID < specs[j].ProductID })

	// Check every member before mutating anything: all-or-nothing.
	for _, spec := range specs {
		p, ok := s.products[spec.ProductID]
		if !ok {
			return nil, &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotFound}
		}
		if p.Status != models.StatusAvailable {
			return nil, &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotBorrowable}
		}
	}
	// Duplicate ids inside one group would pass the check above but borrow
	// the same product twice; the second member loses.
	seen := make(map[uint64]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.ProductID] {
			return nil, &inventory.GroupMemberError{ProductID: spec.ProductID, Err: inventory.ErrNotBorrowable}
		}
		seen[spec.ProductID] = true
	}

	day := txnumber.DayKey(now)
	out := make([]models.BorrowTransaction, 0, len(specs))
	for _, spec := range specs {
		s.seqs[day]++
		tx := models.BorrowTransaction{
			ID:            uuid.NewString(),
			Number:        txnumber.Format(now, s.seqs[day]),
			BorrowGroupID: spec.GroupID,
			ProductID:     spec.ProductID,
			BorrowerID:    spec.BorrowerID,
			BorrowedAt:    now.UTC(),
			DueDate:       spec.DueDate,
			Note:          spec.Note,
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		}
		cp := tx
		s.txs[tx.ID] = &cp
		s.byNumber[tx.Number] = &cp
		s.products[spec.ProductID].Status = models.StatusBorrowed
		out = append(out, tx)
	}
	return out, nil
}

func (s *Store) ReturnByNumber(_ context.Context, number, returnedBy string, now time.Time) (*models.BorrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.byNumber[number]
	if !ok || tx.ReturnedAt != nil {
		return nil, inventory.ErrNotFound
	}
	return s.close(tx, returnedBy, now), nil
}

func (s *Store) ReturnByProduct(_ context.Context, productID uint64, returnedBy string, now time.Time) (*models.BorrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open *models.BorrowTransaction
	for _, tx := range s.txs {
		if tx.ProductID == productID && tx.ReturnedAt == nil {
			if open != nil {
				return nil, inventory.ErrAmbiguousOrNotFound
			}
			open = tx
		}
	}
	if open == nil {
		return nil, inventory.ErrAmbiguousOrNotFound
	}
	return s.close(open, returnedBy, now), nil
}

// close mutates under the caller's lock and returns a copy.
func (s *Store) close(tx *models.BorrowTransaction, returnedBy string, now time.Time) *models.BorrowTransaction {
	t := now.UTC()
	tx.ReturnedAt = &t
	tx.ReturnedBy = &returnedBy
	tx.UpdatedAt = t
	// Flip only borrowed -> available; an administrative "missing" sticks.
	if p, ok := s.products[tx.ProductID]; ok && p.Status == models.StatusBorrowed {
		p.Status = models.StatusAvailable
	}
	cp := *tx
	return &cp
}

func (s *Store) GetByNumber(_ context.Context, number string) (*models.BorrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.byNumber[number]
	if !ok {
		return nil, inventory.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) OpenByProduct(_ context.Context, productID uint64) (*models.BorrowTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.txs {
		if tx.ProductID == productID && tx.ReturnedAt == nil {
			cp := *tx
			return &cp, nil
		}
	}
	return nil, inventory.ErrNotFound
}

// SetStatus flips a product's status directly, standing in for the admin
// override path in tests.
func (s *Store) SetStatus(id uint64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.Status = status
	}
}

// OpenCount reports the number of open transactions for a product.
func (s *Store) OpenCount(id uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openCount(id)
}

// openCount runs under the caller's lock.
func (s *Store) openCount(id uint64) int {
	n := 0
	for _, tx := range s.txs {
		if tx.ProductID == id && tx.ReturnedAt == nil {
			n++
		}
	}
	return n
}

// Registry admin operations, matching the Postgres store's semantics.

func (s *Store) DeleteProduct(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[id]; !ok {
		return inventory.ErrNotFound
	}
	if s.openCount(id) > 0 {
		return inventory.ErrHasOpenTransaction
	}
	delete(s.products, id)
	return nil
}

func (s *Store) MarkMissing(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return inventory.ErrNotFound
	}
	p.Status = models.StatusMissing
	return nil
}

func (s *Store) MarkAvailable(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return inventory.ErrNotFound
	}
	p.Status = models.StatusFromOpen(int64(s.openCount(id)))
	return nil
}
