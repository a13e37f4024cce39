package store

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]*model.User
	ledger []model.Transaction

	// FailpointApply, when set, is invoked inside Apply between the
	// ledger append and the cash update. A returned error rolls the
	// append back and aborts the operation. Test hook for atomicity.
	FailpointApply func() error
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) {
			return ErrUsernameTaken
		}
	}

	// Store a copy to avoid external mutation.
	copy := *u
	s.users[u.ID] = &copy
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *u
	return &copy, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, ErrNotFound
}

// Apply appends the entry and adjusts cash under one lock, mirroring the
// single-transaction discipline of the PostgreSQL store.
func (s *MemoryStore) Apply(_ context.Context, entry *model.Transaction, cashDelta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[entry.UserID]
	if !ok {
		return ErrNotFound
	}

	newCash := u.Cash.Add(cashDelta)
	if newCash.IsNegative() {
		return ErrInsufficientCash
	}

	s.ledger = append(s.ledger, *entry)

	if s.FailpointApply != nil {
		if err := s.FailpointApply(); err != nil {
			s.ledger = s.ledger[:len(s.ledger)-1]
			return err
		}
	}

	u.Cash = newCash
	return nil
}

func (s *MemoryStore) Transactions(_ context.Context, userID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Transaction
	for _, t := range s.ledger {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}
