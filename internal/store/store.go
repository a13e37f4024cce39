// Package store defines the persistence interface for the ledger engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

var (
	// ErrNotFound is returned when a user does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrUsernameTaken is returned by CreateUser on a duplicate username.
	ErrUsernameTaken = errors.New("store: username already taken")

	// ErrInsufficientCash is returned by Apply when the cash delta would
	// drive the user's balance negative. Nothing is written.
	ErrInsufficientCash = errors.New("store: insufficient cash")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// Apply is the engine's single atomic unit: one ledger append plus one
// cash adjustment, both committed or neither. The cash floor (balance
// never negative) is enforced inside the same unit.
type Store interface {
	// --- Users ---

	// CreateUser persists a new user with their starting cash.
	CreateUser(ctx context.Context, u *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*model.User, error)

	// GetUserByUsername retrieves a user by their unique username.
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)

	// --- Immutable ledger ---

	// Apply atomically appends a ledger row and adjusts the owning user's
	// cash by cashDelta. Fails with ErrInsufficientCash (writing nothing)
	// if the resulting balance would be negative.
	Apply(ctx context.Context, entry *model.Transaction, cashDelta decimal.Decimal) error

	// Transactions returns a user's full ledger in append order.
	Transactions(ctx context.Context, userID string) ([]model.Transaction, error)
}
