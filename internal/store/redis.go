package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the affected user's
// keys; reads check Redis first then fall back to the primary. Because a
// user's positions derive from their ledger, invalidating the ledger key
// on every Apply keeps aggregation fresh across writes.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Writes (write to primary, invalidate cache) ---

func (s *CachedStore) CreateUser(ctx context.Context, u *model.User) error {
	if err := s.primary.CreateUser(ctx, u); err != nil {
		return err
	}
	s.cacheUser(ctx, u)
	return nil
}

func (s *CachedStore) Apply(ctx context.Context, entry *model.Transaction, cashDelta decimal.Decimal) error {
	if err := s.primary.Apply(ctx, entry, cashDelta); err != nil {
		return err
	}
	// Invalidate balance and ledger; next read re-populates. The primary
	// write is committed at this point; a failed invalidation would leave
	// stale reads behind, so it fails the operation.
	if err := s.rdb.Del(ctx, userKey(entry.UserID), ledgerKey(entry.UserID)).Err(); err != nil {
		slog.Error("cache invalidation failed", "user", entry.UserID, "err", err)
		return fmt.Errorf("invalidate cache for user %s: %w", entry.UserID, err)
	}
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	data, err := s.rdb.Get(ctx, userKey(id)).Bytes()
	if err == nil {
		var u model.User
		if json.Unmarshal(data, &u) == nil {
			return &u, nil
		}
	}

	u, err := s.primary.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheUser(ctx, u)
	return u, nil
}

func (s *CachedStore) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	data, err := s.rdb.Get(ctx, ledgerKey(userID)).Bytes()
	if err == nil {
		var txs []model.Transaction
		if json.Unmarshal(data, &txs) == nil {
			return txs, nil
		}
	}

	txs, err := s.primary.Transactions(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(txs); err == nil {
		s.rdb.Set(ctx, ledgerKey(userID), data, s.ttl)
	}
	return txs, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.primary.GetUserByUsername(ctx, username)
}

// --- Cache helpers ---

// cacheUser stores the user under their ID key. The credential hash stays
// out of the cache: User marshals it as "-" so only identity and balance
// are cached, and GetUserByUsername (the login path) always hits primary.
func (s *CachedStore) cacheUser(ctx context.Context, u *model.User) {
	if data, err := json.Marshal(u); err == nil {
		s.rdb.Set(ctx, userKey(u.ID), data, s.ttl)
	}
}

func userKey(id string) string   { return fmt.Sprintf("user:%s", id) }
func ledgerKey(id string) string { return fmt.Sprintf("ledger:%s", id) }
