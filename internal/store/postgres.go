package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/papertrade/ledger-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) CreateUser(ctx context.Context, u *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, credential, cash, created_at)
		 VALUES ($1, $2, $3, $4::NUMERIC, $5)`,
		u.ID, u.Username, u.Credential, u.Cash.String(), u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, credential, cash::TEXT, created_at
		 FROM users WHERE id = $1`, id)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, username, credential, cash::TEXT, created_at
		 FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (s *PostgresStore) getUser(ctx context.Context, query, arg string) (*model.User, error) {
	var u model.User
	var cash string

	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Credential, &cash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.Cash, _ = decimal.NewFromString(cash)
	return &u, nil
}

// Apply runs the ledger append and cash update in one database
// transaction, locking the user row so concurrent operations against the
// same balance serialize. Either both writes commit or neither does.
func (s *PostgresStore) Apply(ctx context.Context, entry *model.Transaction, cashDelta decimal.Decimal) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback(ctx)

	var cashStr string
	err = tx.QueryRow(ctx,
		`SELECT cash::TEXT FROM users WHERE id = $1 FOR UPDATE`,
		entry.UserID).Scan(&cashStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user %s: %w", entry.UserID, err)
	}

	cash, _ := decimal.NewFromString(cashStr)
	newCash := cash.Add(cashDelta)
	if newCash.IsNegative() {
		return ErrInsufficientCash
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO transactions (id, user_id, symbol, name, shares, price, total, transacted)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8)`,
		entry.ID, entry.UserID, entry.Symbol, entry.Name, entry.Shares,
		entry.Price.String(), entry.Total.String(), entry.Transacted,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET cash = $2::NUMERIC WHERE id = $1`,
		entry.UserID, newCash.String(),
	)
	if err != nil {
		return fmt.Errorf("update cash: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

func (s *PostgresStore) Transactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symbol, name, shares,
		        price::TEXT, total::TEXT, transacted
		 FROM transactions WHERE user_id = $1 ORDER BY transacted, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var priceS, totalS string

		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &t.Name, &t.Shares,
			&priceS, &totalS, &t.Transacted); err != nil {
			return nil, err
		}

		t.Price, _ = decimal.NewFromString(priceS)
		t.Total, _ = decimal.NewFromString(totalS)

		txs = append(txs, t)
	}
	return txs, rows.Err()
}
