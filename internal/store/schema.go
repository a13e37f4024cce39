package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the PostgreSQL schema for the ledger engine. The transactions
// table is append-only: rows are inserted by Apply and never updated or
// deleted.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	credential TEXT NOT NULL,
	cash       NUMERIC NOT NULL CHECK (cash >= 0),
	created_at TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS users_username_lower
	ON users (LOWER(username));

CREATE TABLE IF NOT EXISTS transactions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL REFERENCES users(id),
	symbol     TEXT NOT NULL,
	name       TEXT NOT NULL,
	shares     BIGINT NOT NULL,
	price      NUMERIC NOT NULL,
	total      NUMERIC NOT NULL,
	transacted TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_user
	ON transactions (user_id, transacted);
`

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
