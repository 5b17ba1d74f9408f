package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the persisted layout: a cash scalar per user and an append-only
// trade log. transactions rows are never updated or deleted; deposits is a
// separate audit trail and is not part of the share ledger.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    cash          NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (cash >= 0)
);

CREATE TABLE IF NOT EXISTS transactions (
    id      BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    symbol  TEXT NOT NULL,
    shares  BIGINT NOT NULL,
    price   NUMERIC(20,2) NOT NULL,
    ts      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS transactions_user_idx ON transactions (user_id, ts DESC);
CREATE INDEX IF NOT EXISTS transactions_user_symbol_idx ON transactions (user_id, symbol);

CREATE TABLE IF NOT EXISTS deposits (
    id      BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    amount  NUMERIC(20,2) NOT NULL CHECK (amount > 0),
    ts      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS deposits_user_idx ON deposits (user_id, ts DESC);
`

func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return pool, nil
}

// Migrate applies the schema (idempotent).
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
