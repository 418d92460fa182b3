package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements bootstrap the tables the service needs. Balances are
// NUMERIC(15,2) and guarded against going negative at the database level;
// transaction rows are append-only by convention and never updated.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id BIGSERIAL PRIMARY KEY,
        name TEXT NOT NULL,
        email TEXT NOT NULL UNIQUE,
        password_hash BYTEA NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS wallets (
        id UUID PRIMARY KEY,
        user_id BIGINT NOT NULL UNIQUE,
        balance NUMERIC(15,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS transactions (
        id UUID PRIMARY KEY,
        kind TEXT NOT NULL CHECK (kind IN ('fund', 'withdraw', 'transfer')),
        amount NUMERIC(15,2) NOT NULL CHECK (amount > 0),
        from_user_id BIGINT,
        to_user_id BIGINT,
        description TEXT NOT NULL DEFAULT '',
        wallet_id UUID NOT NULL REFERENCES wallets (id),
        created_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_from_user ON transactions (from_user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_to_user ON transactions (to_user_id, created_at DESC)`,
}

// EnsureSchema creates the required tables and indexes when missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
