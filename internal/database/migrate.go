// internal/database/migrate.go
package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		isbn               TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		category           TEXT NOT NULL DEFAULT '',
		quantity           INT NOT NULL CHECK (quantity >= 0),
		available_quantity INT NOT NULL CHECK (available_quantity >= 0 AND available_quantity <= quantity),
		price              NUMERIC(12, 2) NOT NULL DEFAULT 0,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS members (
		id         UUID PRIMARY KEY,
		email      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL,
		role       TEXT NOT NULL DEFAULT 'member',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS borrow_records (
		id          UUID PRIMARY KEY,
		member_id   UUID NOT NULL REFERENCES members (id),
		isbn        TEXT NOT NULL REFERENCES books (isbn) ON DELETE CASCADE,
		borrowed_at TIMESTAMPTZ NOT NULL,
		due_at      TIMESTAMPTZ NOT NULL,
		returned_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS borrow_records_open_loan
		ON borrow_records (member_id, isbn) WHERE returned_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS events (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_id   TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		event_type     TEXT NOT NULL,
		event_data     JSONB NOT NULL,
		metadata       JSONB,
		version        INT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (aggregate_id, version)
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
