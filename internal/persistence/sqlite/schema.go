package sqlite

import (
	"context"
	"fmt"
)

// schema is the full DDL for the time tracking store. Statements are
// idempotent so Migrate can run on every start.
//
// The partial unique index on active entries is the storage-level guarantee
// behind the "at most one open session per user" rule: concurrent punch-in
// attempts race down to a single INSERT winning and the loser receiving a
// UNIQUE violation.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		display_name  TEXT NOT NULL,
		initials      TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS time_entries (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL REFERENCES users(id),
		clock_in    TEXT NOT NULL,
		clock_out   TEXT,
		is_active   INTEGER NOT NULL CHECK (is_active IN (0, 1)),
		date        TEXT NOT NULL,
		category    TEXT,
		description TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		CHECK ((is_active = 1 AND clock_out IS NULL) OR (is_active = 0 AND clock_out IS NOT NULL)),
		CHECK (clock_out IS NULL OR clock_out >= clock_in)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_time_entries_single_active
		ON time_entries(user_id) WHERE is_active = 1`,
	`CREATE INDEX IF NOT EXISTS idx_time_entries_user_date
		ON time_entries(user_id, date)`,
	`CREATE INDEX IF NOT EXISTS idx_time_entries_user_clock_in
		ON time_entries(user_id, clock_in)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users(id),
		token      TEXT NOT NULL UNIQUE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
}

// Migrate applies the embedded schema to the connected database.
func (cp *ConnectionPool) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := cp.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
