// Package migrations applies the database schema. Statements are idempotent
// so Apply can run on every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id                         TEXT PRIMARY KEY,
		legal_name                 TEXT NOT NULL,
		trading_name               TEXT,
		slug                       TEXT UNIQUE,
		client_type                TEXT NOT NULL DEFAULT 'standard',
		implementation_config      JSONB NOT NULL DEFAULT '{}'::jsonb,
		is_implementation_complete BOOLEAN NOT NULL DEFAULT FALSE,
		implementation_date        TIMESTAMPTZ,
		implementation_notes       TEXT,
		created_at                 TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at                 TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS base_modules (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS module_implementations (
		base_module_id     TEXT NOT NULL REFERENCES base_modules(id) ON DELETE CASCADE,
		implementation_key TEXT NOT NULL,
		entry_point        TEXT NOT NULL,
		default_config     JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (base_module_id, implementation_key)
	)`,
	`CREATE TABLE IF NOT EXISTS organization_module_assignments (
		id                 TEXT PRIMARY KEY,
		organization_id    TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		base_module_id     TEXT NOT NULL REFERENCES base_modules(id) ON DELETE CASCADE,
		implementation_key TEXT NOT NULL,
		config             JSONB NOT NULL DEFAULT '{}'::jsonb,
		active             BOOLEAN NOT NULL DEFAULT TRUE,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (organization_id, base_module_id)
	)`,
	`CREATE TABLE IF NOT EXISTS maintenance_status (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		in_maintenance BOOLEAN NOT NULL DEFAULT FALSE,
		reason         TEXT NOT NULL DEFAULT '',
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
