package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema creates the three tables the application reads and writes. Deleting a
// computer cascades to its components and incidents.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,
	`CREATE TABLE IF NOT EXISTS computers (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'operational' CHECK (status IN ('operational', 'non_operational')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS components (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		computer_id UUID NOT NULL REFERENCES computers(id) ON DELETE CASCADE,
		type TEXT NOT NULL CHECK (type IN ('monitor', 'pc', 'keyboard', 'mouse', 'network')),
		status TEXT NOT NULL DEFAULT 'operational' CHECK (status IN ('operational', 'non_operational')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		computer_id UUID NOT NULL REFERENCES computers(id) ON DELETE CASCADE,
		component_id UUID NOT NULL REFERENCES components(id) ON DELETE CASCADE,
		student_name TEXT NOT NULL,
		group_name TEXT NOT NULL,
		description TEXT NOT NULL,
		reported_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_components_computer_id ON components(computer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_incidents_computer_created ON incidents(computer_id, created_at DESC)`,
}

// Migrate applies the bundled schema. Every statement is idempotent, so it is
// safe to run on each start.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
