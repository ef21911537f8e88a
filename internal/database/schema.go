package database

import (
	"context"
	"fmt"
)

// Names of the single managed table and its key column.
const (
	Table  = "domains"
	Column = "domain"
)

const sqlTableExists = `SELECT to_regclass('domains') IS NOT NULL`

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS domains (domain TEXT PRIMARY KEY)`,
	`CREATE INDEX IF NOT EXISTS idx_domains_domain ON domains (domain text_pattern_ops)`,
}

// EnsureSchema creates the domains table and its pattern index when the
// table does not exist. An existing table is left untouched, including a
// degraded one without its primary key.
func EnsureSchema(ctx context.Context, db DBTX) error {
	var exists bool
	if err := db.QueryRow(ctx, sqlTableExists).Scan(&exists); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if exists {
		return nil
	}

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
