package database

import (
	"context"
	"fmt"
)

// Schema for the resource index: one row per (resource, archive) pair so
// patch layering stays visible, plus a dependency edge table.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		hash TEXT NOT NULL,
		archive TEXT NOT NULL,
		type TEXT NOT NULL,
		path TEXT,
		hint TEXT,
		data_size INTEGER NOT NULL,
		compressed_size INTEGER NOT NULL,
		scrambled INTEGER NOT NULL,
		dependency_count INTEGER NOT NULL,
		PRIMARY KEY (hash, archive)
	)`,
	`CREATE TABLE IF NOT EXISTS dependencies (
		hash TEXT NOT NULL,
		archive TEXT NOT NULL,
		position INTEGER NOT NULL,
		dependency_hash TEXT NOT NULL,
		flag INTEGER NOT NULL,
		PRIMARY KEY (hash, archive, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_type ON resources (type)`,
	`CREATE INDEX IF NOT EXISTS idx_resources_path ON resources (path)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_target ON dependencies (dependency_hash)`,
}

// CreateSchema creates the resource index tables and indexes
func (d *Database) CreateSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}
