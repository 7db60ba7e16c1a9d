package database

import (
	"context"
	"fmt"
	"log/slog"
)

// ResourceRow is one directory entry flattened for insertion.
type ResourceRow struct {
	Hash            string
	Archive         string
	Type            string
	Path            string
	Hint            string
	DataSize        uint32
	CompressedSize  uint32
	Scrambled       bool
	DependencyCount int
}

// DependencyRow is one dependency edge of a resource.
type DependencyRow struct {
	Hash           string
	Archive        string
	Position       int
	DependencyHash string
	Flag           byte
}

// BulkInserter handles efficient batch insertion of resource index rows
type BulkInserter struct {
	db        *Database
	batchSize int
}

// BulkInsertOptions configures bulk insertion behavior
type BulkInsertOptions struct {
	// BatchSize determines how many rows to insert per transaction
	BatchSize int
}

// DefaultBulkInsertOptions returns sensible defaults for bulk insertion
func DefaultBulkInsertOptions() *BulkInsertOptions {
	return &BulkInsertOptions{
		BatchSize: 1000,
	}
}

// NewBulkInserter creates a new bulk inserter with the given database and options
func NewBulkInserter(db *Database, options *BulkInsertOptions) *BulkInserter {
	if options == nil {
		options = DefaultBulkInsertOptions()
	}

	return &BulkInserter{
		db:        db,
		batchSize: options.BatchSize,
	}
}

// InsertResources inserts resource rows in batched transactions and
// returns the number of rows written.
func (bi *BulkInserter) InsertResources(ctx context.Context, rows []ResourceRow) (int64, error) {
	const stmt = `INSERT OR REPLACE INTO resources
		(hash, archive, type, path, hint, data_size, compressed_size, scrambled, dependency_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var inserted int64
	for start := 0; start < len(rows); start += bi.batchSize {
		end := min(start+bi.batchSize, len(rows))

		tx, err := bi.db.BeginTx(ctx, nil)
		if err != nil {
			return inserted, err
		}

		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("preparing resource insert: %w", err)
		}

		for _, row := range rows[start:end] {
			scrambled := 0
			if row.Scrambled {
				scrambled = 1
			}
			if _, err := prepared.ExecContext(ctx,
				row.Hash, row.Archive, row.Type, nullable(row.Path), nullable(row.Hint),
				row.DataSize, row.CompressedSize, scrambled, row.DependencyCount); err != nil {
				prepared.Close()
				tx.Rollback()
				return inserted, fmt.Errorf("inserting resource %s: %w", row.Hash, err)
			}
			inserted++
		}

		prepared.Close()
		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("committing resource batch: %w", err)
		}

		slog.Debug("Inserted resource batch", "from", start, "to", end)
	}

	return inserted, nil
}

// InsertDependencies inserts dependency edges in batched transactions.
func (bi *BulkInserter) InsertDependencies(ctx context.Context, rows []DependencyRow) (int64, error) {
	const stmt = `INSERT OR REPLACE INTO dependencies
		(hash, archive, position, dependency_hash, flag)
		VALUES (?, ?, ?, ?, ?)`

	var inserted int64
	for start := 0; start < len(rows); start += bi.batchSize {
		end := min(start+bi.batchSize, len(rows))

		tx, err := bi.db.BeginTx(ctx, nil)
		if err != nil {
			return inserted, err
		}

		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			tx.Rollback()
			return inserted, fmt.Errorf("preparing dependency insert: %w", err)
		}

		for _, row := range rows[start:end] {
			if _, err := prepared.ExecContext(ctx,
				row.Hash, row.Archive, row.Position, row.DependencyHash, row.Flag); err != nil {
				prepared.Close()
				tx.Rollback()
				return inserted, fmt.Errorf("inserting dependency of %s: %w", row.Hash, err)
			}
			inserted++
		}

		prepared.Close()
		if err := tx.Commit(); err != nil {
			return inserted, fmt.Errorf("committing dependency batch: %w", err)
		}
	}

	return inserted, nil
}

// nullable maps empty strings to NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
