package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Database represents a connection to the glacierdb SQLite resource index
type Database struct {
	db   *sql.DB
	path string
}

// DatabaseOptions configures database creation and connection behavior
type DatabaseOptions struct {
	// Path to the SQLite database file
	Path string

	// WALMode enables Write-Ahead Logging mode for better concurrency
	WALMode bool

	// BusyTimeout sets the timeout for locked database operations
	BusyTimeout time.Duration
}

// DefaultDatabaseOptions returns sensible default options for database connections
func DefaultDatabaseOptions(path string) *DatabaseOptions {
	return &DatabaseOptions{
		Path:        path,
		WALMode:     true,
		BusyTimeout: 30 * time.Second,
	}
}

// NewDatabase creates a new database connection with the given options
func NewDatabase(options *DatabaseOptions) (*Database, error) {
	if options == nil {
		return nil, fmt.Errorf("database options cannot be nil")
	}

	if options.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}

	// Create the directory if it doesn't exist
	if err := ensureDirectory(options.Path); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Build connection string with pragmas
	connStr := buildConnectionString(options)

	// Open the database connection
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", options.Path, err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("testing database connection: %w", err)
	}

	database := &Database{
		db:   db,
		path: options.Path,
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}

	err := d.db.Close()
	d.db = nil

	if err != nil {
		return fmt.Errorf("closing database connection: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction with the given options
func (d *Database) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	tx, err := d.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	return tx, nil
}

// Exec executes a SQL statement that doesn't return rows
func (d *Database) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}

	return result, nil
}

// Query executes a SQL statement that returns rows
func (d *Database) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if d.db == nil {
		return nil, fmt.Errorf("database connection is closed")
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}

	return rows, nil
}

// HasResources reports whether the resource table already holds rows,
// so the index command can refuse to double-index a database.
func (d *Database) HasResources(ctx context.Context) (bool, error) {
	if d.db == nil {
		return false, fmt.Errorf("database connection is closed")
	}

	var name string
	err := d.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='resources'").Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking for resource table: %w", err)
	}

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources").Scan(&count); err != nil {
		return false, fmt.Errorf("counting resources: %w", err)
	}
	return count > 0, nil
}

// ensureDirectory creates the parent directory of path when needed
func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// buildConnectionString assembles the sqlite DSN with pragma options
func buildConnectionString(options *DatabaseOptions) string {
	var pragmas []string

	if options.WALMode {
		pragmas = append(pragmas, "_journal_mode=WAL")
	}
	if options.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("_busy_timeout=%d", options.BusyTimeout.Milliseconds()))
	}

	if len(pragmas) == 0 {
		return options.Path
	}
	return options.Path + "?" + strings.Join(pragmas, "&")
}
