// Package duckdb persists plugin samples in an embedded DuckDB
// database. One row per persisted sample, with the typed values
// serialized into a JSON column.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/perchlab/perch/internal/duckdb/migrate"
)

// DefaultQueryTimeout bounds any single read or write against the
// database.
const DefaultQueryTimeout = 30 * time.Second

// Store is a model.SampleStore backed by DuckDB.
type Store struct {
	db           *sql.DB
	dbPath       string
	queryTimeout time.Duration

	// mu serializes CHECKPOINT with snapshot copies.
	mu sync.Mutex
}

// NewStore opens (or creates) the database at dbPath and applies
// pending migrations. An empty path opens an in-memory database.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb at %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging duckdb: %w", err)
	}

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating: %w", err)
	}

	timeout := DefaultQueryTimeout
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		timeout = queryTimeout[0]
	}

	return &Store{db: db, dbPath: dbPath, queryTimeout: timeout}, nil
}

// DB exposes the underlying connection for maintenance tasks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the on-disk location, empty for in-memory databases.
func (s *Store) Path() string { return s.dbPath }

// SetMaxConcurrentQueries caps the number of simultaneous connections
// DuckDB will serve.
func (s *Store) SetMaxConcurrentQueries(n int) {
	s.db.SetMaxOpenConns(n)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}
