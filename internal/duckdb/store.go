// Package duckdb persists clickstream events in DuckDB.
package duckdb

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/edetail/internal/duckdb/migrate"
	"github.com/tinytelemetry/edetail/internal/model"
)

var _ model.EventStore = (*Store)(nil)

// Store manages the DuckDB connection and the clickstream queries.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	log          *slog.Logger
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database and applies migrations.
// An empty dbPath opens an in-memory database. queryTimeout defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}

	ctx, cancel := context.WithTimeout(context.Background(), qt)
	defer cancel()
	if _, err := migrate.NewRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:           db,
		dbPath:       dbPath,
		log:          slog.Default().With("component", "duckdb"),
		QueryTimeout: qt,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}
