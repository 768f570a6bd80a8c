// Package locstore persists localization datasets and render runs in a
// sqlite database, and reads the CSV and YAML files they are imported from.
package locstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDatasetNotFound is returned when a dataset ID has no row.
var ErrDatasetNotFound = errors.New("dataset not found")

// Store wraps the sqlite handle. Call Migrate before first use of a fresh
// database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path. Foreign keys
// are enabled on every connection so dataset deletes cascade.
func Open(path string) (*Store, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for ad-hoc queries and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

func nullInt64(i *int64) interface{} {
	if i == nil {
		return nil
	}
	return *i
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
