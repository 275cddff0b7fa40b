// Package sqlite implements pkgscout storage on SQLite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrDuplicate is returned when an insert violates a uniqueness
// constraint.
var ErrDuplicate = errors.New("duplicate row")

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("row not found")

// Store implements the storage interface on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (creating if necessary) the database at path and applies
// the schema. WAL mode keeps concurrent readers cheap.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// In-memory databases lose state when the sole connection closes.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrapInsertErr maps uniqueness violations onto ErrDuplicate so callers
// need not inspect driver error strings.
func wrapInsertErr(context string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed") && strings.Contains(err.Error(), "unique") {
		return fmt.Errorf("%s: %w", context, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", context, err)
}
