package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a targeted row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRule is returned when a rule, or its reverse, already exists for the tenant.
	ErrDuplicateRule = errors.New("forwarding rule already exists")
	// ErrInvalidRule is returned for rules missing an endpoint or pointing at themselves.
	ErrInvalidRule = errors.New("invalid forwarding rule")
)

// DB wraps the SQLite connection for relay.db, shared by every tenant.
type DB struct {
	*sql.DB
}

// Open creates a new SQLite connection with WAL mode and recommended pragmas.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{db}, nil
}
