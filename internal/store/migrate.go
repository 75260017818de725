package store

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/wprelay/internal/store/migrations"
)

// schemaTable keeps relay.db's version apart from any other migrator.
const schemaTable = "relay_schema_migrations"

var (
	// ErrDirtySchema means a previous migration stopped halfway.
	ErrDirtySchema = errors.New("relay.db schema is dirty")
	// ErrSchemaTooNew means relay.db was migrated by a newer relayd.
	ErrSchemaTooNew = errors.New("relay.db schema is newer than this relayd")
)

// MigrateResult reports the schema version before and after Migrate.
type MigrateResult struct {
	From    uint
	Version uint
	Changed bool
}

// Migrate brings relay.db up to the latest embedded schema. A dirty or
// newer-than-known schema is refused and left untouched.
func (db *DB) Migrate() (*MigrateResult, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	latest, err := latestVersion(src)
	if err != nil {
		return nil, err
	}

	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{MigrationsTable: schemaTable})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	from, err := currentVersion(m)
	if err != nil {
		return nil, err
	}
	if from > latest {
		return nil, fmt.Errorf("%w: at version %d, known up to %d", ErrSchemaTooNew, from, latest)
	}
	if from == latest {
		return &MigrateResult{From: from, Version: from}, nil
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, fmt.Errorf("migrate %d -> %d: %w", from, latest, err)
	}
	to, err := currentVersion(m)
	if err != nil {
		return nil, err
	}
	return &MigrateResult{From: from, Version: to, Changed: to != from}, nil
}

// currentVersion returns 0 for a fresh database.
func currentVersion(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return 0, fmt.Errorf("%w at version %d", ErrDirtySchema, v)
	}
	return v, nil
}

// latestVersion walks the embedded migrations to the last one.
func latestVersion(src source.Driver) (uint, error) {
	v, err := src.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", v, err)
		}
		v = next
	}
}
