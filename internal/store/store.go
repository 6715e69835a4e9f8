package store

import (
	"context"
	"database/sql"
	"fmt"

	"hashtools/internal/config"
)

// Store manages inventory persistence.
type Store struct {
	db        *sql.DB
	dialect   dialect
	fetchSize int
	batchSize int
}

// Open connects to the configured database and initializes the schema.
func Open(cfg *config.Config) (*Store, error) {
	d, err := dialectFor(cfg.Store.Driver)
	if err != nil {
		return nil, err
	}
	if d.name == config.DriverSQLite {
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
	}

	db, err := sql.Open(d.driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", d.name, err)
	}
	if d.name == config.DriverSQLite {
		// One connection serializes writers and keeps pragmas in effect.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range d.pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:        db,
		dialect:   d,
		fetchSize: positive(cfg.Store.FetchSize, 10_000),
		batchSize: positive(cfg.Store.BatchSize, 1_000),
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Driver names the active dialect.
func (s *Store) Driver() string {
	return s.dialect.name
}

// FetchSize is the keyset window used when streaming.
func (s *Store) FetchSize() int {
	return s.fetchSize
}

func positive(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
