package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades a database from user_version = index to index+1.
type migration struct {
	name string
	stmt string
}

// migrations are applied in order on top of schema.sql. The schema version
// of a database is the number of migrations it has seen.
var migrations = []migration{
	{"circuit index", `CREATE INDEX IF NOT EXISTS idx_calls_circuit ON calls(instance, circuit, seq)`},
	{"gas index", `CREATE INDEX IF NOT EXISTS idx_calls_gas ON calls(instance, gas_cost)`},
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

// Store is the durable call log: one row per deployed instance and one row
// per committed call, each call carrying its transcript and post-call state.
type Store struct {
	db *sql.DB
}

// Open creates or opens the call log at path and brings its schema up to
// date. Opening the same file again is harmless.
//
// The connection runs in WAL mode with foreign keys enforced and a five
// second busy timeout. The pool holds a single connection: the engine is the
// only writer and SQLite serializes writers anyway.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open call log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to call log %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database. A zero Store closes cleanly.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle. Tests use it to tamper with rows.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate applies schema.sql and then every migration the database has not
// seen, all in one transaction.
func migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := tx.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("call log schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	for i := version; i < SchemaVersion; i++ {
		if _, err := tx.Exec(migrations[i].stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", i+1, migrations[i].name, err)
		}
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		return fmt.Errorf("write schema version: %w", err)
	}
	return tx.Commit()
}

// pragma reads a single pragma value.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("read pragma %s: %w", name, err)
	}
	return value, nil
}
