package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for classified files, runs and
// engine metadata.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in queries and transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SchemaVersion is recorded in the metadata table by Migrate.
const SchemaVersion = "2"

const schemaVersionKey = "schema_version"

// Migrate creates all tables and indexes and brings databases written by
// older versions up to SchemaVersion. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	// Version 1 had no per-file fingerprint; its rows stay NULL and count as stale.
	if err := s.addColumn("files", "fingerprint", "TEXT"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := s.SetMetadata(schemaVersionKey, SchemaVersion); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// addColumn adds column to table unless it already exists.
func (s *Store) addColumn(table, column, decl string) error {
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column,
	).Scan(&n); err != nil {
		return fmt.Errorf("inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.db.Exec("ALTER TABLE " + table + " ADD COLUMN " + column + " " + decl); err != nil {
		return fmt.Errorf("add %s.%s: %w", table, column, err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  root            TEXT,
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  file_count      INTEGER NOT NULL DEFAULT 0,
  indexed         INTEGER NOT NULL DEFAULT 0,
  skipped         INTEGER NOT NULL DEFAULT 0,
  failed          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
  id               INTEGER PRIMARY KEY,
  path             TEXT NOT NULL UNIQUE,
  language         TEXT NOT NULL,
  hash             TEXT,
  fingerprint      TEXT,
  total_lines      INTEGER NOT NULL DEFAULT 0,
  executable_lines INTEGER NOT NULL DEFAULT 0,
  run_id           TEXT REFERENCES runs(id),
  last_indexed     TIMESTAMP,
  CHECK (executable_lines >= 0 AND executable_lines <= total_lines)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_language ON files(language);
CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
