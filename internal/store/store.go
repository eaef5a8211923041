package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite sink for completed index units.
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

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Symbol and use locations are stored as their text encoding
// ("[*]file:line:col"), where file is the per-unit file ordinal that the
// files table maps back to a path.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL,
  path            TEXT NOT NULL UNIQUE,
  language        TEXT NOT NULL,
  hash            TEXT,
  indexed_at      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  path            TEXT NOT NULL,
  UNIQUE(unit_id, ordinal)
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  usr             TEXT NOT NULL,
  short_name      TEXT,
  qualified_name  TEXT,
  placeholder     BOOLEAN NOT NULL DEFAULT 0,
  definition      TEXT,
  declaration     TEXT,
  UNIQUE(unit_id, kind, usr)
);

CREATE TABLE IF NOT EXISTS uses (
  id              INTEGER PRIMARY KEY,
  symbol_id       INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  file_id         INTEGER REFERENCES files(id) ON DELETE CASCADE,
  line            INTEGER NOT NULL,
  col             INTEGER NOT NULL,
  interesting     BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS edges (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  kind            TEXT NOT NULL,
  from_symbol_id  INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  to_symbol_id    INTEGER NOT NULL REFERENCES symbols(id) ON DELETE CASCADE,
  file_id         INTEGER REFERENCES files(id) ON DELETE CASCADE,
  line            INTEGER,
  col             INTEGER
);

CREATE TABLE IF NOT EXISTS conditions (
  id              INTEGER PRIMARY KEY,
  unit_id         INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
  code            TEXT NOT NULL,
  kind            TEXT NOT NULL,
  usr             TEXT,
  kept            TEXT,
  got             TEXT,
  message         TEXT
);

CREATE INDEX IF NOT EXISTS idx_symbols_usr ON symbols(usr);
CREATE INDEX IF NOT EXISTS idx_symbols_unit ON symbols(unit_id);
CREATE INDEX IF NOT EXISTS idx_files_unit ON files(unit_id);
CREATE INDEX IF NOT EXISTS idx_uses_symbol ON uses(symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(kind, from_symbol_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(kind, to_symbol_id);
CREATE INDEX IF NOT EXISTS idx_conditions_unit ON conditions(unit_id);
`

// DeleteUnit removes a unit and everything recorded for it. Deleting a path
// that was never committed is not an error.
func (s *Store) DeleteUnit(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("delete unit: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteUnitTx(tx, path); err != nil {
		return fmt.Errorf("delete unit %s: %w", path, err)
	}
	return tx.Commit()
}

// deleteUnitTx relies on ON DELETE CASCADE from units down to uses and edges.
func deleteUnitTx(tx *sql.Tx, path string) error {
	_, err := tx.Exec("DELETE FROM units WHERE path = ?", path)
	return err
}
