package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for parsed documents: files, their
// resolved includes and their symbol trees.
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

const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  hash            TEXT,
  last_indexed    TIMESTAMP
);

CREATE TABLE IF NOT EXISTS includes (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  path            TEXT NOT NULL,
  line            INTEGER,
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  parent_id       INTEGER REFERENCES symbols(id),
  ordinal         INTEGER NOT NULL,
  kind            TEXT NOT NULL,
  name            TEXT,
  type            TEXT,
  line            INTEGER,
  col             INTEGER,
  storage         TEXT,
  visibility      TEXT,
  extra           TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_includes_file ON includes(file_id);
CREATE INDEX IF NOT EXISTS idx_includes_path ON includes(path);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
`

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// DeleteFile transactionally removes a file and everything recorded for it.
// Deleting an unknown path is not an error.
func (s *Store) DeleteFile(path string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	err = tx.QueryRow("SELECT id FROM files WHERE path = ?", path).Scan(&fileID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete file: lookup %q: %w", path, err)
	}
	if err := deleteFileData(tx, fileID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if err := bumpGeneration(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteFileData removes the includes and symbols of a file, children before
// parents so the self-reference on symbols never dangles.
func deleteFileData(tx execer, fileID int64) error {
	if _, err := tx.Exec("DELETE FROM includes WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete includes: %w", err)
	}
	if _, err := tx.Exec("UPDATE symbols SET parent_id = NULL WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("detach symbols: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM symbols WHERE file_id = ?", fileID); err != nil {
		return fmt.Errorf("delete symbols: %w", err)
	}
	return nil
}
