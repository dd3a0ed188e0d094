package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	return insertFileTx(s.db, f)
}

func insertFileTx(tx execer, f *File) (int64, error) {
	if f.LastIndexed.IsZero() {
		f.LastIndexed = time.Now().UTC().Truncate(time.Second)
	}
	res, err := tx.Exec(
		"INSERT INTO files (path, hash, last_indexed) VALUES (?, ?, ?)",
		f.Path, f.Hash, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

func (s *Store) FileByPath(path string) (*File, error) {
	f := &File{}
	err := s.db.QueryRow(
		"SELECT id, path, COALESCE(hash, ''), last_indexed FROM files WHERE path = ?", path,
	).Scan(&f.ID, &f.Path, &f.Hash, &f.LastIndexed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every stored file ordered by path.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT id, path, COALESCE(hash, ''), last_indexed FROM files ORDER BY path")
}

// FilesIncluding returns the files that directly include path.
func (s *Store) FilesIncluding(path string) ([]*File, error) {
	return s.queryFiles(`
		SELECT DISTINCT f.id, f.path, COALESCE(f.hash, ''), f.last_indexed
		FROM files f JOIN includes i ON i.file_id = f.id
		WHERE i.path = ?
		ORDER BY f.path`, path)
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f := &File{}
		if err := rows.Scan(&f.ID, &f.Path, &f.Hash, &f.LastIndexed); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// --- Include operations ---

func (s *Store) InsertInclude(inc *Include) (int64, error) {
	return insertIncludeTx(s.db, inc)
}

func insertIncludeTx(tx execer, inc *Include) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO includes (file_id, path, line, ordinal) VALUES (?, ?, ?, ?)",
		inc.FileID, inc.Path, inc.Line, inc.Ordinal,
	)
	if err != nil {
		return 0, fmt.Errorf("insert include: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	inc.ID = id
	return id, nil
}

// IncludesByFile returns a file's includes in source order.
func (s *Store) IncludesByFile(fileID int64) ([]*Include, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, path, COALESCE(line, 0), ordinal FROM includes WHERE file_id = ? ORDER BY ordinal, id", fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("includes by file: %w", err)
	}
	defer rows.Close()
	var incs []*Include
	for rows.Next() {
		inc := &Include{}
		if err := rows.Scan(&inc.ID, &inc.FileID, &inc.Path, &inc.Line, &inc.Ordinal); err != nil {
			return nil, fmt.Errorf("scan include: %w", err)
		}
		incs = append(incs, inc)
	}
	return incs, rows.Err()
}

// --- Symbol operations ---

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	return insertSymbolTx(s.db, sym)
}

func insertSymbolTx(tx execer, sym *Symbol) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO symbols (file_id, parent_id, ordinal, kind, name, type, line, col, storage, visibility, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, sym.ParentID, sym.Ordinal, sym.Kind, sym.Name, sym.Type,
		sym.Line, sym.Col, sym.Storage, sym.Visibility, marshalExtra(sym.Extra),
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	sym.ID = id
	return id, nil
}

const symbolColumns = `id, file_id, parent_id, ordinal, kind, COALESCE(name, ''), COALESCE(type, ''),
	COALESCE(line, 0), COALESCE(col, 0), COALESCE(storage, ''), COALESCE(visibility, ''), COALESCE(extra, '')`

func (s *Store) scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	var parentID sql.NullInt64
	var extra string
	if err := scanner.Scan(&sym.ID, &sym.FileID, &parentID, &sym.Ordinal, &sym.Kind, &sym.Name, &sym.Type,
		&sym.Line, &sym.Col, &sym.Storage, &sym.Visibility, &extra); err != nil {
		return nil, err
	}
	if parentID.Valid {
		sym.ParentID = &parentID.Int64
	}
	sym.Extra = unmarshalExtra(extra)
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var syms []*Symbol
	for rows.Next() {
		sym, err := s.scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

// SymbolsByFile returns a file's symbol rows in insertion order, which puts
// every parent before its children.
func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolColumns+" FROM symbols WHERE file_id = ? ORDER BY id", fileID)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolColumns+" FROM symbols WHERE name = ? ORDER BY id", name)
}

func (s *Store) SymbolChildren(symbolID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolColumns+" FROM symbols WHERE parent_id = ? ORDER BY ordinal, id", symbolID)
}

// SymbolsByIDs returns the rows for ids in id order. Unknown ids are skipped.
func (s *Store) SymbolsByIDs(ids []int64) ([]*Symbol, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.querySymbols(
		"SELECT "+symbolColumns+" FROM symbols WHERE id IN ("+placeholderList(len(ids))+") ORDER BY id",
		int64sToArgs(ids)...,
	)
}

// --- Metadata ---

const generationKey = "generation"

func (s *Store) SetMetadata(key, value string) error {
	return setMetadataTx(s.db, key, value)
}

func setMetadataTx(tx execer, key, value string) error {
	_, err := tx.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %q: %w", key, err)
	}
	return nil
}

// Metadata returns the value stored for key, or "" when unset.
func (s *Store) Metadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("metadata %q: %w", key, err)
	}
	return value, nil
}

// Generation is a counter bumped by every write that changes stored
// documents. It is zero for a fresh database.
func (s *Store) Generation() (int64, error) {
	v, err := s.Metadata(generationKey)
	if err != nil || v == "" {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("generation: %w", err)
	}
	return n, nil
}

func bumpGeneration(tx execer) error {
	_, err := tx.Exec(
		`INSERT INTO metadata (key, value) VALUES (?, '1')
		 ON CONFLICT(key) DO UPDATE SET value = CAST(CAST(value AS INTEGER) + 1 AS TEXT)`,
		generationKey,
	)
	if err != nil {
		return fmt.Errorf("bump generation: %w", err)
	}
	return nil
}
