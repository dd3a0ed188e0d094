package store

import (
	"database/sql"
	"fmt"
	"time"
)

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) IDs are remapped to real IDs
// and every reference within the batch is rewritten using the fakeToReal
// mapping.
//
// Insert order respects FK dependencies:
//  1. Files (a buffered path that is already stored replaces it)
//  2. Includes (depend on file_id)
//  3. Symbols (depend on file_id and parent_id, in insertion order)
//
// Committed files get an empty hash, so the next SaveDocument for the same
// path always writes.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()
	if len(batch.Files)+len(batch.Includes)+len(batch.Symbols) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)
	remap := func(id int64) (int64, error) {
		if id >= 0 {
			return id, nil
		}
		realID, ok := fakeToReal[id]
		if !ok {
			return 0, fmt.Errorf("unknown id %d", id)
		}
		return realID, nil
	}

	// 1. Files
	for _, f := range batch.Files {
		realID, err := replaceFileTx(tx, &f)
		if err != nil {
			return fmt.Errorf("commit batch: file %q: %w", f.Path, err)
		}
		fakeToReal[f.ID] = realID
	}

	// 2. Includes
	for _, inc := range batch.Includes {
		if inc.FileID, err = remap(inc.FileID); err != nil {
			return fmt.Errorf("commit batch: include %q: %w", inc.Path, err)
		}
		if _, err := insertIncludeTx(tx, &inc); err != nil {
			return fmt.Errorf("commit batch: include %q: %w", inc.Path, err)
		}
	}

	// 3. Symbols
	rows := make([]*Symbol, len(batch.Symbols))
	for i := range batch.Symbols {
		sym := batch.Symbols[i]
		if sym.FileID, err = remap(sym.FileID); err != nil {
			return fmt.Errorf("commit batch: symbol %q: %w", sym.Name, err)
		}
		rows[i] = &sym
	}
	if err := insertTreeTx(tx, 0, rows, fakeToReal); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if err := bumpGeneration(tx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: commit: %w", err)
	}

	batch.Files = nil
	batch.Includes = nil
	batch.Symbols = nil
	return nil
}

// replaceFileTx inserts f, or clears the data of the stored file with the
// same path and reuses its ID.
func replaceFileTx(tx *sql.Tx, f *File) (int64, error) {
	var id int64
	err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&id)
	if err == sql.ErrNoRows {
		return insertFileTx(tx, &File{Path: f.Path, LastIndexed: f.LastIndexed})
	}
	if err != nil {
		return 0, err
	}
	if err := deleteFileData(tx, id); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(
		"UPDATE files SET hash = '', last_indexed = ? WHERE id = ?",
		time.Now().UTC().Truncate(time.Second), id,
	); err != nil {
		return 0, err
	}
	return id, nil
}
