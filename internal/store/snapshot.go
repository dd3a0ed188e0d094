package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jward/cxxbind/internal/cpp"
)

// SaveDocument stores doc in one transaction, replacing anything recorded
// for its file. It reports false and writes nothing when the stored content
// hash already matches.
func (s *Store) SaveDocument(ctx context.Context, doc *cpp.Document) (bool, error) {
	incs, rows := EncodeDocument(doc)
	hash := ComputeDocumentHash(incs, rows)

	existing, err := s.FileByPath(doc.FileName())
	if err != nil {
		return false, fmt.Errorf("save document: %w", err)
	}
	if existing != nil && existing.Hash == hash {
		return false, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("save document: begin: %w", err)
	}
	defer tx.Rollback()

	var fileID int64
	if existing != nil {
		fileID = existing.ID
		if err := deleteFileData(tx, fileID); err != nil {
			return false, fmt.Errorf("save document: %w", err)
		}
		if _, err := tx.Exec(
			"UPDATE files SET hash = ?, last_indexed = ? WHERE id = ?",
			hash, time.Now().UTC().Truncate(time.Second), fileID,
		); err != nil {
			return false, fmt.Errorf("save document: update file: %w", err)
		}
	} else {
		if fileID, err = insertFileTx(tx, &File{Path: doc.FileName(), Hash: hash}); err != nil {
			return false, fmt.Errorf("save document: %w", err)
		}
	}

	for _, inc := range incs {
		inc.FileID = fileID
		if _, err := insertIncludeTx(tx, inc); err != nil {
			return false, fmt.Errorf("save document: %w", err)
		}
	}
	if err := insertTreeTx(tx, fileID, rows, make(map[int64]int64)); err != nil {
		return false, fmt.Errorf("save document: %w", err)
	}
	if err := bumpGeneration(tx); err != nil {
		return false, fmt.Errorf("save document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("save document: commit: %w", err)
	}
	return true, nil
}

// insertTreeTx inserts rows carrying fake (negative) IDs. Parent and type
// references are rewritten through fakeToReal, which is extended with every
// inserted row. A fake reference not yet mapped is an error.
func insertTreeTx(tx *sql.Tx, fileID int64, rows []*Symbol, fakeToReal map[int64]int64) error {
	for _, r := range rows {
		sym := *r
		if sym.FileID <= 0 {
			sym.FileID = fileID
		}
		if sym.ParentID != nil && *sym.ParentID < 0 {
			realID, ok := fakeToReal[*sym.ParentID]
			if !ok {
				return fmt.Errorf("symbol %q: unknown parent %d", sym.Name, *sym.ParentID)
			}
			sym.ParentID = &realID
		}
		if sym.Extra.TypeRef != nil && *sym.Extra.TypeRef < 0 {
			if realID, ok := fakeToReal[*sym.Extra.TypeRef]; ok {
				sym.Extra.TypeRef = &realID
			} else {
				sym.Extra.TypeRef = nil
			}
		}
		fake := sym.ID
		realID, err := insertSymbolTx(tx, &sym)
		if err != nil {
			return fmt.Errorf("symbol %q: %w", sym.Name, err)
		}
		if fake < 0 {
			fakeToReal[fake] = realID
		}
	}
	return nil
}

// LoadDocument decodes the stored document for path, or returns nil when the
// path is unknown.
func (s *Store) LoadDocument(path string, control *cpp.Control) (*cpp.Document, error) {
	f, err := s.FileByPath(path)
	if err != nil || f == nil {
		return nil, err
	}
	return s.loadFile(f, control)
}

func (s *Store) loadFile(f *File, control *cpp.Control) (*cpp.Document, error) {
	incs, err := s.IncludesByFile(f.ID)
	if err != nil {
		return nil, err
	}
	rows, err := s.SymbolsByFile(f.ID)
	if err != nil {
		return nil, err
	}
	return DecodeDocument(f.Path, control, incs, rows)
}

// LoadSnapshot decodes every stored document into one snapshot whose names
// come from control. Cancellation is checked between documents.
func (s *Store) LoadSnapshot(ctx context.Context, control *cpp.Control) (*cpp.Snapshot, error) {
	if control == nil {
		control = cpp.NewControl()
	}
	files, err := s.Files()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	docs := make([]*cpp.Document, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.loadFile(f, control)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		docs = append(docs, doc)
	}
	return cpp.NewSnapshot(docs...), nil
}
