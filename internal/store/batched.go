package store

import "sync"

// BatchedStore buffers inserts in memory using fake (negative) IDs. A script
// producing documents writes to it without knowing whether it hits SQLite
// or a buffer; CommitBatch then writes everything in one transaction.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Read queries fall through to the underlying Store for committed data.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Files    []File
	Includes []Include
	Symbols  []Symbol

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertFile(f *File) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	f.ID = fakeID
	b.Files = append(b.Files, *f)
	return fakeID, nil
}

func (b *BatchedStore) InsertInclude(inc *Include) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	inc.ID = fakeID
	b.Includes = append(b.Includes, *inc)
	return fakeID, nil
}

func (b *BatchedStore) InsertSymbol(sym *Symbol) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	sym.ID = fakeID
	b.Symbols = append(b.Symbols, *sym)
	return fakeID, nil
}

// FileByPath prefers a buffered file over a committed one.
func (b *BatchedStore) FileByPath(path string) (*File, error) {
	b.mu.Lock()
	for i := len(b.Files) - 1; i >= 0; i-- {
		if b.Files[i].Path == path {
			f := b.Files[i]
			b.mu.Unlock()
			return &f, nil
		}
	}
	b.mu.Unlock()
	return b.store.FileByPath(path)
}

// SymbolsByFile returns symbols for a file, merging any buffered (not yet
// committed) symbols with those already in the database.
func (b *BatchedStore) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	var dbSyms []*Symbol
	if fileID > 0 {
		var err error
		if dbSyms, err = b.store.SymbolsByFile(fileID); err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Symbols {
		if b.Symbols[i].FileID == fileID {
			sym := b.Symbols[i]
			dbSyms = append(dbSyms, &sym)
		}
	}
	return dbSyms, nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Files) + len(b.Includes) + len(b.Symbols)
}
