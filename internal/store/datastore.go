package store

// DataStore is the interface scripts write documents through. Both Store
// (direct SQLite) and BatchedStore (in-memory buffering committed in one
// transaction) implement it.
type DataStore interface {
	// Inserts return the assigned ID.
	InsertFile(f *File) (int64, error)
	InsertInclude(inc *Include) (int64, error)
	InsertSymbol(sym *Symbol) (int64, error)

	FileByPath(path string) (*File, error)
	SymbolsByFile(fileID int64) ([]*Symbol, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
