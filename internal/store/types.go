package store

import "time"

type File struct {
	ID          int64
	Path        string
	Hash        string
	LastIndexed time.Time
}

// Include is one resolved #include of a file. Path is the included file.
type Include struct {
	ID      int64
	FileID  int64
	Path    string
	Line    int
	Ordinal int
}

// Symbol is one row of a file's symbol tree. Members of the global
// namespace have no parent. Siblings are ordered by Ordinal.
type Symbol struct {
	ID         int64
	FileID     int64
	ParentID   *int64
	Ordinal    int
	Kind       string
	Name       string
	Type       string
	Line       int
	Col        int
	Storage    string
	Visibility string
	Extra      SymbolExtra
}

// SymbolExtra holds the kind-specific attributes of a symbol, stored as JSON.
type SymbolExtra struct {
	// Anonymous marks a symbol whose name is anonymous; Name is empty.
	Anonymous bool `json:"anonymous,omitempty"`
	// Specialization marks a template-id name of an explicit specialization.
	Specialization bool   `json:"specialization,omitempty"`
	Inline         bool   `json:"inline,omitempty"`
	Scoped         bool   `json:"scoped,omitempty"`
	ClassKey       string `json:"class_key,omitempty"`
	Virtual        bool   `json:"virtual,omitempty"`
	// Target is the aliased namespace of a namespace alias.
	Target string `json:"target,omitempty"`
	// TypeRef is the ID of the symbol used as a declaration's type, as in
	// typedef struct { ... } S.
	TypeRef *int64 `json:"type_ref,omitempty"`
}

func (e SymbolExtra) isZero() bool {
	return e == SymbolExtra{}
}
