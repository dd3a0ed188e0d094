package cxxbind

import (
	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/cpp"
	"github.com/jward/cxxbind/internal/deptable"
	"github.com/jward/cxxbind/internal/store"
)

// Public type aliases for internal types used in the Engine and Query API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Store = store.Store
type File = store.File

type Document = cpp.Document
type Snapshot = cpp.Snapshot
type Symbol = cpp.Symbol
type Name = cpp.Name

type LookupContext = bindings.LookupContext
type Bindings = bindings.Bindings
type ClassOrNamespace = bindings.ClassOrNamespace
type LookupItem = bindings.LookupItem
type DocumentScope = bindings.DocumentScope
type InlineNamespacePolicy = bindings.InlineNamespacePolicy

type DependencyTable = deptable.Table

const (
	ScopeSnapshot        = bindings.ScopeSnapshot
	ScopeTranslationUnit = bindings.ScopeTranslationUnit

	ShowInlineNamespaces = bindings.ShowInlineNamespaces
	HideInlineNamespaces = bindings.HideInlineNamespaces
)
