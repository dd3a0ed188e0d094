package cxxbind

import (
	"context"
	"fmt"

	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/cpp"
)

// Query provides result-struct access to the Engine's current snapshot.
// Names and scopes are C++ qualified names as text; a scope of "" is the
// global namespace and a function scope means its body. Unknown documents
// yield empty results, never errors.
type Query struct {
	engine *Engine
}

// Include is one resolved #include of a document.
type Include = cpp.Include

// SymbolResult describes one declaration.
type SymbolResult struct {
	Name          string
	QualifiedName string
	Kind          string
	File          string
	Line          int
	Column        int
	Type          string // empty for symbols without a declared type
}

// TypeResult describes a binding node: a namespace, class or enum merged
// across every document that declares it.
type TypeResult struct {
	Name         string
	Kind         string // empty for nodes without declarations
	Declarations []SymbolResult
}

// Files returns every stored file ordered by path.
func (q *Query) Files() ([]*File, error) {
	files, err := q.engine.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// Includes returns the direct includes of file in source order.
func (q *Query) Includes(ctx context.Context, file string) ([]Include, error) {
	snap, err := q.engine.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("includes: %w", err)
	}
	doc := snap.Document(file)
	if doc == nil {
		return nil, nil
	}
	return doc.Includes(), nil
}

// TransitiveIncludes returns every file that file includes, directly or not.
func (q *Query) TransitiveIncludes(ctx context.Context, file string) ([]string, error) {
	t, err := q.engine.DependencyTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("transitive includes: %w", err)
	}
	return t.Includes(file), nil
}

// Dependents returns every file that transitively includes file.
func (q *Query) Dependents(ctx context.Context, file string) ([]string, error) {
	deps, err := q.engine.FilesDependingOn(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	return deps, nil
}

// Lookup resolves name as written in scope of file.
func (q *Query) Lookup(ctx context.Context, file, name, scope string) ([]SymbolResult, error) {
	r, err := q.resolve(ctx, "lookup", file, name, scope)
	if err != nil || r == nil {
		return nil, err
	}
	var results []SymbolResult
	for _, item := range r.lc.Lookup(r.name, r.scope) {
		results = append(results, q.itemResult(item))
	}
	return results, nil
}

// LookupType resolves name as a type written in scope of file. It returns
// nil when name denotes no type.
func (q *Query) LookupType(ctx context.Context, file, name, scope string) (*TypeResult, error) {
	r, err := q.resolve(ctx, "lookup type", file, name, scope)
	if err != nil || r == nil {
		return nil, err
	}
	node := r.lc.LookupType(r.name, r.scope, nil)
	if node == nil {
		return nil, nil
	}
	tr := q.typeResult(node)
	return &tr, nil
}

// QualifiedName returns the fully qualified name of the first declaration
// name resolves to, or "" when it resolves to nothing.
func (q *Query) QualifiedName(ctx context.Context, file, name, scope string) (string, error) {
	items, err := q.Lookup(ctx, file, name, scope)
	if err != nil || len(items) == 0 {
		return "", err
	}
	return items[0].QualifiedName, nil
}

// MinimalName returns the shortest name that denotes the declaration name
// resolves to when written inside target. It returns "" when name resolves
// to nothing.
func (q *Query) MinimalName(ctx context.Context, file, name, target string) (string, error) {
	r, err := q.resolve(ctx, "minimal name", file, name, "")
	if err != nil || r == nil {
		return "", err
	}
	targetScope, err := r.doc.FindScope(target)
	if err != nil {
		return "", fmt.Errorf("minimal name: %w", err)
	}
	if targetScope == nil {
		return "", fmt.Errorf("minimal name: unknown scope %q in %s", target, file)
	}
	items := r.lc.Lookup(r.name, r.scope)
	if len(items) == 0 {
		return "", nil
	}
	minimal := r.lc.MinimalName(items[0].Declaration, r.lc.LookupTypeOfSymbol(targetScope, nil))
	if minimal == nil {
		return "", nil
	}
	return minimal.String(), nil
}

// resolved is a parsed (file, name, scope) request with a prepared graph.
type resolved struct {
	lc    *LookupContext
	doc   *Document
	name  Name
	scope cpp.Scope
}

func (q *Query) resolve(ctx context.Context, action, file, name, scope string) (*resolved, error) {
	lc, err := q.engine.LookupContext(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if lc == nil {
		return nil, nil
	}
	if _, err := q.engine.Bindings(ctx, file); err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	doc := lc.ThisDocument()
	n, err := cpp.ParseName(doc.Control(), name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	sc, err := doc.FindScope(scope)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if sc == nil {
		return nil, fmt.Errorf("%s: unknown scope %q in %s", action, scope, file)
	}
	return &resolved{lc: lc, doc: doc, name: n, scope: sc}, nil
}

func (q *Query) qualifiedName(sym Symbol) string {
	return bindings.JoinNames(bindings.FullyQualifiedName(sym, q.engine.policy))
}

func (q *Query) symbolResult(sym Symbol, ty cpp.FullySpecifiedType) SymbolResult {
	sr := SymbolResult{
		QualifiedName: q.qualifiedName(sym),
		Kind:          sym.Kind().String(),
		File:          sym.FileName(),
		Line:          sym.Line(),
		Column:        sym.Column(),
	}
	if n := sym.Name(); n != nil {
		sr.Name = n.String()
	}
	if ty.IsValid() {
		sr.Type = ty.String()
	}
	return sr
}

func (q *Query) itemResult(item LookupItem) SymbolResult {
	return q.symbolResult(item.Declaration, item.EffectiveType())
}

// typeResult names a node through its first declaration so the inline
// namespace policy applies.
func (q *Query) typeResult(node *ClassOrNamespace) TypeResult {
	tr := TypeResult{Name: node.String()}
	if kind, ok := node.Kind(); ok {
		tr.Kind = kind.String()
	}
	for i, sym := range node.Symbols() {
		if i == 0 {
			tr.Name = q.qualifiedName(sym)
		}
		tr.Declarations = append(tr.Declarations, q.symbolResult(sym, sym.Type()))
	}
	return tr
}
