package bindings

import (
	"context"

	"github.com/jward/cxxbind/internal/cpp"
)

// Snapshot returns the snapshot the graph was built from.
func (b *Bindings) Snapshot() *cpp.Snapshot { return b.snapshot }

// Control returns the name allocator used for instantiation names.
func (b *Bindings) Control() *cpp.Control { return b.control }

// ExpandTemplates reports whether instantiations clone template members.
func (b *Bindings) ExpandTemplates() bool { return b.expandTemplates }

// GlobalNamespace returns the root node.
func (b *Bindings) GlobalNamespace() *ClassOrNamespace { return b.global }

// NodeCount returns the number of nodes allocated so far. It grows as
// lookups flush pending members and instantiate templates.
func (b *Bindings) NodeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.nodes)
}

// Flush processes every pending member of every node.
func (b *Bindings) Flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushAll(ctx)
}

// LookupTypeOfSymbol returns the node of the scope symbol opens, searching
// from enclosing first when it is non-nil.
func (b *Bindings) LookupTypeOfSymbol(symbol cpp.Symbol, enclosing *ClassOrNamespace) *ClassOrNamespace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookupTypeOfSymbol(symbol, enclosing)
}

// LookupPath resolves a list of scope names from the global node.
func (b *Bindings) LookupPath(path []cpp.Name, enclosing *ClassOrNamespace) *ClassOrNamespace {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookupPath(path, enclosing)
}

// LookupInScope returns the members of scope named name.
func (b *Bindings) LookupInScope(name cpp.Name, scope cpp.Scope) []LookupItem {
	if scope == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []LookupItem
	b.lookupInScope(name, scope, &result, nil, nil)
	return result
}

// ID returns the node's allocation index within its graph. Unretained
// block nodes report -1.
func (n *ClassOrNamespace) ID() int { return n.id }

// Bindings returns the graph n belongs to.
func (n *ClassOrNamespace) Bindings() *Bindings { return n.factory }

// Name returns the name the node was created for; nil for the global node.
func (n *ClassOrNamespace) Name() cpp.Name { return n.name }

// Parent returns the enclosing node; nil for the global node.
func (n *ClassOrNamespace) Parent() *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.parent
}

// GlobalNamespace returns the root of the graph n belongs to.
func (n *ClassOrNamespace) GlobalNamespace() *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.globalNamespace()
}

// Kind returns the kind established by the node's first symbol. ok is false
// for nodes that have no symbols, such as those created by using
// declarations.
func (n *ClassOrNamespace) Kind() (kind cpp.Kind, ok bool) {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	n.flush()
	return n.kind, n.hasKind
}

// Symbols returns the merged declarations of the node.
func (n *ClassOrNamespace) Symbols() []cpp.Symbol {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return append([]cpp.Symbol(nil), n.flushedSymbols()...)
}

// Usings returns the nodes whose members are visible through n.
func (n *ClassOrNamespace) Usings() []*ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return append([]*ClassOrNamespace(nil), n.flushedUsings()...)
}

// UnscopedEnums returns the unscoped enums whose enumerators are visible in n.
func (n *ClassOrNamespace) UnscopedEnums() []*cpp.Enum {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	n.flush()
	return append([]*cpp.Enum(nil), n.enums...)
}

// RootClass returns the first class definition bound to n, or nil.
func (n *ClassOrNamespace) RootClass() *cpp.Class {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	n.flush()
	return n.rootClass
}

// TemplateID returns the template-id of an instantiation node, or nil.
func (n *ClassOrNamespace) TemplateID() *cpp.TemplateNameID { return n.templateID }

// InstantiationOrigin returns the node whose lookup created this
// instantiation, or nil.
func (n *ClassOrNamespace) InstantiationOrigin() *ClassOrNamespace { return n.instantiationOrigin }

// Children returns the named children in insertion order.
func (n *ClassOrNamespace) Children() []*ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	n.flush()
	return n.nested.snapshotValues()
}

// Lookup resolves name from n, escalating to enclosing nodes when n and its
// using targets declare nothing by that name.
func (n *ClassOrNamespace) Lookup(name cpp.Name) []LookupItem {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.lookup(name, true)
}

// Find resolves name in n and its using targets only.
func (n *ClassOrNamespace) Find(name cpp.Name) []LookupItem {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.find(name)
}

// LookupType resolves name to a node, escalating to enclosing nodes.
func (n *ClassOrNamespace) LookupType(name cpp.Name) *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.lookupType(name)
}

// FindType resolves name to a node without leaving n.
func (n *ClassOrNamespace) FindType(name cpp.Name) *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.findType(name)
}

// LookupTypeInBlock resolves name in the node bound to block.
func (n *ClassOrNamespace) LookupTypeInBlock(name cpp.Name, block *cpp.Block) *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.lookupTypeInBlock(name, block)
}

// FindBlock returns the node bound to block, searching nested blocks and
// enclosing nodes.
func (n *ClassOrNamespace) FindBlock(block *cpp.Block) *ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.findBlock(block)
}

// GetNested returns the direct child bound to name without searching using
// targets or enclosing nodes.
func (n *ClassOrNamespace) GetNested(name cpp.Name) *ClassOrNamespace {
	if name == nil {
		return nil
	}
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.nestedType(name, make(map[*ClassOrNamespace]struct{}), n)
}

// LookupInScope returns the member of n's scopes whose fully qualified name
// is fullName.
func (n *ClassOrNamespace) LookupInScope(fullName []cpp.Name) cpp.Symbol {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()
	return n.lookupInScope(fullName)
}

// String spells the node's path for diagnostics.
func (n *ClassOrNamespace) String() string {
	var parts []cpp.Name
	for e := n; e != nil && e.name != nil; e = e.parent {
		parts = append([]cpp.Name{e.name}, parts...)
	}
	if len(parts) == 0 {
		return "::"
	}
	return JoinNames(parts)
}
