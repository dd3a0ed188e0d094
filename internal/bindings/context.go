package bindings

import (
	"context"
	"sync"

	"github.com/jward/cxxbind/internal/cpp"
)

// LookupContext resolves names written in one document. It walks the
// lexical scope chain of the position being resolved and consults the
// binding graph of the document's snapshot, which it builds on first use.
//
// Contexts created from the same graph with NewLookupContextWithBindings
// share it.
type LookupContext struct {
	expressionDocument *cpp.Document
	thisDocument       *cpp.Document
	snapshot           *cpp.Snapshot
	opts               []Option

	mu       sync.Mutex
	bindings *Bindings
}

// NewLookupContext returns a context for thisDocument. The graph is built
// with opts when first needed.
func NewLookupContext(thisDocument *cpp.Document, snap *cpp.Snapshot, opts ...Option) *LookupContext {
	return &LookupContext{
		expressionDocument: thisDocument,
		thisDocument:       thisDocument,
		snapshot:           snap,
		opts:               opts,
	}
}

// NewLookupContextWithBindings returns a context that uses an existing
// graph. expressionDocument is the document of a synthesized expression; it
// may equal thisDocument.
func NewLookupContextWithBindings(expressionDocument, thisDocument *cpp.Document, snap *cpp.Snapshot, b *Bindings) *LookupContext {
	return &LookupContext{
		expressionDocument: expressionDocument,
		thisDocument:       thisDocument,
		snapshot:           snap,
		bindings:           b,
	}
}

func (c *LookupContext) ThisDocument() *cpp.Document       { return c.thisDocument }
func (c *LookupContext) ExpressionDocument() *cpp.Document { return c.expressionDocument }
func (c *LookupContext) Snapshot() *cpp.Snapshot           { return c.snapshot }

// Document returns the snapshot's document for file, or nil.
func (c *LookupContext) Document(file string) *cpp.Document {
	return c.snapshot.Document(file)
}

// GlobalNamespace returns the root node of the graph, building it if needed.
func (c *LookupContext) GlobalNamespace() *ClassOrNamespace {
	if b := c.Bindings(); b != nil {
		return b.GlobalNamespace()
	}
	return nil
}

// Prepare builds the graph if it does not exist yet. A cancelled build
// leaves the context without a graph; a later call retries.
func (c *LookupContext) Prepare(ctx context.Context) (*Bindings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindings != nil {
		return c.bindings, nil
	}
	b, err := New(ctx, c.thisDocument, c.snapshot, c.opts...)
	if err != nil {
		return nil, err
	}
	c.bindings = b
	return b, nil
}

// Bindings returns the graph, building it without a deadline if needed.
func (c *LookupContext) Bindings() *Bindings {
	b, _ := c.Prepare(context.Background())
	return b
}

// SetExpandTemplates changes template expansion. An existing graph built
// with the other setting is discarded.
func (c *LookupContext) SetExpandTemplates(expand bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindings != nil && c.bindings.expandTemplates == expand {
		return
	}
	c.bindings = nil
	c.opts = append(append([]Option(nil), c.opts...), WithExpandTemplates(expand))
}

// Lookup resolves name as written inside scope. The lexical scopes from
// scope outward are searched first; a scope that yields declarations ends
// the walk.
func (c *LookupContext) Lookup(name cpp.Name, scope cpp.Scope) []LookupItem {
	if name == nil || scope == nil {
		return nil
	}
	b := c.Bindings()
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.lookup(b, name, scope)
}

func (c *LookupContext) lookup(b *Bindings, name cpp.Name, scope cpp.Scope) []LookupItem {
	_, qualified := name.(*cpp.QualifiedNameID)
	var candidates []LookupItem

	for ; scope != nil; scope = scope.EnclosingScope() {
		switch sc := scope.(type) {
		case *cpp.Block:
			if name.Identifier() == "" {
				continue
			}
			b.lookupInScope(name, sc, &candidates, nil, nil)
			if len(candidates) > 0 {
				if qualified {
					continue
				}
				return candidates
			}
			for _, m := range sc.Members() {
				u, ok := m.(*cpp.UsingNamespaceDirective)
				if !ok {
					continue
				}
				var ns cpp.Scope
				if enclosing := cpp.EnclosingNamespace(sc); enclosing != nil {
					ns = enclosing
				}
				if uu := c.lookupType(b, u.Name(), ns, nil, nil); uu != nil {
					candidates = uu.find(name)
					if len(candidates) > 0 {
						return candidates
					}
				}
			}
			if bindingScope := b.lookupTypeOfSymbol(sc, nil); bindingScope != nil {
				if bb := bindingScope.findBlock(sc); bb != nil {
					if candidates = c.lookupByUsing(b, name, bb); len(candidates) > 0 {
						return candidates
					}
					if candidates = bb.find(name); len(candidates) > 0 {
						return candidates
					}
				}
			}

		case *cpp.Function:
			b.lookupInScope(name, sc, &candidates, nil, nil)
			if len(candidates) > 0 {
				if qualified {
					continue
				}
				return candidates
			}
			if _, outOfLine := sc.Name().(*cpp.QualifiedNameID); outOfLine {
				binding := b.lookupTypeOfSymbol(sc, nil)
				seen := make(map[*ClassOrNamespace]struct{})
				for binding != nil {
					if _, ok := seen[binding]; ok {
						break
					}
					seen[binding] = struct{}{}
					if candidates = binding.find(name); len(candidates) > 0 {
						return candidates
					}
					binding = binding.parent
				}
			}

		case *cpp.ObjCMethod:
			b.lookupInScope(name, sc, &candidates, nil, nil)
			if len(candidates) > 0 {
				return candidates
			}

		case *cpp.Template:
			b.lookupInScope(name, sc, &candidates, nil, nil)
			if len(candidates) > 0 {
				if qualified {
					continue
				}
				return candidates
			}

		case *cpp.Namespace, *cpp.Class, *cpp.Enum:
			if e, ok := sc.(*cpp.Enum); ok && !e.Scoped {
				continue
			}
			if bindingScope := b.lookupTypeOfSymbol(sc, nil); bindingScope != nil {
				if candidates = bindingScope.find(name); len(candidates) > 0 {
					return candidates
				}
				if candidates = c.lookupByUsing(b, name, bindingScope); len(candidates) > 0 {
					return candidates
				}
			}
			if block := cpp.EnclosingBlock(sc); block != nil {
				if bb := b.lookupTypeOfSymbol(block, nil); bb != nil {
					if nested := bb.lookupTypeInBlock(sc.Name(), block); nested != nil {
						if candidates = nested.find(name); len(candidates) > 0 {
							return candidates
						}
					}
				}
			}

		case *cpp.ObjCClass, *cpp.ObjCProtocol:
			if bindingScope := b.lookupTypeOfSymbol(sc, nil); bindingScope != nil {
				if candidates = bindingScope.find(name); len(candidates) > 0 {
					return candidates
				}
			}
		}
	}
	return candidates
}

// lookupByUsing resolves name through the using declarations of the scopes
// bound to bindingScope.
func (c *LookupContext) lookupByUsing(b *Bindings, name cpp.Name, bindingScope *ClassOrNamespace) []LookupItem {
	switch n := name.(type) {
	case *cpp.NameID, *cpp.TemplateNameID:
		for _, s := range bindingScope.flushedSymbols() {
			scope, ok := s.(cpp.Scope)
			if !ok {
				continue
			}
			for _, m := range scope.Members() {
				u, ok := m.(*cpp.UsingDeclaration)
				if !ok {
					continue
				}
				q, ok := u.Name().(*cpp.QualifiedNameID)
				if !ok || q.Name() == nil || q.Identifier() == "" || q.Identifier() != n.Identifier() {
					continue
				}
				if candidates := bindingScope.find(q); len(candidates) > 0 {
					return candidates
				}
			}
		}
	case *cpp.QualifiedNameID:
		for _, s := range bindingScope.flushedSymbols() {
			scope, ok := s.(cpp.Scope)
			if !ok {
				continue
			}
			if base := c.lookupType(b, n.Base(), scope, nil, nil); base != nil {
				if candidates := c.lookupByUsing(b, n.Name(), base); len(candidates) > 0 {
					return candidates
				}
			}
		}
	}
	return nil
}

// LookupType resolves name as a type written inside scope. enclosing, when
// set, is tried before the global node when locating scope's node.
func (c *LookupContext) LookupType(name cpp.Name, scope cpp.Scope, enclosing *ClassOrNamespace) *ClassOrNamespace {
	if name == nil || scope == nil {
		return nil
	}
	b := c.Bindings()
	b.mu.Lock()
	defer b.mu.Unlock()
	return c.lookupType(b, name, scope, enclosing, nil)
}

// LookupTypeOfSymbol returns the node of the scope symbol opens.
func (c *LookupContext) LookupTypeOfSymbol(symbol cpp.Symbol, enclosing *ClassOrNamespace) *ClassOrNamespace {
	if symbol == nil {
		return nil
	}
	b := c.Bindings()
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookupTypeOfSymbol(symbol, enclosing)
}

// lookupType resolves typedefs declared in blocks through resolving, the set
// of typedefs already being followed on this path.
func (c *LookupContext) lookupType(b *Bindings, name cpp.Name, scope cpp.Scope, enclosing *ClassOrNamespace, resolving map[*cpp.Declaration]struct{}) *ClassOrNamespace {
	if scope == nil || name == nil {
		return nil
	}

	block, isBlock := scope.(*cpp.Block)
	if !isBlock {
		if bnd := b.lookupTypeOfSymbol(scope, enclosing); bnd != nil {
			return bnd.lookupType(name)
		}
		if class, ok := scope.(*cpp.Class); ok {
			if _, inBlock := class.EnclosingScope().(*cpp.Block); inBlock {
				if bb := c.lookupType(b, class.Name(), class.EnclosingScope(), enclosing, resolving); bb != nil {
					return bb.lookupType(name)
				}
			}
		}
		return nil
	}

	nameID, _ := name.(*cpp.NameID)
	for _, m := range block.Members() {
		switch m := m.(type) {
		case *cpp.UsingNamespaceDirective:
			var ns cpp.Scope
			if enclosingNS := cpp.EnclosingNamespace(block); enclosingNS != nil {
				ns = enclosingNS
			}
			if uu := c.lookupType(b, m.Name(), ns, nil, resolving); uu != nil {
				if r := uu.lookupType(name); r != nil {
					return r
				}
			}
		case *cpp.Declaration:
			if nameID == nil || m.Name() == nil || !m.Name().Match(nameID) {
				continue
			}
			if !m.IsTypedef() || !m.Type().IsValid() {
				continue
			}
			if _, ok := resolving[m]; ok {
				return nil
			}
			nt := m.Type().NamedType()
			if nt == nil {
				continue
			}
			next := make(map[*cpp.Declaration]struct{}, len(resolving)+1)
			for d := range resolving {
				next[d] = struct{}{}
			}
			next[m] = struct{}{}
			return c.lookupType(b, nt.Name, scope, nil, next)
		case *cpp.UsingDeclaration:
			if nameID == nil {
				continue
			}
			if q, ok := m.Name().(*cpp.QualifiedNameID); ok && q.Name() != nil && q.Name().Match(nameID) {
				return b.global.lookupType(q)
			}
		}
	}

	if bnd := b.lookupTypeOfSymbol(block, enclosing); bnd != nil {
		if nb := bnd.lookupTypeInBlock(name, block); nb != nil {
			return nb
		}
	}
	return c.lookupType(b, name, block.EnclosingScope(), nil, resolving)
}

// LookupParent returns the node of the scope enclosing symbol.
func (c *LookupContext) LookupParent(symbol cpp.Symbol) *ClassOrNamespace {
	if symbol == nil {
		return nil
	}
	b := c.Bindings()
	b.mu.Lock()
	defer b.mu.Unlock()
	path := Path(symbol, ShowInlineNamespaces)
	binding := b.global
	for _, name := range path {
		binding = binding.findType(name)
		if binding == nil {
			return nil
		}
	}
	return binding
}

// FollowTypedef resolves a typedef declaration to the declarations of the
// type it names, following chains of typedefs. It returns nil for anything
// but a typedef of a named type, and stops at cycles.
func (c *LookupContext) FollowTypedef(decl cpp.Symbol, scope cpp.Scope) []LookupItem {
	b := c.Bindings()
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[cpp.Symbol]struct{})
	var items []LookupItem
	for decl != nil && decl.IsTypedef() {
		if _, ok := seen[decl]; ok {
			return nil
		}
		seen[decl] = struct{}{}
		nt := decl.Type().NamedType()
		if nt == nil {
			return nil
		}
		lookupScope := scope
		if lookupScope == nil {
			lookupScope = decl.EnclosingScope()
		}
		items = c.lookup(b, nt.Name, lookupScope)
		if len(items) == 0 {
			return nil
		}
		next := items[0].Declaration
		if next == decl {
			return nil
		}
		decl = next
		scope = nil
	}
	return items
}

// MinimalName is the package-level MinimalName using the graph's Control.
func (c *LookupContext) MinimalName(symbol cpp.Symbol, target *ClassOrNamespace) cpp.Name {
	return MinimalName(symbol, target, c.Bindings().control)
}
