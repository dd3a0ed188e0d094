// Package bindings builds the binding graph of a snapshot and answers C++
// name lookup queries against it.
//
// A Bindings value merges the namespaces, classes and enums declared across
// every document of a snapshot into ClassOrNamespace nodes. Nodes are
// populated lazily: construction only records the top-level declarations of
// each document, and a node processes its pending members the first time a
// lookup reaches it.
//
// All nodes of one graph share a single mutex. Exported methods of Bindings,
// ClassOrNamespace and LookupContext take it, so a graph may be queried from
// several goroutines.
package bindings

import (
	"context"
	"sync"

	"github.com/jward/cxxbind/internal/cpp"
)

// DocumentScope selects which documents contribute to a graph.
type DocumentScope int

const (
	// ScopeSnapshot binds the anchor document and its includes first, then
	// every other document of the snapshot in file order.
	ScopeSnapshot DocumentScope = iota
	// ScopeTranslationUnit binds the anchor document and the documents it
	// transitively includes.
	ScopeTranslationUnit
)

func (s DocumentScope) String() string {
	if s == ScopeTranslationUnit {
		return "translation_unit"
	}
	return "snapshot"
}

// ParseDocumentScope is the inverse of DocumentScope.String.
func ParseDocumentScope(s string) (DocumentScope, bool) {
	switch s {
	case "snapshot", "":
		return ScopeSnapshot, true
	case "translation_unit", "translation-unit", "tu":
		return ScopeTranslationUnit, true
	}
	return ScopeSnapshot, false
}

// Option configures New.
type Option func(*Bindings)

// WithExpandTemplates makes instantiations clone the template's members with
// the arguments substituted instead of sharing the template's symbols.
func WithExpandTemplates(expand bool) Option {
	return func(b *Bindings) { b.expandTemplates = expand }
}

// WithDocumentScope selects the contributing documents.
func WithDocumentScope(scope DocumentScope) Option {
	return func(b *Bindings) { b.scope = scope }
}

// WithEagerFlush processes every pending member during New.
func WithEagerFlush(eager bool) Option {
	return func(b *Bindings) { b.eager = eager }
}

// Bindings is the binding graph of one snapshot.
type Bindings struct {
	mu sync.Mutex

	snapshot        *cpp.Snapshot
	control         *cpp.Control
	expandTemplates bool
	scope           DocumentScope
	eager           bool

	global  *ClassOrNamespace
	current *ClassOrNamespace
	nodes   []*ClassOrNamespace

	instantiationDepth int
}

// New builds the graph for thisDocument within snap. It checks ctx between
// documents and, with WithEagerFlush, between nodes; on cancellation it
// returns ctx.Err() and no graph.
func New(ctx context.Context, thisDocument *cpp.Document, snap *cpp.Snapshot, opts ...Option) (*Bindings, error) {
	b := &Bindings{
		snapshot: snap,
		control:  cpp.NewControl(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.global = b.allocate(nil)
	b.current = b.global

	processed := make(map[*cpp.Namespace]struct{})
	if err := b.processDocument(ctx, thisDocument, processed); err != nil {
		return nil, err
	}
	if b.scope == ScopeSnapshot {
		for _, doc := range snap.Documents() {
			if err := b.processDocument(ctx, doc, processed); err != nil {
				return nil, err
			}
		}
	}
	if b.eager {
		if err := b.flushAll(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *Bindings) processDocument(ctx context.Context, doc *cpp.Document, processed map[*cpp.Namespace]struct{}) error {
	if doc == nil {
		return nil
	}
	gns := doc.GlobalNamespace()
	if _, ok := processed[gns]; ok {
		return nil
	}
	processed[gns] = struct{}{}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, inc := range doc.Includes() {
		if err := b.processDocument(ctx, b.snapshot.Document(inc.FileName), processed); err != nil {
			return err
		}
	}
	b.accept(gns)
	return nil
}

func (b *Bindings) flushAll(ctx context.Context) error {
	for i := 0; i < len(b.nodes); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.nodes[i].flush()
	}
	return nil
}

// allocate creates a node and registers it with the graph.
func (b *Bindings) allocate(parent *ClassOrNamespace) *ClassOrNamespace {
	n := newNode(b, parent)
	b.register(n)
	return n
}

func (b *Bindings) register(n *ClassOrNamespace) {
	n.id = len(b.nodes)
	b.nodes = append(b.nodes, n)
}

// process visits s with node as the current binding.
func (b *Bindings) process(s cpp.Symbol, node *ClassOrNamespace) {
	previous := b.current
	b.current = node
	b.accept(s)
	b.current = previous
}

func (b *Bindings) enqueue(s cpp.Symbol) {
	b.current.addTodo(s)
}

// enter binds s under the current node and makes the result current. It
// returns the previous node and whether s was new to the entered node.
func (b *Bindings) enter(s cpp.Symbol) (*ClassOrNamespace, bool) {
	previous := b.current
	class, _ := s.(*cpp.Class)
	entity := b.current.findOrCreateType(s.Name(), nil, class)
	if entity == nil {
		return previous, false
	}
	added := entity.addSymbol(s)
	b.current = entity
	return previous, added
}

// enterGlobal is enter for Objective-C declarations, which always live in
// the global namespace.
func (b *Bindings) enterGlobal(s cpp.Symbol) (*ClassOrNamespace, bool) {
	previous := b.current
	entity := b.global.findOrCreateType(s.Name(), nil, nil)
	if entity == nil {
		return previous, false
	}
	added := entity.addSymbol(s)
	b.current = entity
	return previous, added
}

func (b *Bindings) accept(s cpp.Symbol) {
	switch s := s.(type) {
	case *cpp.Template:
		if d := s.Declaration(); d != nil {
			b.accept(d)
		}
	case *cpp.Namespace:
		b.visitNamespace(s)
	case *cpp.Class:
		b.visitClass(s)
	case *cpp.ForwardClassDeclaration:
		if !s.IsFriend() {
			previous, _ := b.enter(s)
			b.current = previous
		}
	case *cpp.Enum:
		if s.Scoped {
			previous, _ := b.enter(s)
			b.current = previous
		} else {
			b.current.addUnscopedEnum(s)
		}
	case *cpp.Declaration:
		b.visitDeclaration(s)
	case *cpp.Function:
		b.visitFunction(s)
	case *cpp.Block:
		b.visitBlock(s)
	case *cpp.BaseClass:
		if base := b.current.lookupType(s.Name()); base != nil {
			b.current.addUsing(base)
		}
	case *cpp.UsingNamespaceDirective:
		if e := b.current.lookupType(s.Name()); e != nil {
			b.current.addUsing(e)
		}
	case *cpp.UsingDeclaration:
		b.visitUsingDeclaration(s)
	case *cpp.NamespaceAlias:
		if s.Identifier() == "" || !cpp.IsSimpleName(s.Name()) {
			return
		}
		if e := b.current.lookupType(s.NamespaceName); e != nil {
			b.current.addNestedType(s.Name(), e)
		}
	case *cpp.ObjCClass:
		previous, added := b.enterGlobal(s)
		if added {
			if s.BaseClass != nil {
				b.enqueue(s.BaseClass)
			}
			for _, p := range s.Protocols() {
				b.enqueue(p)
			}
			for _, m := range s.Members() {
				b.enqueue(m)
			}
		}
		b.current = previous
	case *cpp.ObjCProtocol:
		previous, added := b.enterGlobal(s)
		if added {
			for _, p := range s.Protocols() {
				b.enqueue(p)
			}
			for _, m := range s.Members() {
				b.enqueue(m)
			}
		}
		b.current = previous
	case *cpp.ObjCBaseClass:
		if base := b.global.lookupType(s.Name()); base != nil {
			b.current.addUsing(base)
		}
	case *cpp.ObjCBaseProtocol:
		if base := b.global.lookupType(s.Name()); base != nil {
			b.current.addUsing(base)
		}
	case *cpp.ObjCForwardClassDeclaration, *cpp.ObjCForwardProtocolDeclaration:
		previous, _ := b.enterGlobal(s)
		b.current = previous
	}
}

func (b *Bindings) visitNamespace(ns *cpp.Namespace) {
	previous, added := b.enter(ns)
	if added {
		for _, m := range ns.Members() {
			b.enqueue(m)
		}
		if ns.Inline && previous != b.current {
			previous.addUsing(b.current)
		}
	}
	b.current = previous
}

func (b *Bindings) visitClass(class *cpp.Class) {
	previous := b.current
	name := class.Name()
	if name == nil {
		name = b.control.AnonymousNameID()
	}

	var binding *ClassOrNamespace
	if _, qualified := name.(*cpp.QualifiedNameID); qualified {
		binding = b.current.lookupType(name)
	}
	if binding == nil {
		binding = b.current.findOrCreateType(name, nil, class)
	}
	if binding == nil {
		return
	}

	b.current = binding
	if binding.addSymbol(class) {
		for _, base := range class.BaseClasses() {
			b.enqueue(base)
		}
		for _, m := range class.Members() {
			b.enqueue(m)
		}
	}
	b.current = previous
}

func (b *Bindings) visitDeclaration(decl *cpp.Declaration) {
	ty := decl.Type()
	if decl.IsTypedef() && decl.Identifier() != "" && !ty.Const && !ty.Volatile {
		if nt := ty.NamedType(); nt != nil {
			if e := b.current.lookupType(nt.Name); e != nil {
				b.current.addNestedType(decl.Name(), e)
			}
		} else if class := ty.ClassType(); class != nil {
			if id, ok := decl.Name().(*cpp.NameID); ok {
				if binding := b.current.findOrCreateType(id, nil, class); binding != nil {
					binding.addSymbol(class)
				}
			}
		}
	}
	if class := ty.ClassType(); class != nil {
		if anon, ok := class.Name().(*cpp.AnonymousNameID); ok {
			b.current.markDeclared(anon)
		}
	}
}

func (b *Bindings) visitFunction(fn *cpp.Function) {
	previous := b.current
	binding := b.lookupTypeOfSymbol(fn, previous)
	if binding == nil {
		return
	}
	b.current = binding
	for _, m := range fn.Members() {
		if block, ok := m.(*cpp.Block); ok {
			b.visitBlock(block)
		}
	}
	b.current = previous
}

// visitBlock binds a block eagerly. The block's node is kept only when it
// declares something lookups must reach: a nested block, a type or an enum.
func (b *Bindings) visitBlock(block *cpp.Block) {
	previous := b.current
	binding := newNode(b, previous)
	binding.addSymbol(block)
	for _, m := range block.Members() {
		b.process(m, binding)
	}
	if binding.blocks.len() > 0 || binding.nested.len() > 0 || len(binding.enums) > 0 || binding.anonymouses.len() > 0 {
		b.register(binding)
		previous.blocks.set(block, binding)
	}
	b.current = previous
}

func (b *Bindings) visitUsingDeclaration(u *cpp.UsingDeclaration) {
	q, ok := u.Name().(*cpp.QualifiedNameID)
	if !ok {
		return
	}
	unqualified, ok := q.Name().(*cpp.NameID)
	if !ok {
		return
	}
	delegate := b.current.lookupType(q)
	if delegate == nil {
		return
	}
	if binding := b.current.findOrCreateType(unqualified, nil, nil); binding != nil {
		binding.addUsing(delegate)
	}
}

// lookupTypeOfSymbol returns the node of the scope that encloses symbol's
// definition, as given by its path.
func (b *Bindings) lookupTypeOfSymbol(symbol cpp.Symbol, enclosing *ClassOrNamespace) *ClassOrNamespace {
	return b.lookupPath(Path(symbol, ShowInlineNamespaces), enclosing)
}

func (b *Bindings) lookupPath(path []cpp.Name, enclosing *ClassOrNamespace) *ClassOrNamespace {
	if len(path) == 0 {
		return b.global
	}
	if enclosing != nil {
		if found := enclosing.lookupType(path[len(path)-1]); found != nil {
			return found
		}
	}
	found := b.global.lookupType(path[0])
	for i := 1; found != nil && i < len(path); i++ {
		found = found.findType(path[i])
	}
	return found
}

// lookupInScope appends the members of scope named name to result.
// templateID, when set, supplies arguments for members of a class template.
func (b *Bindings) lookupInScope(name cpp.Name, scope cpp.Scope, result *[]LookupItem, templateID *cpp.TemplateNameID, binding *ClassOrNamespace) {
	if name == nil {
		return
	}
	if op, ok := name.(*cpp.OperatorNameID); ok {
		for _, m := range scope.Members() {
			if m.IsFriend() || m.Name() == nil {
				continue
			}
			if m.Name().Match(op) {
				*result = append(*result, LookupItem{Declaration: m, Scope: scope, Binding: binding})
			}
		}
		return
	}

	id := name.Identifier()
	if id == "" {
		return
	}
	for _, s := range scope.Find(id) {
		if s.IsFriend() {
			continue
		}
		if _, ok := s.(*cpp.UsingNamespaceDirective); ok {
			continue
		}
		if _, ok := s.Name().(*cpp.QualifiedNameID); ok {
			continue
		}

		item := LookupItem{Declaration: s, Scope: scope, Binding: binding}
		switch sym := s.(type) {
		case *cpp.NamespaceAlias:
			if binding != nil {
				if target := binding.lookupType(name); target != nil {
					if syms := target.flushedSymbols(); len(syms) > 0 {
						item.Type = syms[0].Type()
					}
				}
			}
		case *cpp.Template:
			if tn, ok := name.(*cpp.TemplateNameID); ok {
				if inst := b.instantiateTemplateFunction(tn, sym); inst != nil {
					item.Type = inst.Type()
				}
			}
		case *cpp.Declaration, *cpp.Function:
			if templateID != nil {
				if ty := b.instantiateItemType(templateID, s); ty.IsValid() {
					item.Type = ty
				}
			}
		}
		*result = append(*result, item)
	}
}
