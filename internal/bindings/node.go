package bindings

import (
	"strings"

	"github.com/jward/cxxbind/internal/cpp"
)

// ClassOrNamespace is one node of the binding graph. It merges every symbol
// that denotes the same namespace, class or enum across the documents of a
// snapshot, and records the edges name lookup follows: using edges (using
// directives, base classes, inline namespaces) and named children.
//
// Members are processed lazily: a node keeps the symbols it has not yet
// visited in a todo queue and flushes the queue on first inspection.
type ClassOrNamespace struct {
	factory *Bindings
	parent  *ClassOrNamespace
	id      int
	name    cpp.Name

	kind    cpp.Kind
	hasKind bool

	symbols   []cpp.Symbol
	symbolSet map[cpp.Symbol]struct{}
	usings    []*ClassOrNamespace
	enums     []*cpp.Enum
	todo      []cpp.Symbol
	rootClass *cpp.Class

	nested      orderedMap[string, *ClassOrNamespace]
	blocks      orderedMap[*cpp.Block, *ClassOrNamespace]
	anonymouses orderedMap[int64, *ClassOrNamespace]
	declared    map[int64]struct{}

	specializations orderedMap[string, specialization]
	instantiations  map[string]*ClassOrNamespace

	templateID          *cpp.TemplateNameID
	instantiationOrigin *ClassOrNamespace
	expanded            bool

	scopeLookupCache map[string]cpp.Symbol

	consideredClasses   map[*cpp.Class]struct{}
	consideredTemplates map[string]struct{}
}

type specialization struct {
	id   *cpp.TemplateNameID
	node *ClassOrNamespace
}

func newNode(factory *Bindings, parent *ClassOrNamespace) *ClassOrNamespace {
	return &ClassOrNamespace{
		factory:             factory,
		parent:              parent,
		id:                  -1,
		symbolSet:           make(map[cpp.Symbol]struct{}),
		declared:            make(map[int64]struct{}),
		instantiations:      make(map[string]*ClassOrNamespace),
		consideredClasses:   make(map[*cpp.Class]struct{}),
		consideredTemplates: make(map[string]struct{}),
	}
}

func (n *ClassOrNamespace) globalNamespace() *ClassOrNamespace {
	e := n
	for e.parent != nil {
		e = e.parent
	}
	return e
}

func (n *ClassOrNamespace) flush() {
	if len(n.todo) == 0 {
		return
	}
	todo := n.todo
	n.todo = nil
	for _, s := range todo {
		n.factory.process(s, n)
	}
}

func (n *ClassOrNamespace) flushedSymbols() []cpp.Symbol {
	n.flush()
	return n.symbols
}

func (n *ClassOrNamespace) flushedUsings() []*ClassOrNamespace {
	n.flush()
	return n.usings
}

func (n *ClassOrNamespace) addTodo(s cpp.Symbol) {
	n.todo = append(n.todo, s)
}

// addSymbol records s and reports whether it was new. The first symbol
// establishes the node's kind; later symbols of another kind are recorded
// without changing it.
func (n *ClassOrNamespace) addSymbol(s cpp.Symbol) bool {
	if s == nil {
		return false
	}
	if _, ok := n.symbolSet[s]; ok {
		return false
	}
	n.symbolSet[s] = struct{}{}
	n.symbols = append(n.symbols, s)
	if !n.hasKind {
		n.kind = nodeKind(s)
		n.hasKind = true
	}
	if c, ok := s.(*cpp.Class); ok && n.rootClass == nil && n.kind == cpp.KindClass {
		n.rootClass = c
	}
	n.scopeLookupCache = nil
	return true
}

func nodeKind(s cpp.Symbol) cpp.Kind {
	if s.Kind() == cpp.KindForwardClassDeclaration {
		return cpp.KindClass
	}
	return s.Kind()
}

func (n *ClassOrNamespace) addSymbols(symbols []cpp.Symbol) {
	for _, s := range symbols {
		n.addSymbol(s)
	}
}

func (n *ClassOrNamespace) addUnscopedEnum(e *cpp.Enum) {
	for _, have := range n.enums {
		if have == e {
			return
		}
	}
	n.enums = append(n.enums, e)
}

func (n *ClassOrNamespace) addUsing(u *ClassOrNamespace) {
	if u == nil || u == n {
		return
	}
	for _, have := range n.usings {
		if have == u {
			return
		}
	}
	n.usings = append(n.usings, u)
}

// addNestedType binds alias to e unless the name is already bound.
func (n *ClassOrNamespace) addNestedType(alias cpp.Name, e *ClassOrNamespace) {
	if alias == nil || e == nil {
		return
	}
	if _, anon := alias.(*cpp.AnonymousNameID); anon {
		return
	}
	id := alias.Identifier()
	if id == "" {
		return
	}
	if _, ok := n.nested.get(id); ok {
		return
	}
	n.nested.set(id, e)
}

func (n *ClassOrNamespace) markDeclared(anon *cpp.AnonymousNameID) {
	n.declared[anon.Serial()] = struct{}{}
}

func (n *ClassOrNamespace) isDeclared(serial int64) bool {
	_, ok := n.declared[serial]
	return ok
}

func (n *ClassOrNamespace) findOrCreateNestedAnonymousType(anon *cpp.AnonymousNameID) *ClassOrNamespace {
	if e, ok := n.anonymouses.get(anon.Serial()); ok {
		return e
	}
	e := n.factory.allocate(n)
	e.name = anon
	n.anonymouses.set(anon.Serial(), e)
	return e
}

// findOrCreateType returns the child bound to name, creating it when
// missing. Qualified names are resolved component by component, creating
// intermediate nodes as needed.
func (n *ClassOrNamespace) findOrCreateType(name cpp.Name, origin *ClassOrNamespace, class *cpp.Class) *ClassOrNamespace {
	if name == nil {
		return n
	}
	if origin == nil {
		origin = n
	}
	if q, ok := name.(*cpp.QualifiedNameID); ok {
		if q.Base() == nil {
			return n.globalNamespace().findOrCreateType(q.Name(), origin, class)
		}
		base := n.findOrCreateType(q.Base(), origin, nil)
		if base == nil {
			return nil
		}
		return base.findOrCreateType(q.Name(), origin, class)
	}
	if !cpp.IsSimpleName(name) {
		return nil
	}
	e := n.nestedType(name, make(map[*ClassOrNamespace]struct{}), origin)
	if e == nil {
		e = n.factory.allocate(n)
		e.name = name
		if class != nil && e.rootClass == nil {
			e.rootClass = class
		}
		n.nested.set(name.Identifier(), e)
	}
	return e
}

// lookupType resolves name to a node, escalating to enclosing nodes.
func (n *ClassOrNamespace) lookupType(name cpp.Name) *ClassOrNamespace {
	if name == nil {
		return nil
	}
	return n.lookupTypeHelper(name, make(map[*ClassOrNamespace]struct{}), true, n)
}

// findType resolves name in n and its using targets only.
func (n *ClassOrNamespace) findType(name cpp.Name) *ClassOrNamespace {
	if name == nil {
		return nil
	}
	return n.lookupTypeHelper(name, make(map[*ClassOrNamespace]struct{}), false, n)
}

func (n *ClassOrNamespace) lookupTypeHelper(name cpp.Name, processed map[*ClassOrNamespace]struct{}, searchInEnclosingScope bool, origin *ClassOrNamespace) *ClassOrNamespace {
	if q, ok := name.(*cpp.QualifiedNameID); ok {
		inner := make(map[*ClassOrNamespace]struct{})
		if q.Base() == nil {
			return n.globalNamespace().lookupTypeHelper(q.Name(), inner, true, origin)
		}
		if base := n.lookupTypeHelper(q.Base(), processed, true, origin); base != nil {
			return base.lookupTypeHelper(q.Name(), inner, false, origin)
		}
		return nil
	}

	if _, seen := processed[n]; seen {
		return nil
	}
	processed[n] = struct{}{}

	if cpp.IsSimpleName(name) {
		n.flush()
		if id := name.Identifier(); id != "" {
			for _, s := range n.symbols {
				if class, ok := s.(*cpp.Class); ok && class.Identifier() == id {
					if _, tmpl := name.(*cpp.TemplateNameID); !tmpl {
						return n
					}
				}
			}
			for _, e := range n.enums {
				if e.Identifier() == id {
					return n
				}
			}
		}

		if e := n.nestedType(name, processed, origin); e != nil {
			return e
		}

		for _, u := range n.usings {
			if r := u.lookupTypeHelper(name, processed, false, origin); r != nil {
				return r
			}
		}
		for _, a := range n.anonymouses.snapshotValues() {
			if a.name != nil {
				if anon, ok := a.name.(*cpp.AnonymousNameID); ok && n.isDeclared(anon.Serial()) {
					continue
				}
			}
			if r := a.lookupTypeHelper(name, processed, false, origin); r != nil {
				return r
			}
		}
	}

	if n.parent != nil && searchInEnclosingScope {
		return n.parent.lookupTypeHelper(name, processed, true, origin)
	}
	return nil
}

// lookup resolves name to declarations. Direct members win; when there are
// none the using edges are searched breadth first and every match at the
// nearest level is returned. With searchInEnclosingScope the walk continues
// in enclosing nodes until something is found.
func (n *ClassOrNamespace) lookup(name cpp.Name, searchInEnclosingScope bool) []LookupItem {
	if name == nil {
		return nil
	}

	if q, ok := name.(*cpp.QualifiedNameID); ok {
		if q.Base() == nil {
			return n.globalNamespace().find(q.Name())
		}
		binding := n.lookupType(q.Base())
		if binding == nil {
			return nil
		}
		result := binding.find(q.Name())

		var fullName []cpp.Name
		addNames(name, &fullName, false)
		seen := make(map[*ClassOrNamespace]struct{})
		var match cpp.Symbol
		for p := binding.parent; p != nil && match == nil; p = p.parent {
			if _, ok := seen[p]; ok {
				break
			}
			seen[p] = struct{}{}
			match = p.lookupInScope(fullName)
		}
		if match != nil && !containsDeclaration(result, match) {
			result = append(result, LookupItem{Declaration: match, Binding: binding})
		}
		return result
	}

	processed := make(map[*ClassOrNamespace]struct{})
	walked := make(map[*ClassOrNamespace]struct{})
	for b := n; b != nil; b = b.parent {
		if _, ok := walked[b]; ok {
			break
		}
		walked[b] = struct{}{}
		result := b.searchWithUsings(name, processed)
		if len(result) > 0 || !searchInEnclosingScope {
			return result
		}
	}
	return nil
}

func (n *ClassOrNamespace) find(name cpp.Name) []LookupItem {
	return n.lookup(name, false)
}

func (n *ClassOrNamespace) searchWithUsings(name cpp.Name, processed map[*ClassOrNamespace]struct{}) []LookupItem {
	if _, ok := processed[n]; ok {
		return nil
	}
	processed[n] = struct{}{}

	var frontier []*ClassOrNamespace
	result := n.directMatches(name, processed, &frontier)
	if len(result) > 0 {
		return result
	}
	for len(frontier) > 0 {
		var next []*ClassOrNamespace
		for _, u := range frontier {
			if _, ok := processed[u]; ok {
				continue
			}
			processed[u] = struct{}{}
			result = append(result, u.directMatches(name, processed, &next)...)
		}
		if len(result) > 0 {
			return result
		}
		frontier = next
	}
	return nil
}

// directMatches collects the declarations of name in n itself, including
// undeclared anonymous children whose members are visible in n. The using
// targets seen along the way are appended to usings.
func (n *ClassOrNamespace) directMatches(name cpp.Name, processed map[*ClassOrNamespace]struct{}, usings *[]*ClassOrNamespace) []LookupItem {
	var result []LookupItem
	var templateID *cpp.TemplateNameID
	if n.templateID != nil && !n.expanded {
		templateID = n.templateID
	}

	id := name.Identifier()
	for _, s := range n.flushedSymbols() {
		if s.IsFriend() {
			continue
		}
		if _, ok := s.(*cpp.UsingNamespaceDirective); ok {
			continue
		}
		scope, ok := s.(cpp.Scope)
		if !ok {
			continue
		}
		if class, ok := s.(*cpp.Class); ok && id != "" && class.Identifier() == id {
			if _, tmpl := name.(*cpp.TemplateNameID); !tmpl {
				result = append(result, LookupItem{Declaration: class, Scope: class, Binding: n})
			}
		}
		n.factory.lookupInScope(name, scope, &result, templateID, n)
	}
	for _, e := range n.enums {
		n.factory.lookupInScope(name, e, &result, templateID, n)
	}
	*usings = append(*usings, n.usings...)

	for _, serial := range n.anonymouses.snapshotKeys() {
		if n.isDeclared(serial) {
			continue
		}
		a, _ := n.anonymouses.get(serial)
		if _, ok := processed[a]; ok {
			continue
		}
		processed[a] = struct{}{}
		result = append(result, a.directMatches(name, processed, usings)...)
	}
	return result
}

// lookupInScope finds the member of n's scopes whose fully qualified name is
// fullName. It matches out-of-line definitions against their qualified
// spelling.
func (n *ClassOrNamespace) lookupInScope(fullName []cpp.Name) cpp.Symbol {
	symbols := n.flushedSymbols()
	if n.scopeLookupCache == nil {
		n.scopeLookupCache = make(map[string]cpp.Symbol)
		for _, s := range symbols {
			scope, ok := s.(cpp.Scope)
			if !ok {
				continue
			}
			for _, m := range scope.Members() {
				key := namesKey(FullyQualifiedName(m, ShowInlineNamespaces))
				if _, dup := n.scopeLookupCache[key]; !dup {
					n.scopeLookupCache[key] = m
				}
			}
		}
	}
	return n.scopeLookupCache[namesKey(fullName)]
}

func namesKey(names []cpp.Name) string {
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name.Key()
	}
	return strings.Join(parts, "::")
}

func containsDeclaration(items []LookupItem, s cpp.Symbol) bool {
	for _, item := range items {
		if item.Declaration == s {
			return true
		}
	}
	return false
}

func (n *ClassOrNamespace) findBlock(block *cpp.Block) *ClassOrNamespace {
	return n.findBlockHelper(block, make(map[*ClassOrNamespace]struct{}), true)
}

func (n *ClassOrNamespace) findBlockHelper(block *cpp.Block, processed map[*ClassOrNamespace]struct{}, searchInEnclosingScope bool) *ClassOrNamespace {
	for b := n; b != nil; b = b.parent {
		if _, ok := processed[b]; ok {
			break
		}
		processed[b] = struct{}{}
		b.flush()
		if found, ok := b.blocks.get(block); ok {
			return found
		}
		for _, child := range b.blocks.snapshotValues() {
			if found := child.findBlockHelper(block, processed, false); found != nil {
				return found
			}
		}
		if !searchInEnclosingScope {
			break
		}
	}
	return nil
}

// lookupTypeInBlock resolves name in the node bound to block.
func (n *ClassOrNamespace) lookupTypeInBlock(name cpp.Name, block *cpp.Block) *ClassOrNamespace {
	n.flush()
	if b, ok := n.blocks.get(block); ok {
		return b.lookupTypeHelper(name, make(map[*ClassOrNamespace]struct{}), false, n)
	}
	for _, child := range n.blocks.snapshotValues() {
		if found := child.lookupTypeInBlock(name, block); found != nil {
			return found
		}
	}
	return nil
}

// nestedType returns the direct child bound to name. Template-ids resolve to
// specializations or instantiations of the child; non-template classes get
// their unresolved base classes added as using edges.
func (n *ClassOrNamespace) nestedType(name cpp.Name, processed map[*ClassOrNamespace]struct{}, origin *ClassOrNamespace) *ClassOrNamespace {
	n.flush()

	if anon, ok := name.(*cpp.AnonymousNameID); ok {
		return n.findOrCreateNestedAnonymousType(anon)
	}
	id := name.Identifier()
	if id == "" {
		return nil
	}
	reference, ok := n.nested.get(id)
	if !ok {
		return nil
	}
	base := reference

	templateID, _ := name.(*cpp.TemplateNameID)
	if templateID != nil {
		// An alias template resolves to the aliased node.
		if len(reference.flushedSymbols()) == 0 && len(reference.usings) > 0 {
			reference = reference.usings[0]
			base = reference
		}
		key := templateID.Key()
		if templateID.IsSpecialization() {
			if sp, ok := reference.specializations.get(key); ok {
				return sp.node
			}
			sp := n.factory.allocate(reference)
			sp.name = templateID
			reference.specializations.set(key, specialization{id: templateID, node: sp})
			return sp
		}
		if inst, ok := reference.instantiations[key]; ok {
			return inst
		}
		if sp, ok := reference.specializations.get(key); ok {
			reference = sp.node
		} else if sp := findSpecialization(templateID, &reference.specializations); sp != nil {
			reference = sp
		}
	}

	var referenceClass *cpp.Class
	var allBases []cpp.Name
	for _, s := range reference.flushedSymbols() {
		if class, ok := s.(*cpp.Class); ok {
			if referenceClass == nil {
				referenceClass = class
			}
			for _, bc := range class.BaseClasses() {
				allBases = append(allBases, bc.Name())
			}
		}
	}
	if referenceClass == nil {
		return reference
	}

	if templateID == nil {
		if _, ok := n.consideredClasses[referenceClass]; ok {
			return reference
		}
	} else if _, ok := n.consideredTemplates[templateID.Key()]; ok {
		return reference
	}

	knownUsings := make(map[*ClassOrNamespace]struct{}, len(reference.usings))
	for _, u := range reference.usings {
		knownUsings[u] = struct{}{}
	}

	if templateID != nil {
		if n.factory.instantiationDepth >= maxInstantiationDepth {
			return reference
		}
		return n.instantiate(templateID, base, reference, referenceClass, allBases, knownUsings, processed, origin)
	}

	if len(allBases) == 0 || len(allBases) == len(knownUsings) {
		return reference
	}

	n.consideredClasses[referenceClass] = struct{}{}
	defer delete(n.consideredClasses, referenceClass)

	for _, baseName := range allBases {
		var baseBinding *ClassOrNamespace
		switch bn := baseName.(type) {
		case *cpp.NameID, *cpp.TemplateNameID:
			baseBinding = n.lookupType(bn)
		case *cpp.QualifiedNameID:
			binding := n
			if bn.Base() != nil {
				binding = n.lookupType(bn.Base())
			}
			if binding != nil {
				baseBinding = binding.lookupType(bn.Name())
			}
		}
		if baseBinding == nil || baseBinding == reference {
			continue
		}
		if _, ok := knownUsings[baseBinding]; !ok {
			reference.addUsing(baseBinding)
			knownUsings[baseBinding] = struct{}{}
		}
	}
	return reference
}
