package store

import (
	"fmt"
	"sort"

	"github.com/jward/cxxbind/internal/cpp"
)

// EncodeDocument flattens a document into include and symbol rows. Symbols
// are numbered with fake (negative) IDs in preorder, so parents precede
// children and ParentID and TypeRef refer to fake IDs. FileID is left zero.
func EncodeDocument(doc *cpp.Document) ([]*Include, []*Symbol) {
	var incs []*Include
	for i, inc := range doc.Includes() {
		incs = append(incs, &Include{Path: inc.FileName, Line: inc.Line, Ordinal: i})
	}
	e := &encoder{ids: make(map[cpp.Symbol]int64), next: -1}
	for i, m := range doc.GlobalNamespace().Members() {
		e.symbol(m, nil, i)
	}
	return incs, e.rows
}

type encoder struct {
	rows []*Symbol
	ids  map[cpp.Symbol]int64
	next int64
}

func (e *encoder) symbol(s cpp.Symbol, parent *int64, ordinal int) {
	row := &Symbol{
		ID:         e.next,
		ParentID:   parent,
		Ordinal:    ordinal,
		Kind:       s.Kind().String(),
		Line:       s.Line(),
		Col:        s.Column(),
		Storage:    s.Storage().String(),
		Visibility: s.Visibility().String(),
	}
	e.next--
	e.ids[s] = row.ID
	e.rows = append(e.rows, row)

	if _, isTemplate := s.(*cpp.Template); !isTemplate {
		row.Name, row.Extra.Anonymous, row.Extra.Specialization = encodeName(s.Name())
	}

	switch sym := s.(type) {
	case *cpp.Namespace:
		row.Extra.Inline = sym.Inline
	case *cpp.Class:
		row.Extra.ClassKey = sym.Key.String()
	case *cpp.Enum:
		row.Extra.Scoped = sym.Scoped
	case *cpp.BaseClass:
		row.Extra.Virtual = sym.Virtual
	case *cpp.NamespaceAlias:
		if sym.NamespaceName != nil {
			row.Extra.Target = sym.NamespaceName.String()
		}
	case *cpp.Declaration, *cpp.Argument:
		e.setType(row, sym.Type())
	case *cpp.TypenameArgument:
		e.setType(row, sym.Default)
	case *cpp.Function:
		e.setType(row, sym.ReturnType)
	case *cpp.ObjCMethod:
		e.setType(row, sym.ReturnType)
	}

	id := row.ID
	n := 0
	child := func(c cpp.Symbol) {
		e.symbol(c, &id, n)
		n++
	}
	switch sym := s.(type) {
	case *cpp.Class:
		for _, b := range sym.BaseClasses() {
			child(b)
		}
	case *cpp.ObjCClass:
		if sym.BaseClass != nil {
			child(sym.BaseClass)
		}
		for _, p := range sym.Protocols() {
			child(p)
		}
	case *cpp.ObjCProtocol:
		for _, p := range sym.Protocols() {
			child(p)
		}
	}
	if scope, ok := s.(cpp.Scope); ok {
		for _, m := range scope.Members() {
			child(m)
		}
	}
}

// setType stores ty as text, or as a reference when ty is a symbol already
// encoded. Types that embed a symbol below the top level are not stored.
func (e *encoder) setType(row *Symbol, ty cpp.FullySpecifiedType) {
	if !ty.IsValid() {
		return
	}
	if sym, ok := ty.Type.(cpp.Symbol); ok {
		if id, ok := e.ids[sym]; ok {
			ref := id
			row.Extra.TypeRef = &ref
		}
		return
	}
	if embedsSymbol(ty) {
		return
	}
	row.Type = ty.String()
}

func embedsSymbol(ty cpp.FullySpecifiedType) bool {
	switch t := ty.Type.(type) {
	case *cpp.PointerType:
		return embedsSymbol(t.Elem)
	case *cpp.ReferenceType:
		return embedsSymbol(t.Elem)
	case *cpp.ArrayType:
		return embedsSymbol(t.Elem)
	case *cpp.NamedType, *cpp.BuiltinType, nil:
		return false
	}
	return true
}

func encodeName(n cpp.Name) (text string, anonymous, specialization bool) {
	switch n := n.(type) {
	case nil:
		return "", false, false
	case *cpp.AnonymousNameID:
		return "", true, false
	case *cpp.TemplateNameID:
		return n.String(), false, n.IsSpecialization()
	case *cpp.QualifiedNameID:
		if t, ok := n.Name().(*cpp.TemplateNameID); ok {
			return n.String(), false, t.IsSpecialization()
		}
	}
	return n.String(), false, false
}

// DecodeDocument rebuilds a document from its rows. Rows may come in any
// order; siblings are attached by Ordinal.
func DecodeDocument(path string, control *cpp.Control, incs []*Include, rows []*Symbol) (*cpp.Document, error) {
	doc := cpp.NewDocument(path, control)
	for _, inc := range incs {
		doc.AddInclude(inc.Path, inc.Line)
	}

	children := make(map[int64][]*Symbol)
	var roots []*Symbol
	known := make(map[int64]bool, len(rows))
	for _, r := range rows {
		known[r.ID] = true
	}
	for _, r := range rows {
		if r.ParentID == nil {
			roots = append(roots, r)
			continue
		}
		if !known[*r.ParentID] {
			return nil, fmt.Errorf("decode %s: symbol %d: unknown parent %d", path, r.ID, *r.ParentID)
		}
		children[*r.ParentID] = append(children[*r.ParentID], r)
	}

	d := &decoder{path: path, control: doc.Control(), children: children, built: make(map[int64]cpp.Symbol)}
	for _, r := range sortRows(roots) {
		if err := d.build(r, doc.GlobalNamespace()); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func sortRows(rows []*Symbol) []*Symbol {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ordinal != rows[j].Ordinal {
			return rows[i].Ordinal < rows[j].Ordinal
		}
		return rows[i].ID < rows[j].ID
	})
	return rows
}

type decoder struct {
	path     string
	control  *cpp.Control
	children map[int64][]*Symbol
	built    map[int64]cpp.Symbol
}

func (d *decoder) build(r *Symbol, parent cpp.Symbol) error {
	sym, err := d.symbol(r)
	if err != nil {
		return fmt.Errorf("decode %s: symbol %d: %w", d.path, r.ID, err)
	}
	if err := attach(parent, sym); err != nil {
		return fmt.Errorf("decode %s: symbol %d: %w", d.path, r.ID, err)
	}
	d.built[r.ID] = sym
	for _, c := range sortRows(d.children[r.ID]) {
		if err := d.build(c, sym); err != nil {
			return err
		}
	}
	return nil
}

func attach(parent, sym cpp.Symbol) error {
	switch p := parent.(type) {
	case *cpp.Class:
		if b, ok := sym.(*cpp.BaseClass); ok {
			p.AddBaseClass(b)
			return nil
		}
	case *cpp.ObjCClass:
		switch b := sym.(type) {
		case *cpp.ObjCBaseClass:
			p.SetBaseClass(b)
			return nil
		case *cpp.ObjCBaseProtocol:
			p.AddProtocol(b)
			return nil
		}
	case *cpp.ObjCProtocol:
		if b, ok := sym.(*cpp.ObjCBaseProtocol); ok {
			p.AddProtocol(b)
			return nil
		}
	}
	scope, ok := parent.(cpp.Scope)
	if !ok {
		return fmt.Errorf("parent %s is not a scope", parent.Kind())
	}
	scope.AddMember(sym)
	return nil
}

func (d *decoder) symbol(r *Symbol) (cpp.Symbol, error) {
	kind, ok := cpp.ParseKind(r.Kind)
	if !ok {
		return nil, fmt.Errorf("unknown kind %q", r.Kind)
	}
	loc := cpp.Location{File: d.path, Line: r.Line, Column: r.Col}
	name, err := d.name(r, kind)
	if err != nil {
		return nil, err
	}
	ty, err := d.typ(r)
	if err != nil {
		return nil, err
	}

	var sym cpp.Symbol
	switch kind {
	case cpp.KindNamespace:
		ns := cpp.NewNamespace(loc, name)
		ns.Inline = r.Extra.Inline
		sym = ns
	case cpp.KindClass:
		c := cpp.NewClass(loc, name)
		c.Key = cpp.ParseClassKey(r.Extra.ClassKey)
		sym = c
	case cpp.KindForwardClassDeclaration:
		sym = cpp.NewForwardClassDeclaration(loc, name)
	case cpp.KindEnum:
		e := cpp.NewEnum(loc, name)
		e.Scoped = r.Extra.Scoped
		sym = e
	case cpp.KindDeclaration:
		sym = cpp.NewDeclaration(loc, name, ty)
	case cpp.KindArgument:
		sym = cpp.NewArgument(loc, name, ty)
	case cpp.KindTypenameArgument:
		t := cpp.NewTypenameArgument(loc, name)
		t.Default = ty
		sym = t
	case cpp.KindFunction:
		sym = cpp.NewFunction(loc, name, ty)
	case cpp.KindBlock:
		sym = cpp.NewBlock(loc)
	case cpp.KindTemplate:
		sym = cpp.NewTemplate(loc)
	case cpp.KindBaseClass:
		b := cpp.NewBaseClass(loc, name)
		b.Virtual = r.Extra.Virtual
		sym = b
	case cpp.KindUsingNamespaceDirective:
		sym = cpp.NewUsingNamespaceDirective(loc, name)
	case cpp.KindUsingDeclaration:
		sym = cpp.NewUsingDeclaration(loc, name)
	case cpp.KindNamespaceAlias:
		var target cpp.Name
		if r.Extra.Target != "" {
			if target, err = cpp.ParseName(d.control, r.Extra.Target); err != nil {
				return nil, err
			}
		}
		sym = cpp.NewNamespaceAlias(loc, name, target)
	case cpp.KindObjCClass:
		sym = cpp.NewObjCClass(loc, name)
	case cpp.KindObjCBaseClass:
		sym = cpp.NewObjCBaseClass(loc, name)
	case cpp.KindObjCProtocol:
		sym = cpp.NewObjCProtocol(loc, name)
	case cpp.KindObjCBaseProtocol:
		sym = cpp.NewObjCBaseProtocol(loc, name)
	case cpp.KindObjCForwardClassDeclaration:
		sym = cpp.NewObjCForwardClassDeclaration(loc, name)
	case cpp.KindObjCForwardProtocolDeclaration:
		sym = cpp.NewObjCForwardProtocolDeclaration(loc, name)
	case cpp.KindObjCMethod:
		sym = cpp.NewObjCMethod(loc, name, ty)
	default:
		return nil, fmt.Errorf("unsupported kind %q", r.Kind)
	}
	sym.SetStorage(cpp.ParseStorage(r.Storage))
	sym.SetVisibility(cpp.ParseVisibility(r.Visibility))
	return sym, nil
}

func (d *decoder) name(r *Symbol, kind cpp.Kind) (cpp.Name, error) {
	if r.Extra.Anonymous {
		return d.control.AnonymousNameID(), nil
	}
	if r.Name == "" {
		return nil, nil
	}
	n, err := cpp.ParseName(d.control, r.Name)
	if err != nil {
		switch kind {
		case cpp.KindObjCMethod, cpp.KindObjCClass, cpp.KindObjCProtocol, cpp.KindArgument:
			// Selectors and ObjC identifiers are kept verbatim.
			return d.control.NameID(r.Name), nil
		}
		return nil, err
	}
	if r.Extra.Specialization {
		n = markSpecialization(d.control, n)
	}
	return n, nil
}

func markSpecialization(c *cpp.Control, n cpp.Name) cpp.Name {
	switch n := n.(type) {
	case *cpp.TemplateNameID:
		return c.TemplateNameID(n.Identifier(), true, n.TemplateArguments()...)
	case *cpp.QualifiedNameID:
		return c.QualifiedNameID(n.Base(), markSpecialization(c, n.Name()))
	}
	return n
}

func (d *decoder) typ(r *Symbol) (cpp.FullySpecifiedType, error) {
	if r.Extra.TypeRef != nil {
		if sym, ok := d.built[*r.Extra.TypeRef]; ok {
			return sym.Type(), nil
		}
	}
	if r.Type == "" {
		return cpp.FullySpecifiedType{}, nil
	}
	return cpp.ParseType(d.control, r.Type)
}
