package cpp

import "sync"

// Kind tags the concrete variant of a Symbol.
type Kind int

const (
	KindNamespace Kind = iota
	KindClass
	KindForwardClassDeclaration
	KindEnum
	KindDeclaration
	KindArgument
	KindTypenameArgument
	KindFunction
	KindBlock
	KindTemplate
	KindBaseClass
	KindUsingNamespaceDirective
	KindUsingDeclaration
	KindNamespaceAlias
	KindObjCClass
	KindObjCBaseClass
	KindObjCProtocol
	KindObjCBaseProtocol
	KindObjCForwardClassDeclaration
	KindObjCForwardProtocolDeclaration
	KindObjCMethod
)

var kindNames = [...]string{
	KindNamespace:                      "namespace",
	KindClass:                          "class",
	KindForwardClassDeclaration:        "forward_class",
	KindEnum:                           "enum",
	KindDeclaration:                    "declaration",
	KindArgument:                       "argument",
	KindTypenameArgument:               "typename_argument",
	KindFunction:                       "function",
	KindBlock:                          "block",
	KindTemplate:                       "template",
	KindBaseClass:                      "base_class",
	KindUsingNamespaceDirective:        "using_directive",
	KindUsingDeclaration:               "using_declaration",
	KindNamespaceAlias:                 "namespace_alias",
	KindObjCClass:                      "objc_class",
	KindObjCBaseClass:                  "objc_base_class",
	KindObjCProtocol:                   "objc_protocol",
	KindObjCBaseProtocol:               "objc_base_protocol",
	KindObjCForwardClassDeclaration:    "objc_forward_class",
	KindObjCForwardProtocolDeclaration: "objc_forward_protocol",
	KindObjCMethod:                     "objc_method",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// Storage is a declaration's storage class specifier.
type Storage int

const (
	StorageNone Storage = iota
	StorageTypedef
	StorageStatic
	StorageExtern
	StorageFriend
	StorageMutable
)

var storageNames = [...]string{"", "typedef", "static", "extern", "friend", "mutable"}

func (s Storage) String() string {
	if s >= 0 && int(s) < len(storageNames) {
		return storageNames[s]
	}
	return ""
}

// ParseStorage is the inverse of Storage.String. Unknown text maps to
// StorageNone.
func ParseStorage(s string) Storage {
	for i, name := range storageNames {
		if name == s {
			return Storage(i)
		}
	}
	return StorageNone
}

// Visibility is a member access specifier.
type Visibility int

const (
	VisibilityNone Visibility = iota
	VisibilityPublic
	VisibilityProtected
	VisibilityPrivate
)

var visibilityNames = [...]string{"", "public", "protected", "private"}

func (v Visibility) String() string {
	if v >= 0 && int(v) < len(visibilityNames) {
		return visibilityNames[v]
	}
	return ""
}

// ParseVisibility is the inverse of Visibility.String.
func ParseVisibility(s string) Visibility {
	for i, name := range visibilityNames {
		if name == s {
			return Visibility(i)
		}
	}
	return VisibilityNone
}

// Location is the position of a declaration. Line and Column are 1-based;
// zero means unknown.
type Location struct {
	File   string
	Line   int
	Column int
}

// Symbol is a declaration produced by the parser. Symbols are assembled once
// with the New* constructors and AddMember, and are read-only afterwards.
type Symbol interface {
	Kind() Kind
	Name() Name
	// Identifier returns the final identifier of Name(), or "".
	Identifier() string
	Location() Location
	FileName() string
	Line() int
	Column() int
	EnclosingScope() Scope
	// SetEnclosingScope re-parents a symbol. It is used when attaching
	// clones produced by template substitution.
	SetEnclosingScope(Scope)
	Storage() Storage
	SetStorage(Storage)
	Visibility() Visibility
	SetVisibility(Visibility)
	IsFriend() bool
	IsTypedef() bool
	// Type returns the declared type, or the symbol itself for symbols that
	// are types (classes, enums, functions).
	Type() FullySpecifiedType
}

// Scope is a Symbol with ordered members.
type Scope interface {
	Symbol
	Members() []Symbol
	MemberCount() int
	MemberAt(i int) Symbol
	// Find returns the members whose identifier is id, in declaration order.
	Find(id string) []Symbol
	AddMember(Symbol)
}

type symbolBase struct {
	name       Name
	loc        Location
	enclosing  Scope
	storage    Storage
	visibility Visibility
}

func (s *symbolBase) Name() Name                 { return s.name }
func (s *symbolBase) Location() Location         { return s.loc }
func (s *symbolBase) FileName() string           { return s.loc.File }
func (s *symbolBase) Line() int                  { return s.loc.Line }
func (s *symbolBase) Column() int                { return s.loc.Column }
func (s *symbolBase) EnclosingScope() Scope      { return s.enclosing }
func (s *symbolBase) SetEnclosingScope(sc Scope) { s.enclosing = sc }
func (s *symbolBase) Storage() Storage           { return s.storage }
func (s *symbolBase) SetStorage(st Storage)      { s.storage = st }
func (s *symbolBase) Visibility() Visibility     { return s.visibility }
func (s *symbolBase) SetVisibility(v Visibility) { s.visibility = v }
func (s *symbolBase) IsFriend() bool             { return s.storage == StorageFriend }
func (s *symbolBase) IsTypedef() bool            { return s.storage == StorageTypedef }
func (s *symbolBase) Type() FullySpecifiedType   { return FullySpecifiedType{} }

func (s *symbolBase) Identifier() string {
	if s.name == nil {
		return ""
	}
	return s.name.Identifier()
}

type scopeBase struct {
	symbolBase
	members []Symbol

	indexOnce sync.Once
	index     map[string][]Symbol
}

func (s *scopeBase) Members() []Symbol { return s.members }
func (s *scopeBase) MemberCount() int  { return len(s.members) }
func (s *scopeBase) MemberAt(i int) Symbol {
	return s.members[i]
}

func (s *scopeBase) add(owner Scope, m Symbol) {
	m.SetEnclosingScope(owner)
	s.members = append(s.members, m)
}

// Find builds the identifier index on first use. Members must not be added
// after the first Find.
func (s *scopeBase) Find(id string) []Symbol {
	s.indexOnce.Do(func() {
		s.index = make(map[string][]Symbol)
		for _, m := range s.members {
			if mid := m.Identifier(); mid != "" {
				s.index[mid] = append(s.index[mid], m)
			}
		}
	})
	return s.index[id]
}

// Namespace is a named, anonymous or inline namespace. Every Document has an
// unnamed global Namespace at its root.
type Namespace struct {
	scopeBase
	Inline bool
}

func NewNamespace(loc Location, name Name) *Namespace {
	return &Namespace{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}}
}

func (n *Namespace) Kind() Kind               { return KindNamespace }
func (n *Namespace) AddMember(m Symbol)       { n.add(n, m) }
func (n *Namespace) Type() FullySpecifiedType { return FullySpecifiedType{Type: n} }

// ClassKey distinguishes class, struct and union.
type ClassKey int

const (
	ClassKeyClass ClassKey = iota
	ClassKeyStruct
	ClassKeyUnion
)

var classKeyNames = [...]string{"class", "struct", "union"}

func (k ClassKey) String() string {
	if k >= 0 && int(k) < len(classKeyNames) {
		return classKeyNames[k]
	}
	return "class"
}

// ParseClassKey is the inverse of ClassKey.String.
func ParseClassKey(s string) ClassKey {
	for i, name := range classKeyNames {
		if name == s {
			return ClassKey(i)
		}
	}
	return ClassKeyClass
}

// Class is a class, struct or union definition.
type Class struct {
	scopeBase
	Key  ClassKey
	base []*BaseClass
}

func NewClass(loc Location, name Name) *Class {
	return &Class{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}}
}

func (c *Class) Kind() Kind                { return KindClass }
func (c *Class) AddMember(m Symbol)        { c.add(c, m) }
func (c *Class) Type() FullySpecifiedType  { return FullySpecifiedType{Type: c} }
func (c *Class) BaseClasses() []*BaseClass { return c.base }

// AddBaseClass appends a base-specifier.
func (c *Class) AddBaseClass(b *BaseClass) {
	b.SetEnclosingScope(c)
	c.base = append(c.base, b)
}

// EnclosingTemplate returns the Template that directly declares c, or nil.
func (c *Class) EnclosingTemplate() *Template {
	t, _ := c.enclosing.(*Template)
	return t
}

// BaseClass is one base-specifier of a class.
type BaseClass struct {
	symbolBase
	Virtual bool
}

func NewBaseClass(loc Location, name Name) *BaseClass {
	return &BaseClass{symbolBase: symbolBase{name: name, loc: loc}}
}

func (b *BaseClass) Kind() Kind { return KindBaseClass }

// ForwardClassDeclaration is class X; (including friend class X;).
type ForwardClassDeclaration struct {
	symbolBase
}

func NewForwardClassDeclaration(loc Location, name Name) *ForwardClassDeclaration {
	return &ForwardClassDeclaration{symbolBase: symbolBase{name: name, loc: loc}}
}

func (f *ForwardClassDeclaration) Kind() Kind { return KindForwardClassDeclaration }

// Enum is an enumeration. Its members are the enumerator Declarations.
type Enum struct {
	scopeBase
	Scoped bool
}

func NewEnum(loc Location, name Name) *Enum {
	return &Enum{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}}
}

func (e *Enum) Kind() Kind               { return KindEnum }
func (e *Enum) AddMember(m Symbol)       { e.add(e, m) }
func (e *Enum) Type() FullySpecifiedType { return FullySpecifiedType{Type: e} }

// Declaration is a variable, typedef, alias declaration or enumerator.
type Declaration struct {
	symbolBase
	typ FullySpecifiedType
}

func NewDeclaration(loc Location, name Name, ty FullySpecifiedType) *Declaration {
	return &Declaration{symbolBase: symbolBase{name: name, loc: loc}, typ: ty}
}

func (d *Declaration) Kind() Kind               { return KindDeclaration }
func (d *Declaration) Type() FullySpecifiedType { return d.typ }

// Argument is a function parameter or a non-type template parameter.
type Argument struct {
	symbolBase
	typ FullySpecifiedType
}

func NewArgument(loc Location, name Name, ty FullySpecifiedType) *Argument {
	return &Argument{symbolBase: symbolBase{name: name, loc: loc}, typ: ty}
}

func (a *Argument) Kind() Kind               { return KindArgument }
func (a *Argument) Type() FullySpecifiedType { return a.typ }

// TypenameArgument is a template type parameter. Default is its default
// argument, if any.
type TypenameArgument struct {
	symbolBase
	Default FullySpecifiedType
}

func NewTypenameArgument(loc Location, name Name) *TypenameArgument {
	return &TypenameArgument{symbolBase: symbolBase{name: name, loc: loc}}
}

func (t *TypenameArgument) Kind() Kind               { return KindTypenameArgument }
func (t *TypenameArgument) Type() FullySpecifiedType { return t.Default }

// Function is a function declaration or definition. Its members are its
// Arguments followed by an optional body Block.
type Function struct {
	scopeBase
	ReturnType FullySpecifiedType
}

func NewFunction(loc Location, name Name, ret FullySpecifiedType) *Function {
	return &Function{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}, ReturnType: ret}
}

func (f *Function) Kind() Kind               { return KindFunction }
func (f *Function) AddMember(m Symbol)       { f.add(f, m) }
func (f *Function) Type() FullySpecifiedType { return FullySpecifiedType{Type: f} }

// Arguments returns the function's parameters in order.
func (f *Function) Arguments() []*Argument {
	var args []*Argument
	for _, m := range f.members {
		if a, ok := m.(*Argument); ok {
			args = append(args, a)
		}
	}
	return args
}

// Body returns the function's body block, or nil for a declaration.
func (f *Function) Body() *Block {
	for _, m := range f.members {
		if b, ok := m.(*Block); ok {
			return b
		}
	}
	return nil
}

// Block is a { } scope inside a function body.
type Block struct {
	scopeBase
}

func NewBlock(loc Location) *Block {
	return &Block{scopeBase: scopeBase{symbolBase: symbolBase{loc: loc}}}
}

func (b *Block) Kind() Kind         { return KindBlock }
func (b *Block) AddMember(m Symbol) { b.add(b, m) }

// Template is template<params> declaration. Its members are the template
// parameters followed by the templated declaration.
type Template struct {
	scopeBase
}

func NewTemplate(loc Location) *Template {
	return &Template{scopeBase: scopeBase{symbolBase: symbolBase{loc: loc}}}
}

func (t *Template) Kind() Kind         { return KindTemplate }
func (t *Template) AddMember(m Symbol) { t.add(t, m) }

// Name returns the templated declaration's name.
func (t *Template) Name() Name {
	if d := t.Declaration(); d != nil {
		return d.Name()
	}
	return t.name
}

func (t *Template) Identifier() string {
	if n := t.Name(); n != nil {
		return n.Identifier()
	}
	return ""
}

// Declaration returns the templated declaration, or nil if the template has
// no declaration member.
func (t *Template) Declaration() Symbol {
	if len(t.members) == 0 {
		return nil
	}
	switch d := t.members[len(t.members)-1].(type) {
	case *Class, *ForwardClassDeclaration, *Template, *Function, *Declaration:
		return d
	}
	return nil
}

func (t *Template) TemplateParameterCount() int {
	if t.Declaration() != nil {
		return len(t.members) - 1
	}
	return len(t.members)
}

func (t *Template) TemplateParameterAt(i int) Symbol { return t.members[i] }

// Type returns the templated declaration's type.
func (t *Template) Type() FullySpecifiedType {
	if d := t.Declaration(); d != nil {
		return d.Type()
	}
	return FullySpecifiedType{}
}

// UsingNamespaceDirective is using namespace Name;.
type UsingNamespaceDirective struct {
	symbolBase
}

func NewUsingNamespaceDirective(loc Location, name Name) *UsingNamespaceDirective {
	return &UsingNamespaceDirective{symbolBase: symbolBase{name: name, loc: loc}}
}

func (u *UsingNamespaceDirective) Kind() Kind { return KindUsingNamespaceDirective }

// UsingDeclaration is using Qualified::name;.
type UsingDeclaration struct {
	symbolBase
}

func NewUsingDeclaration(loc Location, name Name) *UsingDeclaration {
	return &UsingDeclaration{symbolBase: symbolBase{name: name, loc: loc}}
}

func (u *UsingDeclaration) Kind() Kind { return KindUsingDeclaration }

// NamespaceAlias is namespace Name = NamespaceName;.
type NamespaceAlias struct {
	symbolBase
	NamespaceName Name
}

func NewNamespaceAlias(loc Location, alias, namespaceName Name) *NamespaceAlias {
	return &NamespaceAlias{symbolBase: symbolBase{name: alias, loc: loc}, NamespaceName: namespaceName}
}

func (a *NamespaceAlias) Kind() Kind { return KindNamespaceAlias }

// ObjCClass is an Objective-C @interface or @implementation.
type ObjCClass struct {
	scopeBase
	BaseClass *ObjCBaseClass
	protocols []*ObjCBaseProtocol
}

func NewObjCClass(loc Location, name Name) *ObjCClass {
	return &ObjCClass{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}}
}

func (c *ObjCClass) Kind() Kind                     { return KindObjCClass }
func (c *ObjCClass) AddMember(m Symbol)             { c.add(c, m) }
func (c *ObjCClass) Protocols() []*ObjCBaseProtocol { return c.protocols }

// SetBaseClass sets the superclass reference.
func (c *ObjCClass) SetBaseClass(b *ObjCBaseClass) {
	b.SetEnclosingScope(c)
	c.BaseClass = b
}

// AddProtocol appends an adopted protocol reference.
func (c *ObjCClass) AddProtocol(p *ObjCBaseProtocol) {
	p.SetEnclosingScope(c)
	c.protocols = append(c.protocols, p)
}

// ObjCProtocol is an Objective-C @protocol definition.
type ObjCProtocol struct {
	scopeBase
	protocols []*ObjCBaseProtocol
}

func NewObjCProtocol(loc Location, name Name) *ObjCProtocol {
	return &ObjCProtocol{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}}
}

func (p *ObjCProtocol) Kind() Kind                     { return KindObjCProtocol }
func (p *ObjCProtocol) AddMember(m Symbol)             { p.add(p, m) }
func (p *ObjCProtocol) Protocols() []*ObjCBaseProtocol { return p.protocols }

func (p *ObjCProtocol) AddProtocol(b *ObjCBaseProtocol) {
	b.SetEnclosingScope(p)
	p.protocols = append(p.protocols, b)
}

// ObjCMethod is an Objective-C method. Its members are its arguments.
type ObjCMethod struct {
	scopeBase
	ReturnType FullySpecifiedType
}

func NewObjCMethod(loc Location, name Name, ret FullySpecifiedType) *ObjCMethod {
	return &ObjCMethod{scopeBase: scopeBase{symbolBase: symbolBase{name: name, loc: loc}}, ReturnType: ret}
}

func (m *ObjCMethod) Kind() Kind         { return KindObjCMethod }
func (m *ObjCMethod) AddMember(s Symbol) { m.add(m, s) }

type ObjCBaseClass struct{ symbolBase }

func NewObjCBaseClass(loc Location, name Name) *ObjCBaseClass {
	return &ObjCBaseClass{symbolBase: symbolBase{name: name, loc: loc}}
}

func (b *ObjCBaseClass) Kind() Kind { return KindObjCBaseClass }

type ObjCBaseProtocol struct{ symbolBase }

func NewObjCBaseProtocol(loc Location, name Name) *ObjCBaseProtocol {
	return &ObjCBaseProtocol{symbolBase: symbolBase{name: name, loc: loc}}
}

func (b *ObjCBaseProtocol) Kind() Kind { return KindObjCBaseProtocol }

type ObjCForwardClassDeclaration struct{ symbolBase }

func NewObjCForwardClassDeclaration(loc Location, name Name) *ObjCForwardClassDeclaration {
	return &ObjCForwardClassDeclaration{symbolBase: symbolBase{name: name, loc: loc}}
}

func (f *ObjCForwardClassDeclaration) Kind() Kind { return KindObjCForwardClassDeclaration }

type ObjCForwardProtocolDeclaration struct{ symbolBase }

func NewObjCForwardProtocolDeclaration(loc Location, name Name) *ObjCForwardProtocolDeclaration {
	return &ObjCForwardProtocolDeclaration{symbolBase: symbolBase{name: name, loc: loc}}
}

func (f *ObjCForwardProtocolDeclaration) Kind() Kind { return KindObjCForwardProtocolDeclaration }

// EnclosingNamespace returns the nearest namespace enclosing s, or nil.
func EnclosingNamespace(s Symbol) *Namespace {
	for sc := s.EnclosingScope(); sc != nil; sc = sc.EnclosingScope() {
		if ns, ok := sc.(*Namespace); ok {
			return ns
		}
	}
	return nil
}

// EnclosingBlock returns the nearest block enclosing s, or nil.
func EnclosingBlock(s Symbol) *Block {
	for sc := s.EnclosingScope(); sc != nil; sc = sc.EnclosingScope() {
		if b, ok := sc.(*Block); ok {
			return b
		}
	}
	return nil
}

// EnclosingTemplate returns the nearest template enclosing s, or nil.
func EnclosingTemplate(s Symbol) *Template {
	for sc := s.EnclosingScope(); sc != nil; sc = sc.EnclosingScope() {
		if t, ok := sc.(*Template); ok {
			return t
		}
	}
	return nil
}

// IsScoped reports whether s is a scoped enum (enum class).
func IsScoped(s Symbol) bool {
	e, ok := s.(*Enum)
	return ok && e.Scoped
}
