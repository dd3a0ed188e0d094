package bindings

import (
	"github.com/jward/cxxbind/internal/cpp"
)

// subst maps template parameter names to argument types.
type subst struct {
	types map[string]cpp.FullySpecifiedType
}

func newSubst() *subst {
	return &subst{types: make(map[string]cpp.FullySpecifiedType)}
}

func (s *subst) bind(name cpp.Name, ty cpp.FullySpecifiedType) {
	s.types[name.Key()] = ty
}

func (s *subst) lookup(name cpp.Name) (cpp.FullySpecifiedType, bool) {
	if s == nil || name == nil {
		return cpp.FullySpecifiedType{}, false
	}
	if _, ok := name.(*cpp.NameID); !ok {
		return cpp.FullySpecifiedType{}, false
	}
	ty, ok := s.types[name.Key()]
	return ty, ok
}

func (s *subst) contains(name cpp.Name) bool {
	_, ok := s.lookup(name)
	return ok
}

// cloner deep-copies symbols and types, replacing template parameters by
// their bound arguments. A cloner memoizes symbols so shared sub-trees are
// cloned once.
type cloner struct {
	control *cpp.Control
	symbols map[cpp.Symbol]cpp.Symbol
}

func newCloner(control *cpp.Control) *cloner {
	return &cloner{control: control, symbols: make(map[cpp.Symbol]cpp.Symbol)}
}

func (c *cloner) typ(t cpp.FullySpecifiedType, s *subst) cpp.FullySpecifiedType {
	out := t
	switch tt := t.Type.(type) {
	case nil, *cpp.BuiltinType:
		return t
	case *cpp.NamedType:
		if r, ok := s.lookup(tt.Name); ok {
			r.Const = r.Const || t.Const
			r.Volatile = r.Volatile || t.Volatile
			return r
		}
		out.Type = &cpp.NamedType{Name: c.name(tt.Name, s)}
	case *cpp.PointerType:
		out.Type = &cpp.PointerType{Elem: c.typ(tt.Elem, s)}
	case *cpp.ReferenceType:
		out.Type = &cpp.ReferenceType{Elem: c.typ(tt.Elem, s), RValue: tt.RValue}
	case *cpp.ArrayType:
		out.Type = &cpp.ArrayType{Elem: c.typ(tt.Elem, s), Size: tt.Size}
	case *cpp.Class, *cpp.Enum, *cpp.Function, *cpp.Namespace:
		out.Type = c.symbol(tt.(cpp.Symbol), s).(cpp.Type)
	}
	return out
}

// name rewrites a name that refers to something. A plain identifier bound
// to a named argument becomes that argument's name.
func (c *cloner) name(n cpp.Name, s *subst) cpp.Name {
	switch nn := n.(type) {
	case *cpp.NameID:
		if r, ok := s.lookup(nn); ok {
			if nt := r.NamedType(); nt != nil {
				return nt.Name
			}
		}
		return nn
	case *cpp.TemplateNameID:
		return c.templateName(nn, s)
	case *cpp.QualifiedNameID:
		var base cpp.Name
		if nn.Base() != nil {
			base = c.name(nn.Base(), s)
		}
		return c.control.QualifiedNameID(base, c.name(nn.Name(), s))
	}
	return n
}

// declName rewrites the name a symbol declares. Only template arguments are
// substituted.
func (c *cloner) declName(n cpp.Name, s *subst) cpp.Name {
	switch nn := n.(type) {
	case *cpp.TemplateNameID:
		return c.templateName(nn, s)
	case *cpp.QualifiedNameID:
		var base cpp.Name
		if nn.Base() != nil {
			base = c.name(nn.Base(), s)
		}
		return c.control.QualifiedNameID(base, c.declName(nn.Name(), s))
	}
	return n
}

func (c *cloner) templateName(n *cpp.TemplateNameID, s *subst) *cpp.TemplateNameID {
	args := n.TemplateArguments()
	for i, a := range args {
		args[i] = c.typ(a, s)
	}
	return c.control.TemplateNameID(n.Identifier(), n.IsSpecialization(), args...)
}

func (c *cloner) symbol(sym cpp.Symbol, s *subst) cpp.Symbol {
	if sym == nil {
		return nil
	}
	if done, ok := c.symbols[sym]; ok {
		return done
	}
	loc := sym.Location()
	name := c.declName(sym.Name(), s)

	var out cpp.Symbol
	switch x := sym.(type) {
	case *cpp.Class:
		k := cpp.NewClass(loc, name)
		k.Key = x.Key
		c.symbols[sym] = k
		for _, b := range x.BaseClasses() {
			k.AddBaseClass(c.symbol(b, s).(*cpp.BaseClass))
		}
		c.members(k, x, s)
		out = k
	case *cpp.BaseClass:
		b := cpp.NewBaseClass(loc, c.name(x.Name(), s))
		b.Virtual = x.Virtual
		out = b
	case *cpp.Declaration:
		out = cpp.NewDeclaration(loc, name, c.typ(x.Type(), s))
	case *cpp.Argument:
		out = cpp.NewArgument(loc, name, c.typ(x.Type(), s))
	case *cpp.TypenameArgument:
		t := cpp.NewTypenameArgument(loc, name)
		t.Default = c.typ(x.Default, s)
		out = t
	case *cpp.Function:
		f := cpp.NewFunction(loc, name, c.typ(x.ReturnType, s))
		c.symbols[sym] = f
		c.members(f, x, s)
		out = f
	case *cpp.Block:
		b := cpp.NewBlock(loc)
		c.symbols[sym] = b
		c.members(b, x, s)
		out = b
	case *cpp.Enum:
		e := cpp.NewEnum(loc, name)
		e.Scoped = x.Scoped
		c.symbols[sym] = e
		c.members(e, x, s)
		out = e
	case *cpp.Template:
		t := cpp.NewTemplate(loc)
		c.symbols[sym] = t
		c.members(t, x, s)
		out = t
	case *cpp.Namespace:
		ns := cpp.NewNamespace(loc, name)
		ns.Inline = x.Inline
		c.symbols[sym] = ns
		c.members(ns, x, s)
		out = ns
	case *cpp.ForwardClassDeclaration:
		out = cpp.NewForwardClassDeclaration(loc, name)
	case *cpp.UsingNamespaceDirective:
		out = cpp.NewUsingNamespaceDirective(loc, c.name(x.Name(), s))
	case *cpp.UsingDeclaration:
		out = cpp.NewUsingDeclaration(loc, c.name(x.Name(), s))
	case *cpp.NamespaceAlias:
		out = cpp.NewNamespaceAlias(loc, name, x.NamespaceName)
	default:
		return sym
	}
	out.SetStorage(sym.Storage())
	out.SetVisibility(sym.Visibility())
	c.symbols[sym] = out
	return out
}

func (c *cloner) members(dst, src cpp.Scope, s *subst) {
	for _, m := range src.Members() {
		dst.AddMember(c.symbol(m, s))
	}
}
