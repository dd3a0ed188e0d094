package bindings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/cpp"
)

// fixture assembles documents the way the parser would. Every symbol gets a
// distinct line so position-based identity checks can tell them apart.
type fixture struct {
	t    *testing.T
	c    *cpp.Control
	docs []*cpp.Document
	line int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{t: t, c: cpp.NewControl()}
}

func (f *fixture) doc(file string, includes ...string) *cpp.Document {
	d := cpp.NewDocument(file, f.c)
	for i, inc := range includes {
		d.AddInclude(inc, i+1)
	}
	f.docs = append(f.docs, d)
	return d
}

func (f *fixture) snapshot() *cpp.Snapshot {
	return cpp.NewSnapshot(f.docs...)
}

func (f *fixture) build(anchor *cpp.Document, opts ...Option) *Bindings {
	f.t.Helper()
	b, err := New(context.Background(), anchor, f.snapshot(), opts...)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) loc(parent cpp.Scope) cpp.Location {
	f.line++
	return cpp.Location{File: parent.FileName(), Line: f.line, Column: 1}
}

func (f *fixture) name(text string) cpp.Name {
	f.t.Helper()
	n, err := cpp.ParseName(f.c, text)
	require.NoError(f.t, err)
	return n
}

func (f *fixture) ty(text string) cpp.FullySpecifiedType {
	f.t.Helper()
	ty, err := cpp.ParseType(f.c, text)
	require.NoError(f.t, err)
	return ty
}

// namespace adds a namespace; an empty name makes it anonymous.
func (f *fixture) namespace(parent cpp.Scope, name string) *cpp.Namespace {
	var n cpp.Name
	if name == "" {
		n = f.c.AnonymousNameID()
	} else {
		n = f.name(name)
	}
	ns := cpp.NewNamespace(f.loc(parent), n)
	parent.AddMember(ns)
	return ns
}

func (f *fixture) inlineNamespace(parent cpp.Scope, name string) *cpp.Namespace {
	ns := f.namespace(parent, name)
	ns.Inline = true
	return ns
}

func (f *fixture) class(parent cpp.Scope, name string, bases ...string) *cpp.Class {
	return f.classNamed(parent, f.name(name), bases...)
}

func (f *fixture) classNamed(parent cpp.Scope, name cpp.Name, bases ...string) *cpp.Class {
	k := cpp.NewClass(f.loc(parent), name)
	for _, b := range bases {
		k.AddBaseClass(cpp.NewBaseClass(f.loc(parent), f.name(b)))
	}
	parent.AddMember(k)
	return k
}

func (f *fixture) forward(parent cpp.Scope, name string) *cpp.ForwardClassDeclaration {
	fwd := cpp.NewForwardClassDeclaration(f.loc(parent), f.name(name))
	parent.AddMember(fwd)
	return fwd
}

func (f *fixture) decl(parent cpp.Scope, name, ty string) *cpp.Declaration {
	d := cpp.NewDeclaration(f.loc(parent), f.name(name), f.ty(ty))
	parent.AddMember(d)
	return d
}

func (f *fixture) typedef(parent cpp.Scope, name, ty string) *cpp.Declaration {
	d := f.decl(parent, name, ty)
	d.SetStorage(cpp.StorageTypedef)
	return d
}

func (f *fixture) function(parent cpp.Scope, name, ret string, args ...string) *cpp.Function {
	fn := cpp.NewFunction(f.loc(parent), f.name(name), f.ty(ret))
	for i := 0; i+1 < len(args); i += 2 {
		fn.AddMember(cpp.NewArgument(f.loc(parent), f.name(args[i]), f.ty(args[i+1])))
	}
	parent.AddMember(fn)
	return fn
}

func (f *fixture) body(fn *cpp.Function) *cpp.Block {
	b := cpp.NewBlock(f.loc(fn))
	fn.AddMember(b)
	return b
}

func (f *fixture) block(parent cpp.Scope) *cpp.Block {
	b := cpp.NewBlock(f.loc(parent))
	parent.AddMember(b)
	return b
}

func (f *fixture) enum(parent cpp.Scope, name string, scoped bool, enumerators ...string) *cpp.Enum {
	e := cpp.NewEnum(f.loc(parent), f.name(name))
	e.Scoped = scoped
	for _, en := range enumerators {
		e.AddMember(cpp.NewDeclaration(f.loc(parent), f.name(en), cpp.Builtin("int")))
	}
	parent.AddMember(e)
	return e
}

func (f *fixture) usingNamespace(parent cpp.Scope, name string) *cpp.UsingNamespaceDirective {
	u := cpp.NewUsingNamespaceDirective(f.loc(parent), f.name(name))
	parent.AddMember(u)
	return u
}

func (f *fixture) usingDecl(parent cpp.Scope, name string) *cpp.UsingDeclaration {
	u := cpp.NewUsingDeclaration(f.loc(parent), f.name(name))
	parent.AddMember(u)
	return u
}

func (f *fixture) alias(parent cpp.Scope, name, target string) *cpp.NamespaceAlias {
	a := cpp.NewNamespaceAlias(f.loc(parent), f.name(name), f.name(target))
	parent.AddMember(a)
	return a
}

// template adds template<class params...> with no declaration yet.
func (f *fixture) template(parent cpp.Scope, params ...string) *cpp.Template {
	tmpl := cpp.NewTemplate(f.loc(parent))
	for _, p := range params {
		tmpl.AddMember(cpp.NewTypenameArgument(f.loc(parent), f.name(p)))
	}
	parent.AddMember(tmpl)
	return tmpl
}

func declarations(items []LookupItem) []cpp.Symbol {
	out := make([]cpp.Symbol, len(items))
	for i, item := range items {
		out[i] = item.Declaration
	}
	return out
}
