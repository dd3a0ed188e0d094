package cpp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_RoundTrip(t *testing.T) {
	t.Parallel()
	for k := KindNamespace; k <= KindObjCMethod; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("nonsense")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestScope_FindAndEnclosing(t *testing.T) {
	t.Parallel()
	c := NewControl()
	ns := NewNamespace(Location{File: "a.h", Line: 1}, c.NameID("N"))
	f1 := NewFunction(Location{File: "a.h", Line: 2}, c.NameID("f"), Builtin("void"))
	f2 := NewFunction(Location{File: "a.h", Line: 3}, c.NameID("f"), Builtin("int"))
	x := NewDeclaration(Location{File: "a.h", Line: 4}, c.NameID("x"), Builtin("int"))
	ns.AddMember(f1)
	ns.AddMember(f2)
	ns.AddMember(x)

	assert.Equal(t, []Symbol{f1, f2}, ns.Find("f"))
	assert.Equal(t, []Symbol{x}, ns.Find("x"))
	assert.Empty(t, ns.Find("missing"))
	assert.Equal(t, Scope(ns), x.EnclosingScope())
	assert.Equal(t, 3, ns.MemberCount())
}

func TestTemplate_DeclarationAndParameters(t *testing.T) {
	t.Parallel()
	c := NewControl()
	tmpl := NewTemplate(Location{File: "v.h", Line: 1})
	param := NewTypenameArgument(Location{File: "v.h", Line: 1}, c.NameID("T"))
	class := NewClass(Location{File: "v.h", Line: 2}, c.NameID("Vector"))
	tmpl.AddMember(param)
	tmpl.AddMember(class)

	assert.Equal(t, Symbol(class), tmpl.Declaration())
	assert.Equal(t, 1, tmpl.TemplateParameterCount())
	assert.Equal(t, Symbol(param), tmpl.TemplateParameterAt(0))
	assert.Equal(t, "Vector", tmpl.Identifier())
	assert.Same(t, tmpl, class.EnclosingTemplate())

	ns := NewNamespace(Location{File: "v.h"}, nil)
	ns.AddMember(tmpl)
	assert.Equal(t, []Symbol{tmpl}, ns.Find("Vector"))
}

func TestClass_BaseClassesAndType(t *testing.T) {
	t.Parallel()
	c := NewControl()
	class := NewClass(Location{File: "a.h"}, c.NameID("D"))
	base := NewBaseClass(Location{File: "a.h"}, c.NameID("B"))
	class.AddBaseClass(base)

	require.Len(t, class.BaseClasses(), 1)
	assert.Equal(t, Scope(class), base.EnclosingScope())
	assert.Same(t, class, class.Type().ClassType())
	assert.Equal(t, "class D", class.Type().String())
}

func TestFunction_ArgumentsAndBody(t *testing.T) {
	t.Parallel()
	c := NewControl()
	fn := NewFunction(Location{File: "a.cpp"}, c.NameID("f"), Builtin("void"))
	arg := NewArgument(Location{File: "a.cpp"}, c.NameID("n"), Builtin("int"))
	body := NewBlock(Location{File: "a.cpp"})
	fn.AddMember(arg)
	fn.AddMember(body)

	assert.Equal(t, []*Argument{arg}, fn.Arguments())
	assert.Same(t, body, fn.Body())
	assert.Equal(t, "void(int)", fn.Type().String())

	inner := NewDeclaration(Location{File: "a.cpp"}, c.NameID("local"), Builtin("int"))
	body.AddMember(inner)
	assert.Same(t, body, EnclosingBlock(inner))
	assert.Nil(t, EnclosingNamespace(inner))
}

func TestStorageAndVisibility(t *testing.T) {
	t.Parallel()
	c := NewControl()
	d := NewDeclaration(Location{}, c.NameID("T"), Builtin("int"))
	d.SetStorage(StorageTypedef)
	d.SetVisibility(VisibilityPrivate)
	assert.True(t, d.IsTypedef())
	assert.False(t, d.IsFriend())
	assert.Equal(t, "private", d.Visibility().String())
	assert.Equal(t, StorageFriend, ParseStorage("friend"))
	assert.Equal(t, VisibilityProtected, ParseVisibility("protected"))
}
