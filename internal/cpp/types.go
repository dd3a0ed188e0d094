package cpp

import (
	"strconv"
	"strings"
)

// Type is the unqualified part of a FullySpecifiedType.
type Type interface {
	isType()
}

// BuiltinType is a fundamental type such as int or unsigned long.
type BuiltinType struct {
	Spelling string
}

// NamedType refers to a type by name (a class, typedef, enum or template
// parameter).
type NamedType struct {
	Name Name
}

// PointerType is Elem*.
type PointerType struct {
	Elem FullySpecifiedType
}

// ReferenceType is Elem& or, when RValue is set, Elem&&.
type ReferenceType struct {
	Elem   FullySpecifiedType
	RValue bool
}

// ArrayType is Elem[Size]. Size is zero for an unknown bound.
type ArrayType struct {
	Elem FullySpecifiedType
	Size int
}

func (*BuiltinType) isType()   {}
func (*NamedType) isType()     {}
func (*PointerType) isType()   {}
func (*ReferenceType) isType() {}
func (*ArrayType) isType()     {}
func (*Class) isType()         {}
func (*Enum) isType()          {}
func (*Function) isType()      {}
func (*Namespace) isType()     {}

// FullySpecifiedType is a type plus its cv-qualifiers.
type FullySpecifiedType struct {
	Type     Type
	Const    bool
	Volatile bool
}

// Builtin returns the unqualified builtin type spelled s.
func Builtin(s string) FullySpecifiedType {
	return FullySpecifiedType{Type: &BuiltinType{Spelling: s}}
}

// Named returns the unqualified named type n.
func Named(n Name) FullySpecifiedType {
	return FullySpecifiedType{Type: &NamedType{Name: n}}
}

// PointerTo returns elem*.
func PointerTo(elem FullySpecifiedType) FullySpecifiedType {
	return FullySpecifiedType{Type: &PointerType{Elem: elem}}
}

// IsValid reports whether the type is set.
func (t FullySpecifiedType) IsValid() bool { return t.Type != nil }

// NamedType returns the named type, or nil if t is not a NamedType.
func (t FullySpecifiedType) NamedType() *NamedType {
	nt, _ := t.Type.(*NamedType)
	return nt
}

// ClassType returns the class, or nil if t is not a class type.
func (t FullySpecifiedType) ClassType() *Class {
	c, _ := t.Type.(*Class)
	return c
}

// Equal reports whether two types have the same spelling and qualifiers.
func (t FullySpecifiedType) Equal(o FullySpecifiedType) bool {
	return t.String() == o.String()
}

func (t FullySpecifiedType) String() string {
	var b strings.Builder
	if t.Const {
		b.WriteString("const ")
	}
	if t.Volatile {
		b.WriteString("volatile ")
	}
	b.WriteString(typeString(t.Type))
	return b.String()
}

func typeString(t Type) string {
	switch t := t.(type) {
	case nil:
		return "<invalid>"
	case *BuiltinType:
		return t.Spelling
	case *NamedType:
		if t.Name == nil {
			return "<unnamed>"
		}
		return t.Name.String()
	case *PointerType:
		return t.Elem.String() + "*"
	case *ReferenceType:
		if t.RValue {
			return t.Elem.String() + "&&"
		}
		return t.Elem.String() + "&"
	case *ArrayType:
		if t.Size > 0 {
			return t.Elem.String() + "[" + strconv.Itoa(t.Size) + "]"
		}
		return t.Elem.String() + "[]"
	case *Class:
		return symbolTypeString("class", t)
	case *Enum:
		return symbolTypeString("enum", t)
	case *Namespace:
		return symbolTypeString("namespace", t)
	case *Function:
		var b strings.Builder
		b.WriteString(t.ReturnType.String())
		b.WriteByte('(')
		for i, a := range t.Arguments() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(a.Type().String())
		}
		b.WriteByte(')')
		return b.String()
	}
	return "<unknown>"
}

func symbolTypeString(keyword string, s Symbol) string {
	if s.Name() == nil {
		return keyword + " <anonymous>"
	}
	return keyword + " " + s.Name().String()
}
