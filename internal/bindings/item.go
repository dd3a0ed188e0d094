package bindings

import (
	"github.com/jward/cxxbind/internal/cpp"
)

// LookupItem is one result of a name lookup.
type LookupItem struct {
	// Declaration is the symbol the name resolved to.
	Declaration cpp.Symbol
	// Scope is the scope the declaration was found in.
	Scope cpp.Scope
	// Type overrides the declaration's type, for members of template
	// instantiations and resolved namespace aliases.
	Type cpp.FullySpecifiedType
	// Binding is the node the lookup found the declaration through.
	Binding *ClassOrNamespace
}

// EffectiveType returns Type when set and the declaration's type otherwise.
func (i LookupItem) EffectiveType() cpp.FullySpecifiedType {
	if i.Type.IsValid() {
		return i.Type
	}
	if i.Declaration != nil {
		return i.Declaration.Type()
	}
	return cpp.FullySpecifiedType{}
}

// EffectiveScope returns Scope when set and the declaration's enclosing
// scope otherwise.
func (i LookupItem) EffectiveScope() cpp.Scope {
	if i.Scope != nil {
		return i.Scope
	}
	if i.Declaration != nil {
		return i.Declaration.EnclosingScope()
	}
	return nil
}
