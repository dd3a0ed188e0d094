package bindings

import (
	"strings"

	"github.com/jward/cxxbind/internal/cpp"
)

// InlineNamespacePolicy controls whether inline namespaces appear in paths.
type InlineNamespacePolicy int

const (
	ShowInlineNamespaces InlineNamespacePolicy = iota
	HideInlineNamespaces
)

// Path returns the names of the scopes symbol opens, outermost first: the
// enclosing path plus the symbol itself when it is a namespace, class,
// scoped enum or Objective-C type. A function contributes only the
// qualifier of an out-of-line definition.
func Path(symbol cpp.Symbol, policy InlineNamespacePolicy) []cpp.Name {
	var names []cpp.Name
	pathHelper(symbol, &names, policy)
	return names
}

func pathHelper(symbol cpp.Symbol, names *[]cpp.Name, policy InlineNamespacePolicy) {
	if symbol == nil {
		return
	}
	if enclosing := symbol.EnclosingScope(); enclosing != nil {
		pathHelper(enclosing, names, policy)
	}
	if symbol.Name() == nil {
		return
	}
	switch s := symbol.(type) {
	case *cpp.Namespace:
		if s.Inline && policy == HideInlineNamespaces {
			return
		}
		addNames(s.Name(), names, false)
	case *cpp.Class, *cpp.ForwardClassDeclaration,
		*cpp.ObjCClass, *cpp.ObjCProtocol, *cpp.ObjCForwardClassDeclaration, *cpp.ObjCForwardProtocolDeclaration:
		addNames(s.Name(), names, false)
	case *cpp.Enum:
		if s.Scoped {
			addNames(s.Name(), names, false)
		}
	case *cpp.Function:
		if q, ok := s.Name().(*cpp.QualifiedNameID); ok {
			addNames(q.Base(), names, false)
		}
	}
}

// addNames flattens name into its components. Only simple names are kept
// unless addAll is set, which keeps operator names as the final component.
func addNames(name cpp.Name, names *[]cpp.Name, addAll bool) {
	switch n := name.(type) {
	case nil:
		return
	case *cpp.QualifiedNameID:
		addNames(n.Base(), names, false)
		addNames(n.Name(), names, addAll)
	default:
		if addAll || cpp.IsSimpleName(n) {
			*names = append(*names, n)
		}
	}
}

// FullyQualifiedName returns the path of symbol's enclosing scope followed
// by the components of symbol's own name.
func FullyQualifiedName(symbol cpp.Symbol, policy InlineNamespacePolicy) []cpp.Name {
	if symbol == nil {
		return nil
	}
	var names []cpp.Name
	if enclosing := symbol.EnclosingScope(); enclosing != nil {
		names = Path(enclosing, policy)
	}
	addNames(symbol.Name(), &names, true)
	return names
}

// CompareFullyQualifiedName reports whether two name lists match component
// by component.
func CompareFullyQualifiedName(a, b []cpp.Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !cpp.NamesMatch(a[i], b[i]) {
			return false
		}
	}
	return true
}

// JoinNames spells names separated by "::".
func JoinNames(names []cpp.Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, "::")
}

// MinimalName returns the shortest suffix of symbol's qualified name that
// resolves back to symbol when looked up from target. Candidates grow from
// the bare identifier outward; the fully qualified name is returned when no
// shorter candidate resolves. A nil target yields the fully qualified name.
func MinimalName(symbol cpp.Symbol, target *ClassOrNamespace, control *cpp.Control) cpp.Name {
	if symbol == nil {
		return nil
	}
	if control == nil {
		control = cpp.NewControl()
	}
	names := FullyQualifiedName(symbol, HideInlineNamespaces)
	if len(names) == 0 {
		return nil
	}
	if target == nil {
		return control.Qualify(names)
	}

	target.factory.mu.Lock()
	defer target.factory.mu.Unlock()
	for i := len(names) - 1; i >= 0; i-- {
		candidate := control.Qualify(names[i:])
		for _, item := range target.lookup(candidate, true) {
			if symbolIdentical(item.Declaration, symbol) {
				return candidate
			}
		}
	}
	return control.Qualify(names)
}

// symbolIdentical compares declarations by position. Clones produced for
// template instantiations keep the position of their original.
func symbolIdentical(a, b cpp.Symbol) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	return a.Line() == b.Line() && a.Column() == b.Column() && a.FileName() == b.FileName()
}
