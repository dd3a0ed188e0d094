package cpp

import "strings"

// FindSymbol resolves a qualified name written from the document's global
// namespace, such as N::C::m, to the first symbol declared along that path.
// Templates are unwrapped to their declaration and a function is entered
// through its body. It returns nil when nothing matches.
func (d *Document) FindSymbol(text string) (Symbol, error) {
	components, err := d.components(text)
	if err != nil || len(components) == 0 {
		return nil, err
	}
	scope, ok := d.walk(components[:len(components)-1])
	if !ok {
		return nil, nil
	}
	found := scope.Find(components[len(components)-1].Identifier())
	if len(found) == 0 {
		return nil, nil
	}
	return unwrapTemplate(found[0]), nil
}

// FindScope is FindSymbol restricted to scopes. An empty name or "::" is the
// global namespace, and a function resolves to its body.
func (d *Document) FindScope(text string) (Scope, error) {
	components, err := d.components(text)
	if err != nil {
		return nil, err
	}
	scope, ok := d.walk(components)
	if !ok {
		return nil, nil
	}
	return scope, nil
}

func (d *Document) components(text string) ([]Name, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "::" {
		return nil, nil
	}
	n, err := ParseName(d.control, text)
	if err != nil {
		return nil, err
	}
	return nameComponents(n), nil
}

func (d *Document) walk(components []Name) (Scope, bool) {
	var scope Scope = d.globalNamespace
	for _, c := range components {
		next := childScope(scope, c.Identifier())
		if next == nil {
			return nil, false
		}
		scope = next
	}
	return scope, true
}

func childScope(scope Scope, id string) Scope {
	if id == "" {
		return nil
	}
	for _, s := range scope.Find(id) {
		switch x := unwrapTemplate(s).(type) {
		case *Function:
			if body := x.Body(); body != nil {
				return body
			}
		case Scope:
			return x
		}
	}
	return nil
}

func unwrapTemplate(s Symbol) Symbol {
	for {
		t, ok := s.(*Template)
		if !ok {
			return s
		}
		d := t.Declaration()
		if d == nil {
			return t
		}
		s = d
	}
}

func nameComponents(n Name) []Name {
	q, ok := n.(*QualifiedNameID)
	if !ok {
		return []Name{n}
	}
	var out []Name
	if q.Base() != nil {
		out = nameComponents(q.Base())
	}
	return append(out, nameComponents(q.Name())...)
}
