package bindings

import (
	"github.com/jward/cxxbind/internal/cpp"
)

// maxNestedInstantiationDepth bounds recursive instantiation of classes
// nested in a class template.
const maxNestedInstantiationDepth = 3

// maxInstantiationDepth bounds chains of instantiations triggered while
// resolving dependent base classes.
const maxInstantiationDepth = 16

// instantiate creates the node for templateID, an instantiation of the class
// template bound to reference. The node is cached on base so the same
// template-id always yields the same node.
func (n *ClassOrNamespace) instantiate(templateID *cpp.TemplateNameID, base, reference *ClassOrNamespace, referenceClass *cpp.Class, allBases []cpp.Name, knownUsings map[*ClassOrNamespace]struct{}, processed map[*ClassOrNamespace]struct{}, origin *ClassOrNamespace) *ClassOrNamespace {
	key := templateID.Key()
	n.consideredTemplates[key] = struct{}{}
	defer delete(n.consideredTemplates, key)
	n.factory.instantiationDepth++
	defer func() { n.factory.instantiationDepth-- }()

	inst := n.factory.allocate(base)
	inst.name = templateID
	inst.templateID = templateID
	base.instantiations[key] = inst

	for origin != nil && len(origin.symbols) > 0 {
		if _, ok := origin.symbols[0].(*cpp.Block); !ok {
			break
		}
		origin = origin.parent
	}
	inst.instantiationOrigin = origin
	inst.rootClass = reference.rootClass
	inst.enums = append(inst.enums, reference.enums...)
	inst.nested = reference.nested.clone()

	tmpl := referenceClass.EnclosingTemplate()
	if tmpl == nil {
		for _, u := range reference.usings {
			inst.addUsing(u)
		}
		inst.addSymbols(reference.symbols)
		return inst
	}

	c := newCloner(n.factory.control)
	s := bindTemplateArguments(c, tmpl, templateID)
	params := parameterNames(tmpl)

	// Bases written in terms of the template's parameters were bound to
	// unsubstituted instantiations when the template itself was visited.
	for _, u := range reference.usings {
		if u.templateID != nil && dependsOn(u.templateID, params) {
			continue
		}
		inst.addUsing(u)
	}

	if n.factory.expandTemplates {
		for _, sym := range reference.symbols {
			clone := c.symbol(sym, s)
			clone.SetEnclosingScope(sym.EnclosingScope())
			inst.addSymbol(clone)
		}
		inst.expanded = true
		ni := &nestedInstantiator{factory: n.factory, cloner: c, subst: s, considered: make(map[*ClassOrNamespace]struct{})}
		ni.instantiate(reference, inst)
	} else {
		inst.addSymbols(reference.symbols)
	}

	for _, baseName := range allBases {
		var baseBinding *ClassOrNamespace
		switch bn := baseName.(type) {
		case *cpp.NameID:
			// struct D : T
			if ty, ok := s.lookup(bn); ok {
				if nt := ty.NamedType(); nt != nil {
					baseBinding = n.lookupType(nt.Name)
				} else if class := ty.ClassType(); class != nil {
					baseBinding = n.factory.lookupTypeOfSymbol(class, nil)
				}
			}
		case *cpp.TemplateNameID:
			// struct D : B<T>
			rewritten := c.name(bn, s).(*cpp.TemplateNameID)
			if rewritten.Identifier() != templateID.Identifier() {
				baseBinding = n.nestedType(rewritten, processed, origin)
				if baseBinding == nil {
					baseBinding = n.lookupType(rewritten)
				}
			}
		case *cpp.QualifiedNameID:
			// struct D : B<T>::Type
			rewritten := c.name(bn, s).(*cpp.QualifiedNameID)
			binding := n
			if qual := rewritten.Base(); qual != nil {
				if qt, ok := qual.(*cpp.TemplateNameID); !ok || qt.Identifier() != templateID.Identifier() {
					binding = n.lookupType(qual)
				}
			}
			if binding != nil {
				baseBinding = binding.lookupType(rewritten.Name())
			}
		}
		if baseBinding == nil || baseBinding == inst {
			continue
		}
		if _, ok := knownUsings[baseBinding]; !ok {
			inst.addUsing(baseBinding)
		}
	}
	return inst
}

// findSpecialization picks a partial specialization for templateID:
// Vector<T*> for pointer arguments and Vector<T[N]> for array arguments.
func findSpecialization(templateID *cpp.TemplateNameID, specs *orderedMap[string, specialization]) *ClassOrNamespace {
	for _, sp := range specs.snapshotValues() {
		if sp.id.TemplateArgumentCount() != templateID.TemplateArgumentCount() {
			continue
		}
		for i := 0; i < templateID.TemplateArgumentCount(); i++ {
			specArg := sp.id.TemplateArgumentAt(i)
			initArg := templateID.TemplateArgumentAt(i)
			if specPtr, ok := specArg.Type.(*cpp.PointerType); ok {
				if _, ok := initArg.Type.(*cpp.PointerType); ok && specPtr.Elem.NamedType() != nil {
					return sp.node
				}
			}
			if specArr, ok := specArg.Type.(*cpp.ArrayType); ok {
				if _, ok := initArg.Type.(*cpp.ArrayType); ok {
					if nt := specArr.Elem.NamedType(); nt != nil {
						if found := findSpecializationWithMatchingTemplateArgument(nt.Name, sp.node); found != nil {
							return found
						}
					}
				}
			}
		}
	}
	return nil
}

func findSpecializationWithMatchingTemplateArgument(argName cpp.Name, reference *ClassOrNamespace) *ClassOrNamespace {
	for _, s := range reference.flushedSymbols() {
		class, ok := s.(*cpp.Class)
		if !ok {
			continue
		}
		tmpl := class.EnclosingTemplate()
		if tmpl == nil {
			continue
		}
		for i := 0; i < tmpl.TemplateParameterCount(); i++ {
			if param, ok := tmpl.TemplateParameterAt(i).(*cpp.TypenameArgument); ok && cpp.NamesMatch(param.Name(), argName) {
				return reference
			}
		}
	}
	return nil
}

// nestedInstantiator clones the classes nested in a class template when
// their declarations mention a template parameter.
type nestedInstantiator struct {
	factory    *Bindings
	cloner     *cloner
	subst      *subst
	considered map[*ClassOrNamespace]struct{}
}

func (ni *nestedInstantiator) instantiate(enclosing, enclosingInst *ClassOrNamespace) {
	if len(ni.considered) >= maxNestedInstantiationDepth {
		return
	}
	if _, ok := ni.considered[enclosing]; ok {
		return
	}
	ni.considered[enclosing] = struct{}{}
	defer delete(ni.considered, enclosing)

	enclosing.flush()
	for _, key := range enclosing.nested.snapshotKeys() {
		nested, _ := enclosing.nested.get(key)
		nestedInst := nested
		if ni.needsInstantiation(nested.flushedSymbols()) {
			nestedInst = ni.factory.allocate(nested.parent)
			nestedInst.name = nested.name
			nestedInst.enums = append(nestedInst.enums, nested.enums...)
			for _, u := range nested.usings {
				nestedInst.addUsing(u)
			}
			nestedInst.instantiationOrigin = nested
			nestedInst.nested = nested.nested.clone()
			for _, s := range nested.symbols {
				clone := ni.cloner.symbol(s, ni.subst)
				if clone.EnclosingScope() == nil {
					clone.SetEnclosingScope(s.EnclosingScope())
				}
				nestedInst.addSymbol(clone)
			}
			nestedInst.expanded = true
			if encloses(nestedInst, enclosing) {
				nestedInst.parent = enclosingInst
			}
		}
		ni.instantiate(nested, nestedInst)
		enclosingInst.nested.set(key, nestedInst)
	}
}

func encloses(node, enclosing *ClassOrNamespace) bool {
	seen := make(map[*ClassOrNamespace]struct{})
	for b := node; b != nil; b = b.parent {
		if _, ok := seen[b]; ok {
			return false
		}
		seen[b] = struct{}{}
		if b == enclosing {
			return true
		}
	}
	return false
}

func (ni *nestedInstantiator) needsInstantiation(symbols []cpp.Symbol) bool {
	for _, s := range symbols {
		class, ok := s.(*cpp.Class)
		if !ok {
			continue
		}
		for _, m := range class.Members() {
			switch m := m.(type) {
			case *cpp.Declaration:
				if ni.containsTemplateType(m.Type()) {
					return true
				}
			case *cpp.Function:
				if ni.containsTemplateType(m.ReturnType) {
					return true
				}
			}
		}
	}
	return false
}

func (ni *nestedInstantiator) containsTemplateType(t cpp.FullySpecifiedType) bool {
	for {
		switch tt := t.Type.(type) {
		case *cpp.PointerType:
			t = tt.Elem
		case *cpp.ReferenceType:
			t = tt.Elem
		case *cpp.NamedType:
			return ni.subst.contains(tt.Name)
		default:
			return false
		}
	}
}

// instantiateItemType substitutes templateID's arguments into the type of s,
// a member of a class template.
func (b *Bindings) instantiateItemType(templateID *cpp.TemplateNameID, s cpp.Symbol) cpp.FullySpecifiedType {
	tmpl := cpp.EnclosingTemplate(s)
	if tmpl == nil {
		return cpp.FullySpecifiedType{}
	}
	c := newCloner(b.control)
	sub := bindTemplateArguments(c, tmpl, templateID)
	return c.typ(s.Type(), sub)
}

// instantiateTemplateFunction returns a clone of the function template tmpl
// with name's arguments substituted, or nil if tmpl does not declare a
// function.
func (b *Bindings) instantiateTemplateFunction(name *cpp.TemplateNameID, tmpl *cpp.Template) cpp.Symbol {
	if _, ok := tmpl.Declaration().(*cpp.Function); !ok {
		return nil
	}
	c := newCloner(b.control)
	sub := bindTemplateArguments(c, tmpl, name)
	return c.symbol(tmpl, sub)
}

func bindTemplateArguments(c *cloner, tmpl *cpp.Template, templateID *cpp.TemplateNameID) *subst {
	s := newSubst()
	for i := 0; i < tmpl.TemplateParameterCount(); i++ {
		param, ok := tmpl.TemplateParameterAt(i).(*cpp.TypenameArgument)
		if !ok || param.Name() == nil {
			continue
		}
		if i < templateID.TemplateArgumentCount() {
			s.bind(param.Name(), templateID.TemplateArgumentAt(i))
		} else if param.Default.IsValid() {
			s.bind(param.Name(), c.typ(param.Default, s))
		}
	}
	return s
}

func parameterNames(tmpl *cpp.Template) map[string]struct{} {
	params := make(map[string]struct{}, tmpl.TemplateParameterCount())
	for i := 0; i < tmpl.TemplateParameterCount(); i++ {
		if p := tmpl.TemplateParameterAt(i); p.Identifier() != "" {
			params[p.Identifier()] = struct{}{}
		}
	}
	return params
}

// dependsOn reports whether any argument of id names one of params.
func dependsOn(id *cpp.TemplateNameID, params map[string]struct{}) bool {
	for _, arg := range id.TemplateArguments() {
		if typeDependsOn(arg, params) {
			return true
		}
	}
	return false
}

func typeDependsOn(t cpp.FullySpecifiedType, params map[string]struct{}) bool {
	switch tt := t.Type.(type) {
	case *cpp.NamedType:
		switch n := tt.Name.(type) {
		case *cpp.NameID:
			_, ok := params[n.Identifier()]
			return ok
		case *cpp.TemplateNameID:
			return dependsOn(n, params)
		}
	case *cpp.PointerType:
		return typeDependsOn(tt.Elem, params)
	case *cpp.ReferenceType:
		return typeDependsOn(tt.Elem, params)
	case *cpp.ArrayType:
		return typeDependsOn(tt.Elem, params)
	}
	return false
}
