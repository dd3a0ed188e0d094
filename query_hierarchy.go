package cxxbind

import (
	"context"
	"fmt"

	"github.com/jward/cxxbind/internal/cpp"
)

// TypeHierarchy is the inheritance view of a single class.
type TypeHierarchy struct {
	Type        TypeResult   // the queried class
	DirectBases []TypeResult // base-specifiers that resolved, in declaration order
	Bases       []TypeResult // transitive bases, nearest first
	Derived     []TypeResult // classes deriving from Type, depth-first
}

// BaseClasses returns the transitive bases of class, nearest first. It
// returns nil when class names no class.
func (q *Query) BaseClasses(ctx context.Context, file, class string) ([]TypeResult, error) {
	_, node, err := q.resolveClass(ctx, "base classes", file, class)
	if err != nil || node == nil {
		return nil, err
	}
	return q.typeResults(node.BaseClasses()), nil
}

// DerivedClasses returns every class in the snapshot whose bases resolve to
// class, depth-first: each direct subclass is followed by its own
// subclasses. Cancellation is checked between documents.
func (q *Query) DerivedClasses(ctx context.Context, file, class string) ([]TypeResult, error) {
	r, node, err := q.resolveClass(ctx, "derived classes", file, class)
	if err != nil || node == nil {
		return nil, err
	}
	derived, err := q.derived(ctx, r, node)
	if err != nil {
		return nil, fmt.Errorf("derived classes: %w", err)
	}
	return q.typeResults(derived), nil
}

// TypeHierarchy returns the bases and subclasses of class, or nil when class
// names no class.
func (q *Query) TypeHierarchy(ctx context.Context, file, class string) (*TypeHierarchy, error) {
	r, node, err := q.resolveClass(ctx, "type hierarchy", file, class)
	if err != nil || node == nil {
		return nil, err
	}
	derived, err := q.derived(ctx, r, node)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	return &TypeHierarchy{
		Type:        q.typeResult(node),
		DirectBases: q.typeResults(node.Usings()),
		Bases:       q.typeResults(node.BaseClasses()),
		Derived:     q.typeResults(derived),
	}, nil
}

func (q *Query) resolveClass(ctx context.Context, action, file, class string) (*resolved, *ClassOrNamespace, error) {
	r, err := q.resolve(ctx, action, file, class, "")
	if err != nil || r == nil {
		return nil, nil, err
	}
	node := r.lc.LookupType(r.name, r.scope, nil)
	if node == nil {
		return nil, nil, nil
	}
	if kind, ok := node.Kind(); !ok || kind != cpp.KindClass {
		return nil, nil, nil
	}
	return r, node, nil
}

// derived collects the direct base edges of every class in the snapshot,
// then walks them down from root.
func (q *Query) derived(ctx context.Context, r *resolved, root *ClassOrNamespace) ([]*ClassOrNamespace, error) {
	subclasses := make(map[*ClassOrNamespace][]*ClassOrNamespace)
	seen := make(map[*ClassOrNamespace]struct{})
	for _, doc := range r.lc.Snapshot().Documents() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		forEachClass(doc.GlobalNamespace(), func(c *cpp.Class) {
			if len(c.BaseClasses()) == 0 {
				return
			}
			node := r.lc.LookupTypeOfSymbol(c, nil)
			if node == nil {
				return
			}
			if _, ok := seen[node]; ok {
				return
			}
			seen[node] = struct{}{}
			for _, base := range node.Usings() {
				subclasses[base] = append(subclasses[base], node)
			}
		})
	}

	var out []*ClassOrNamespace
	visited := map[*ClassOrNamespace]struct{}{root: {}}
	var walk func(n *ClassOrNamespace)
	walk = func(n *ClassOrNamespace) {
		for _, sub := range subclasses[n] {
			if _, ok := visited[sub]; ok {
				continue
			}
			visited[sub] = struct{}{}
			out = append(out, sub)
			walk(sub)
		}
	}
	walk(root)
	return out, nil
}

// forEachClass visits the named classes declared in namespaces, classes and
// templates under scope. Function bodies are not entered.
func forEachClass(scope cpp.Scope, fn func(*cpp.Class)) {
	for _, m := range scope.Members() {
		switch s := m.(type) {
		case *cpp.Namespace:
			forEachClass(s, fn)
		case *cpp.Class:
			if s.Name() != nil {
				fn(s)
			}
			forEachClass(s, fn)
		case *cpp.Template:
			if c, ok := s.Declaration().(*cpp.Class); ok {
				if c.Name() != nil {
					fn(c)
				}
				forEachClass(c, fn)
			}
		}
	}
}

func (q *Query) typeResults(nodes []*ClassOrNamespace) []TypeResult {
	out := make([]TypeResult, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, q.typeResult(n))
	}
	return out
}
