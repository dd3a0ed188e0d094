package bindings

// BaseClasses returns the nodes n derives from, transitively and nearest
// first. Each node is reported once, so cyclic hierarchies terminate.
func (n *ClassOrNamespace) BaseClasses() []*ClassOrNamespace {
	n.factory.mu.Lock()
	defer n.factory.mu.Unlock()

	seen := map[*ClassOrNamespace]struct{}{n: {}}
	var bases []*ClassOrNamespace
	queue := append([]*ClassOrNamespace(nil), n.flushedUsings()...)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		bases = append(bases, u)
		queue = append(queue, u.flushedUsings()...)
	}
	return bases
}

// DerivesFrom reports whether base is among n's transitive bases.
func (n *ClassOrNamespace) DerivesFrom(base *ClassOrNamespace) bool {
	if base == nil {
		return false
	}
	for _, b := range n.BaseClasses() {
		if b == base {
			return true
		}
	}
	return false
}
