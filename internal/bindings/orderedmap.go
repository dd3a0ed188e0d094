package bindings

// orderedMap is a map that iterates in insertion order. Lookup walks over
// child tables must be deterministic, which Go maps are not.
type orderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func (m *orderedMap[K, V]) get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// set inserts or replaces k. Replacing keeps the original position.
func (m *orderedMap[K, V]) set(k K, v V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

func (m *orderedMap[K, V]) len() int { return len(m.keys) }

func (m *orderedMap[K, V]) each(fn func(K, V)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// snapshot returns the values in order, safe against inserts made while the
// caller iterates.
func (m *orderedMap[K, V]) snapshotValues() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}

func (m *orderedMap[K, V]) snapshotKeys() []K {
	return append([]K(nil), m.keys...)
}

func (m *orderedMap[K, V]) clone() orderedMap[K, V] {
	c := orderedMap[K, V]{keys: append([]K(nil), m.keys...)}
	if m.values != nil {
		c.values = make(map[K]V, len(m.values))
		for k, v := range m.values {
			c.values[k] = v
		}
	}
	return c
}
