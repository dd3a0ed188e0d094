// Package deptable computes the transitive include relation of a snapshot
// and answers "which files depend on X" queries.
package deptable

import (
	"context"
	"math/bits"

	"github.com/jward/cxxbind/internal/cpp"
)

// Table holds the direct and transitive include bitsets of one snapshot.
// It is rebuilt wholesale by Build. A Table whose last Build was cancelled is
// incomplete and answers every query with an empty result.
type Table struct {
	files    []string
	index    map[string]int
	includes [][]int
	direct   []bitset
	closure  []bitset
	complete bool
}

// New returns an empty Table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Build computes the tables for snap. It checks ctx before each file and
// between closure passes and returns ctx.Err() as soon as it is done; the
// table is then incomplete and must be discarded.
func (t *Table) Build(ctx context.Context, snap *cpp.Snapshot) error {
	t.reset()
	if err := ctx.Err(); err != nil {
		return err
	}

	docs := snap.Documents()
	t.files = make([]string, len(docs))
	for i, doc := range docs {
		t.files[i] = doc.FileName()
		t.index[doc.FileName()] = i
	}

	n := len(docs)
	t.includes = make([][]int, n)
	t.direct = make([]bitset, n)
	for i, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		bs := newBitset(n)
		var list []int
		for _, inc := range doc.IncludedFiles() {
			j, ok := t.index[inc]
			if !ok {
				continue
			}
			if !bs.has(j) {
				bs.set(j)
				list = append(list, j)
			}
		}
		t.direct[i] = bs
		t.includes[i] = list
	}

	t.closure = make([]bitset, n)
	for i := range t.direct {
		t.closure[i] = t.direct[i].clone()
	}

	for changed := true; changed; {
		changed = false
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range t.closure {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, j := range t.includes[i] {
				if t.closure[i].or(t.closure[j]) {
					changed = true
				}
			}
		}
	}

	t.complete = true
	return nil
}

func (t *Table) reset() {
	t.files = nil
	t.index = make(map[string]int)
	t.includes = nil
	t.direct = nil
	t.closure = nil
	t.complete = false
}

// Complete reports whether the last Build finished.
func (t *Table) Complete() bool { return t.complete }

// Files returns the indexed files in index order.
func (t *Table) Files() []string {
	if !t.complete {
		return nil
	}
	return append([]string(nil), t.files...)
}

// Contains reports whether file is indexed.
func (t *Table) Contains(file string) bool {
	if !t.complete {
		return false
	}
	_, ok := t.index[file]
	return ok
}

// FilesDependingOn returns every file that transitively includes file, in
// index order. An unknown file yields nil.
func (t *Table) FilesDependingOn(file string) []string {
	if !t.complete {
		return nil
	}
	idx, ok := t.index[file]
	if !ok {
		return nil
	}
	var deps []string
	for i, bs := range t.closure {
		if bs.has(idx) {
			deps = append(deps, t.files[i])
		}
	}
	return deps
}

// Includes returns every file that file transitively includes.
func (t *Table) Includes(file string) []string {
	return t.members(file, t.closure)
}

// DirectIncludes returns the snapshot files that file includes directly.
func (t *Table) DirectIncludes(file string) []string {
	return t.members(file, t.direct)
}

func (t *Table) members(file string, sets []bitset) []string {
	if !t.complete {
		return nil
	}
	idx, ok := t.index[file]
	if !ok {
		return nil
	}
	var out []string
	sets[idx].each(func(i int) {
		out = append(out, t.files[i])
	})
	return out
}

// bitset is a fixed-size set of file indexes.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }
func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }

func (b bitset) clone() bitset {
	return append(bitset(nil), b...)
}

// or merges o into b and reports whether b changed.
func (b bitset) or(o bitset) bool {
	changed := false
	for i := range b {
		merged := b[i] | o[i]
		if merged != b[i] {
			b[i] = merged
			changed = true
		}
	}
	return changed
}

func (b bitset) each(fn func(int)) {
	for w, word := range b {
		for word != 0 {
			tz := bits.TrailingZeros64(word)
			fn(w*64 + tz)
			word &= word - 1
		}
	}
}
