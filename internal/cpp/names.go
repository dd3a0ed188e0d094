package cpp

import (
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Name is a possibly qualified, possibly templated C++ name.
//
// Two names match when they are the same variant with equal components.
// Key returns a canonical text form suitable for map keys: matching names
// have equal keys.
type Name interface {
	// Identifier returns the final identifier of the name, or "" when the
	// name has none (anonymous names).
	Identifier() string
	Key() string
	String() string
	Match(other Name) bool
}

// NameID is a plain identifier.
type NameID struct {
	id string
}

func (n *NameID) Identifier() string { return n.id }
func (n *NameID) Key() string        { return n.id }
func (n *NameID) String() string     { return n.id }

func (n *NameID) Match(other Name) bool {
	o, ok := other.(*NameID)
	return ok && o.id == n.id
}

// TemplateNameID is an identifier followed by a template argument list, as
// in Vector<int>. Specialization is set on the names of explicit
// specializations (template<> class Vector<bool>).
type TemplateNameID struct {
	id             string
	args           []FullySpecifiedType
	specialization bool
}

func (n *TemplateNameID) Identifier() string                          { return n.id }
func (n *TemplateNameID) IsSpecialization() bool                      { return n.specialization }
func (n *TemplateNameID) TemplateArgumentCount() int                  { return len(n.args) }
func (n *TemplateNameID) TemplateArgumentAt(i int) FullySpecifiedType { return n.args[i] }

// TemplateArguments returns a copy of the argument list.
func (n *TemplateNameID) TemplateArguments() []FullySpecifiedType {
	return append([]FullySpecifiedType(nil), n.args...)
}

func (n *TemplateNameID) Key() string { return n.String() }

func (n *TemplateNameID) String() string {
	var b strings.Builder
	b.WriteString(n.id)
	b.WriteByte('<')
	for i, a := range n.args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte('>')
	return b.String()
}

// Match compares identifiers and arguments. The specialization flag does not
// take part.
func (n *TemplateNameID) Match(other Name) bool {
	o, ok := other.(*TemplateNameID)
	if !ok || o.id != n.id || len(o.args) != len(n.args) {
		return false
	}
	for i := range n.args {
		if !n.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

// QualifiedNameID is Base::Name. A nil Base denotes the global qualifier
// (::Name).
type QualifiedNameID struct {
	base Name
	name Name
}

func (n *QualifiedNameID) Base() Name         { return n.base }
func (n *QualifiedNameID) Name() Name         { return n.name }
func (n *QualifiedNameID) Identifier() string { return n.name.Identifier() }
func (n *QualifiedNameID) Key() string        { return n.String() }

func (n *QualifiedNameID) String() string {
	if n.base == nil {
		return "::" + n.name.String()
	}
	return n.base.String() + "::" + n.name.String()
}

func (n *QualifiedNameID) Match(other Name) bool {
	o, ok := other.(*QualifiedNameID)
	if !ok || !n.name.Match(o.name) {
		return false
	}
	if n.base == nil || o.base == nil {
		return n.base == nil && o.base == nil
	}
	return n.base.Match(o.base)
}

// AnonymousNameID names an anonymous namespace, class or union. Every
// AnonymousNameID allocated by a Control carries a process-unique serial.
type AnonymousNameID struct {
	serial int64
}

func (n *AnonymousNameID) Serial() int64      { return n.serial }
func (n *AnonymousNameID) Identifier() string { return "" }
func (n *AnonymousNameID) Key() string        { return "<anonymous#" + strconv.FormatInt(n.serial, 10) + ">" }
func (n *AnonymousNameID) String() string     { return "<anonymous>" }

func (n *AnonymousNameID) Match(other Name) bool {
	o, ok := other.(*AnonymousNameID)
	return ok && o.serial == n.serial
}

// OperatorNameID is an operator function name such as operator==.
type OperatorNameID struct {
	op string
}

func (n *OperatorNameID) Operator() string   { return n.op }
func (n *OperatorNameID) Identifier() string { return "" }
func (n *OperatorNameID) Key() string        { return n.String() }
func (n *OperatorNameID) String() string     { return "operator" + n.op }

func (n *OperatorNameID) Match(other Name) bool {
	o, ok := other.(*OperatorNameID)
	return ok && o.op == n.op
}

// IsSimpleName reports whether n is a plain identifier, template-id or
// anonymous name, the forms that denote one component of a scope path.
func IsSimpleName(n Name) bool {
	switch n.(type) {
	case *NameID, *TemplateNameID, *AnonymousNameID:
		return true
	}
	return false
}

// NamesMatch is Match with nil handling.
func NamesMatch(a, b Name) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Match(b)
}

var anonymousSerial atomic.Int64

// Control allocates names. Plain identifiers are interned so repeated
// requests return the same *NameID. A Control is safe for concurrent use.
type Control struct {
	mu  sync.Mutex
	ids map[string]*NameID
	ops map[string]*OperatorNameID
}

// NewControl returns an empty Control.
func NewControl() *Control {
	return &Control{
		ids: make(map[string]*NameID),
		ops: make(map[string]*OperatorNameID),
	}
}

// NameID returns the interned name for id.
func (c *Control) NameID(id string) *NameID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.ids[id]; ok {
		return n
	}
	n := &NameID{id: id}
	c.ids[id] = n
	return n
}

// TemplateNameID returns id<args...>.
func (c *Control) TemplateNameID(id string, specialization bool, args ...FullySpecifiedType) *TemplateNameID {
	return &TemplateNameID{
		id:             id,
		args:           append([]FullySpecifiedType(nil), args...),
		specialization: specialization,
	}
}

// QualifiedNameID returns base::name. base may be nil for ::name.
func (c *Control) QualifiedNameID(base, name Name) *QualifiedNameID {
	return &QualifiedNameID{base: base, name: name}
}

// AnonymousNameID returns a fresh anonymous name.
func (c *Control) AnonymousNameID() *AnonymousNameID {
	return &AnonymousNameID{serial: anonymousSerial.Add(1)}
}

// OperatorNameID returns the interned name for operator op.
func (c *Control) OperatorNameID(op string) *OperatorNameID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.ops[op]; ok {
		return n
	}
	n := &OperatorNameID{op: op}
	c.ops[op] = n
	return n
}

// Qualify folds names into a single left-nested qualified name. It returns
// nil for an empty list.
func (c *Control) Qualify(names []Name) Name {
	var n Name
	for _, part := range names {
		if n == nil {
			n = part
			continue
		}
		n = c.QualifiedNameID(n, part)
	}
	return n
}
