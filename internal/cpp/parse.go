package cpp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tscpp "github.com/smacker/go-tree-sitter/cpp"
)

// Names and type-ids are not translation units on their own, so each is
// parsed inside a one-line wrapper and the node spanning the input is
// taken back out of the tree.
const (
	typeWrapper       = "using __cxxbind_t = "
	declaratorWrapper = "void "
)

// ParseName parses a C++ id-expression such as A::B<int, T*>::c, ::x or
// operator== into a Name.
func ParseName(c *Control, text string) (Name, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("parse name %q: empty input", text)
	}
	var n Name
	err := parseWrapped(typeWrapper+text+";", func(s *snippet) error {
		td, err := s.typeDescriptor(len(typeWrapper), len(text))
		if err != nil {
			return err
		}
		if td.ChildByFieldName("declarator") != nil || td.NamedChildCount() != 1 {
			return fmt.Errorf("not a name")
		}
		n, err = s.name(c, td.ChildByFieldName("type"))
		return err
	})
	if err == nil {
		return n, nil
	}
	// Operator names only parse in declarator position.
	err = parseWrapped(declaratorWrapper+text+"();", func(s *snippet) error {
		d, err := s.declaratorName(len(declaratorWrapper), len(text))
		if err != nil {
			return err
		}
		n, err = s.name(c, d)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("parse name %q: %w", text, err)
	}
	return n, nil
}

// ParseType parses a type-id such as const std::string& or int*[4].
func ParseType(c *Control, text string) (FullySpecifiedType, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return FullySpecifiedType{}, fmt.Errorf("parse type %q: empty input", text)
	}
	var ty FullySpecifiedType
	err := parseWrapped(typeWrapper+text+";", func(s *snippet) error {
		td, err := s.typeDescriptor(len(typeWrapper), len(text))
		if err != nil {
			return err
		}
		ty, err = s.fullType(c, td)
		return err
	})
	if err != nil {
		return FullySpecifiedType{}, fmt.Errorf("parse type %q: %w", text, err)
	}
	return ty, nil
}

// snippet is one parsed wrapper unit. Its nodes are valid only inside the
// parseWrapped callback.
type snippet struct {
	src  []byte
	root *sitter.Node
}

func parseWrapped(src string, fn func(*snippet) error) error {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tscpp.GetLanguage())

	b := []byte(src)
	tree, err := parser.ParseCtx(context.Background(), nil, b)
	if err != nil {
		return fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return fmt.Errorf("syntax error")
	}
	if root.NamedChildCount() != 1 {
		return fmt.Errorf("expected a single declaration")
	}
	return fn(&snippet{src: b, root: root})
}

func (s *snippet) text(n *sitter.Node) string { return n.Content(s.src) }

// spans reports whether n covers exactly the wrapped input.
func spans(n *sitter.Node, start, length int) bool {
	return n != nil && int(n.StartByte()) == start && int(n.EndByte()) == start+length
}

func (s *snippet) typeDescriptor(start, length int) (*sitter.Node, error) {
	decl := s.root.NamedChild(0)
	if decl.Type() != "alias_declaration" {
		return nil, fmt.Errorf("unexpected %s", decl.Type())
	}
	td := decl.ChildByFieldName("type")
	if !spans(td, start, length) || td.Type() != "type_descriptor" {
		return nil, fmt.Errorf("trailing input")
	}
	return td, nil
}

func (s *snippet) declaratorName(start, length int) (*sitter.Node, error) {
	decl := s.root.NamedChild(0)
	if decl.Type() != "declaration" {
		return nil, fmt.Errorf("unexpected %s", decl.Type())
	}
	fn := decl.ChildByFieldName("declarator")
	if fn == nil || fn.Type() != "function_declarator" {
		return nil, fmt.Errorf("not a declarator name")
	}
	d := fn.ChildByFieldName("declarator")
	if !spans(d, start, length) {
		return nil, fmt.Errorf("trailing input")
	}
	return d, nil
}

func (s *snippet) name(c *Control, n *sitter.Node) (Name, error) {
	var parts []Name
	global := false
	for n != nil && n.Type() == "qualified_identifier" {
		scope := n.ChildByFieldName("scope")
		switch {
		case scope != nil:
			part, err := s.component(c, scope)
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
		case len(parts) == 0:
			global = true
		}
		n = n.ChildByFieldName("name")
	}
	if n == nil {
		return nil, fmt.Errorf("qualified name without a last component")
	}
	last, err := s.component(c, n)
	if err != nil {
		return nil, err
	}
	parts = append(parts, last)

	var out Name
	for i, part := range parts {
		switch {
		case i > 0:
			out = c.QualifiedNameID(out, part)
		case global:
			out = c.QualifiedNameID(nil, part)
		default:
			out = part
		}
	}
	return out, nil
}

func (s *snippet) component(c *Control, n *sitter.Node) (Name, error) {
	switch n.Type() {
	case "identifier", "type_identifier", "namespace_identifier", "field_identifier", "primitive_type":
		return c.NameID(s.text(n)), nil
	case "template_type", "template_function", "template_method":
		id := n.ChildByFieldName("name")
		list := n.ChildByFieldName("arguments")
		if id == nil || list == nil {
			return nil, fmt.Errorf("incomplete template name %q", s.text(n))
		}
		args := make([]FullySpecifiedType, 0, list.NamedChildCount())
		for i := 0; i < int(list.NamedChildCount()); i++ {
			arg, err := s.templateArgument(c, list.NamedChild(i))
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		return c.TemplateNameID(s.text(id), false, args...), nil
	case "operator_name":
		op := strings.TrimPrefix(s.text(n), "operator")
		return c.OperatorNameID(strings.Join(strings.Fields(op), "")), nil
	}
	return nil, fmt.Errorf("unsupported name component %s", n.Type())
}

func (s *snippet) templateArgument(c *Control, n *sitter.Node) (FullySpecifiedType, error) {
	switch n.Type() {
	case "type_descriptor":
		return s.fullType(c, n)
	case "identifier", "qualified_identifier", "template_function":
		name, err := s.name(c, n)
		if err != nil {
			return FullySpecifiedType{}, err
		}
		return Named(name), nil
	}
	return FullySpecifiedType{}, fmt.Errorf("unsupported template argument %q", s.text(n))
}

// fullType converts a type_descriptor: qualifiers and a specifier, then an
// optional abstract declarator applied outwards from the specifier.
func (s *snippet) fullType(c *Control, td *sitter.Node) (FullySpecifiedType, error) {
	spec := td.ChildByFieldName("type")
	if spec == nil {
		return FullySpecifiedType{}, fmt.Errorf("missing type specifier")
	}
	ty, err := s.specifier(c, spec)
	if err != nil {
		return FullySpecifiedType{}, err
	}
	s.qualify(&ty, td)
	if d := td.ChildByFieldName("declarator"); d != nil {
		return s.declarator(ty, d)
	}
	return ty, nil
}

func (s *snippet) specifier(c *Control, n *sitter.Node) (FullySpecifiedType, error) {
	switch n.Type() {
	case "primitive_type", "sized_type_specifier", "placeholder_type_specifier", "auto":
		return Builtin(strings.Join(strings.Fields(s.text(n)), " ")), nil
	case "type_identifier", "qualified_identifier", "template_type":
		name, err := s.name(c, n)
		if err != nil {
			return FullySpecifiedType{}, err
		}
		return Named(name), nil
	}
	return FullySpecifiedType{}, fmt.Errorf("unsupported type specifier %s", n.Type())
}

// qualify applies the type_qualifier children of n to ty.
func (s *snippet) qualify(ty *FullySpecifiedType, n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		q := n.NamedChild(i)
		if q.Type() != "type_qualifier" {
			continue
		}
		switch s.text(q) {
		case "const":
			ty.Const = true
		case "volatile":
			ty.Volatile = true
		}
	}
}

func (s *snippet) declarator(base FullySpecifiedType, d *sitter.Node) (FullySpecifiedType, error) {
	var (
		ty    FullySpecifiedType
		inner *sitter.Node
	)
	switch d.Type() {
	case "abstract_pointer_declarator":
		ty = PointerTo(base)
		s.qualify(&ty, d)
		inner = d.ChildByFieldName("declarator")
	case "abstract_reference_declarator":
		rvalue := strings.HasPrefix(s.text(d), "&&")
		ty = FullySpecifiedType{Type: &ReferenceType{Elem: base, RValue: rvalue}}
		if d.NamedChildCount() > 0 {
			inner = d.NamedChild(0)
		}
	case "abstract_array_declarator":
		size := 0
		if n := d.ChildByFieldName("size"); n != nil {
			v, err := strconv.Atoi(s.text(n))
			if err != nil {
				return FullySpecifiedType{}, fmt.Errorf("bad array bound %q", s.text(n))
			}
			size = v
		}
		ty = FullySpecifiedType{Type: &ArrayType{Elem: base, Size: size}}
		inner = d.ChildByFieldName("declarator")
	case "abstract_parenthesized_declarator":
		if d.NamedChildCount() == 0 {
			return FullySpecifiedType{}, fmt.Errorf("empty parenthesized declarator")
		}
		return s.declarator(base, d.NamedChild(0))
	default:
		return FullySpecifiedType{}, fmt.Errorf("unsupported declarator %s", d.Type())
	}
	if inner != nil {
		return s.declarator(ty, inner)
	}
	return ty, nil
}
