package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/cpp"
	"github.com/jward/cxxbind/internal/deptable"
	"github.com/jward/cxxbind/internal/logger"
)

// Host supplies the loaded snapshot and its derived structures to scripts.
type Host interface {
	Snapshot(ctx context.Context) (*cpp.Snapshot, error)
	DependencyTable(ctx context.Context) (*deptable.Table, error)
	// LookupContext returns the context anchored at file, or nil when the
	// snapshot has no such document.
	LookupContext(ctx context.Context, file string) (*bindings.LookupContext, error)
}

type hostFuncs struct {
	host   Host
	policy bindings.InlineNamespacePolicy
}

func (h *hostFuncs) documentsFn() *object.Builtin {
	return object.NewBuiltin("documents", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("documents", 0, len(args))
		}
		snap, err := h.host.Snapshot(ctx)
		if err != nil {
			return object.Errorf("documents: %v", err)
		}
		return stringList(snap.Files())
	})
}

func (h *hostFuncs) includesFn() *object.Builtin {
	return object.NewBuiltin("includes", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("includes", 1, len(args))
		}
		file, err := toString(args[0])
		if err != nil {
			return object.Errorf("includes: %v", err)
		}
		snap, err := h.host.Snapshot(ctx)
		if err != nil {
			return object.Errorf("includes: %v", err)
		}
		doc := snap.Document(file)
		if doc == nil {
			return object.Errorf("includes: unknown document %q", file)
		}
		results := []object.Object{}
		for _, inc := range doc.Includes() {
			results = append(results, object.NewMap(map[string]object.Object{
				"file": object.NewString(inc.FileName),
				"line": object.NewInt(int64(inc.Line)),
			}))
		}
		return object.NewList(results)
	})
}

func (h *hostFuncs) filesDependingOnFn() *object.Builtin {
	return object.NewBuiltin("files_depending_on", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("files_depending_on", 1, len(args))
		}
		file, err := toString(args[0])
		if err != nil {
			return object.Errorf("files_depending_on: %v", err)
		}
		table, err := h.host.DependencyTable(ctx)
		if err != nil {
			return object.Errorf("files_depending_on: %v", err)
		}
		return stringList(table.FilesDependingOn(file))
	})
}

// lookup(file, name [, scope]) resolves name as written in scope, a
// qualified path such as "N::C::run" (default: the global namespace).
func (h *hostFuncs) lookupFn() *object.Builtin {
	return object.NewBuiltin("lookup", func(ctx context.Context, args ...object.Object) object.Object {
		req, errObj := h.request(ctx, "lookup", args)
		if errObj != nil {
			return errObj
		}
		results := []object.Object{}
		for _, item := range req.lc.Lookup(req.name, req.scope) {
			results = append(results, h.itemToMap(item))
		}
		return object.NewList(results)
	})
}

func (h *hostFuncs) lookupTypeFn() *object.Builtin {
	return object.NewBuiltin("lookup_type", func(ctx context.Context, args ...object.Object) object.Object {
		req, errObj := h.request(ctx, "lookup_type", args)
		if errObj != nil {
			return errObj
		}
		node := req.lc.LookupType(req.name, req.scope, nil)
		if node == nil {
			return object.Nil
		}
		m := map[string]object.Object{
			"name":    object.NewString(h.nodeName(node)),
			"symbols": object.NewInt(int64(len(node.Symbols()))),
		}
		if kind, ok := node.Kind(); ok {
			m["kind"] = object.NewString(kind.String())
		}
		return object.NewMap(m)
	})
}

func (h *hostFuncs) qualifiedNameFn() *object.Builtin {
	return object.NewBuiltin("qualified_name", func(ctx context.Context, args ...object.Object) object.Object {
		req, errObj := h.request(ctx, "qualified_name", args)
		if errObj != nil {
			return errObj
		}
		items := req.lc.Lookup(req.name, req.scope)
		if len(items) == 0 {
			return object.Nil
		}
		return object.NewString(h.qualifiedName(items[0].Declaration))
	})
}

// minimal_name(file, name, target) spells the declaration name resolves to
// as briefly as it can be written inside target.
func (h *hostFuncs) minimalNameFn() *object.Builtin {
	return object.NewBuiltin("minimal_name", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 3 {
			return object.NewArgsError("minimal_name", 3, len(args))
		}
		req, errObj := h.request(ctx, "minimal_name", args[:2])
		if errObj != nil {
			return errObj
		}
		targetText, err := toString(args[2])
		if err != nil {
			return object.Errorf("minimal_name: %v", err)
		}
		targetScope, err := req.doc.FindScope(targetText)
		if err != nil {
			return object.Errorf("minimal_name: %v", err)
		}
		if targetScope == nil {
			return object.Errorf("minimal_name: unknown scope %q", targetText)
		}
		items := req.lc.Lookup(req.name, req.scope)
		if len(items) == 0 {
			return object.Nil
		}
		target := req.lc.LookupTypeOfSymbol(targetScope, nil)
		name := req.lc.MinimalName(items[0].Declaration, target)
		if name == nil {
			return object.Nil
		}
		return object.NewString(name.String())
	})
}

func (h *hostFuncs) baseClassesFn() *object.Builtin {
	return object.NewBuiltin("base_classes", func(ctx context.Context, args ...object.Object) object.Object {
		req, errObj := h.request(ctx, "base_classes", args)
		if errObj != nil {
			return errObj
		}
		results := []object.Object{}
		if node := req.lc.LookupType(req.name, req.scope, nil); node != nil {
			for _, base := range node.BaseClasses() {
				results = append(results, object.NewString(h.nodeName(base)))
			}
		}
		return object.NewList(results)
	})
}

// request is the decoded (file, name [, scope]) argument list shared by the
// lookup functions.
type request struct {
	lc    *bindings.LookupContext
	doc   *cpp.Document
	name  cpp.Name
	scope cpp.Scope
}

func (h *hostFuncs) request(ctx context.Context, fn string, args []object.Object) (*request, object.Object) {
	if len(args) < 2 || len(args) > 3 {
		return nil, object.Errorf("%s: expected 2 or 3 arguments, got %d", fn, len(args))
	}
	file, err := toString(args[0])
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	text, err := toString(args[1])
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	var scopeText string
	if len(args) == 3 {
		if scopeText, err = toString(args[2]); err != nil {
			return nil, object.Errorf("%s: %v", fn, err)
		}
	}

	lc, err := h.host.LookupContext(ctx, file)
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	if lc == nil {
		return nil, object.Errorf("%s: unknown document %q", fn, file)
	}
	if _, err := lc.Prepare(ctx); err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}

	doc := lc.ThisDocument()
	name, err := cpp.ParseName(doc.Control(), text)
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	scope, err := doc.FindScope(scopeText)
	if err != nil {
		return nil, object.Errorf("%s: %v", fn, err)
	}
	if scope == nil {
		return nil, object.Errorf("%s: unknown scope %q", fn, scopeText)
	}
	return &request{lc: lc, doc: doc, name: name, scope: scope}, nil
}

func (h *hostFuncs) qualifiedName(sym cpp.Symbol) string {
	return bindings.JoinNames(bindings.FullyQualifiedName(sym, h.policy))
}

// nodeName prints a node through its first symbol so the inline namespace
// policy applies. Symbol-less nodes fall back to their path.
func (h *hostFuncs) nodeName(node *bindings.ClassOrNamespace) string {
	if syms := node.Symbols(); len(syms) > 0 {
		return h.qualifiedName(syms[0])
	}
	return node.String()
}

func (h *hostFuncs) itemToMap(item bindings.LookupItem) object.Object {
	sym := item.Declaration
	m := map[string]object.Object{
		"name":           object.NewString(nameString(sym.Name())),
		"qualified_name": object.NewString(h.qualifiedName(sym)),
		"kind":           object.NewString(sym.Kind().String()),
		"file":           object.NewString(sym.FileName()),
		"line":           object.NewInt(int64(sym.Line())),
		"column":         object.NewInt(int64(sym.Column())),
	}
	if ty := item.EffectiveType(); ty.IsValid() {
		m["type"] = object.NewString(ty.String())
	}
	return object.NewMap(m)
}

func nameString(n cpp.Name) string {
	if n == nil {
		return ""
	}
	return n.String()
}

func stringList(values []string) object.Object {
	results := make([]object.Object, 0, len(values))
	for _, v := range values {
		results = append(results, object.NewString(v))
	}
	return object.NewList(results)
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct{}

func (l *logObject) Info(msg string) {
	logger.Printf("INFO: %s", msg)
}

func (l *logObject) Warn(msg string) {
	logger.Printf("WARN: %s", msg)
}

func (l *logObject) Error(msg string) {
	logger.Printf("ERROR: %s", msg)
}
