package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/cxxbind/internal/store"
)

// Store insert functions let a script act as the producer of documents.
// Risor scripts cannot construct Go struct pointers, so these functions
// accept Risor maps with primitive values and build the structs on the Go
// side. IDs returned during a script are provisional (negative) and are
// valid as file_id and parent_id of later inserts in the same run.

func makeInsertFileFn(ds store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_file", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_file: %v", err)
		}
		path := getString(m, "path")
		if path == "" {
			return object.Errorf("insert_file: path is required")
		}

		id, insertErr := ds.InsertFile(&store.File{Path: path, Hash: getString(m, "hash")})
		if insertErr != nil {
			return object.Errorf("insert_file: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertIncludeFn(ds store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_include", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_include", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_include: %v", err)
		}

		inc := &store.Include{
			FileID:  getInt64(m, "file_id"),
			Path:    getString(m, "path"),
			Line:    getInt(m, "line"),
			Ordinal: getInt(m, "ordinal"),
		}
		id, insertErr := ds.InsertInclude(inc)
		if insertErr != nil {
			return object.Errorf("insert_include: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeInsertSymbolFn(ds store.DataStore) *object.Builtin {
	return object.NewBuiltin("insert_symbol", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("insert_symbol", 1, len(args))
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("insert_symbol: %v", err)
		}
		if getString(m, "kind") == "" {
			return object.Errorf("insert_symbol: kind is required")
		}

		sym := &store.Symbol{
			FileID:     getInt64(m, "file_id"),
			Ordinal:    getInt(m, "ordinal"),
			Kind:       getString(m, "kind"),
			Name:       getString(m, "name"),
			Type:       getString(m, "type"),
			Line:       getInt(m, "line"),
			Col:        getInt(m, "col"),
			Storage:    getString(m, "storage"),
			Visibility: getString(m, "visibility"),
			Extra: store.SymbolExtra{
				Anonymous:      getBool(m, "anonymous"),
				Specialization: getBool(m, "specialization"),
				Inline:         getBool(m, "inline"),
				Scoped:         getBool(m, "scoped"),
				ClassKey:       getString(m, "class_key"),
				Virtual:        getBool(m, "virtual"),
				Target:         getString(m, "target"),
			},
		}
		if v, ok := getOptionalInt64(m, "parent_id"); ok {
			sym.ParentID = &v
		}

		id, insertErr := ds.InsertSymbol(sym)
		if insertErr != nil {
			return object.Errorf("insert_symbol: %v", insertErr)
		}
		return object.NewInt(id)
	})
}

func makeFileByPathFn(ds store.DataStore) *object.Builtin {
	return object.NewBuiltin("file_by_path", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("file_by_path", 1, len(args))
		}
		path, err := toString(args[0])
		if err != nil {
			return object.Errorf("file_by_path: %v", err)
		}
		f, err := ds.FileByPath(path)
		if err != nil {
			return object.Errorf("file_by_path: %v", err)
		}
		if f == nil {
			return object.Nil
		}
		return object.NewMap(map[string]object.Object{
			"id":   object.NewInt(f.ID),
			"path": object.NewString(f.Path),
			"hash": object.NewString(f.Hash),
		})
	})
}

func makeSymbolsByFileFn(ds store.DataStore) *object.Builtin {
	return object.NewBuiltin("symbols_by_file", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("symbols_by_file", 1, len(args))
		}
		fileID, err := toInt64(args[0])
		if err != nil {
			return object.Errorf("symbols_by_file: %v", err)
		}
		syms, err := ds.SymbolsByFile(fileID)
		if err != nil {
			return object.Errorf("symbols_by_file: %v", err)
		}
		return symbolsToList(syms)
	})
}

// --- Map extraction helpers ---

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func getString(m map[string]object.Object, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	if s, ok := v.(*object.String); ok {
		return s.Value()
	}
	return ""
}

func getInt(m map[string]object.Object, key string) int {
	return int(getInt64(m, key))
}

func getInt64(m map[string]object.Object, key string) int64 {
	v, ok := getOptionalInt64(m, key)
	if !ok {
		return 0
	}
	return v
}

func getOptionalInt64(m map[string]object.Object, key string) (int64, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case *object.Int:
		return n.Value(), true
	case *object.Float:
		return int64(n.Value()), true
	}
	return 0, false
}

func getBool(m map[string]object.Object, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	if b, ok := v.(*object.Bool); ok {
		return b.Value()
	}
	return false
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// symbolsToList converts symbol rows to a Risor list of maps.
func symbolsToList(syms []*store.Symbol) object.Object {
	results := []object.Object{}
	for _, sym := range syms {
		m := map[string]object.Object{
			"id":         object.NewInt(sym.ID),
			"file_id":    object.NewInt(sym.FileID),
			"ordinal":    object.NewInt(int64(sym.Ordinal)),
			"kind":       object.NewString(sym.Kind),
			"name":       object.NewString(sym.Name),
			"type":       object.NewString(sym.Type),
			"line":       object.NewInt(int64(sym.Line)),
			"col":        object.NewInt(int64(sym.Col)),
			"storage":    object.NewString(sym.Storage),
			"visibility": object.NewString(sym.Visibility),
		}
		if sym.ParentID != nil {
			m["parent_id"] = object.NewInt(*sym.ParentID)
		}
		results = append(results, object.NewMap(m))
	}
	return object.NewList(results)
}
