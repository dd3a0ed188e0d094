package runtime

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/cpp"
	"github.com/jward/cxxbind/internal/deptable"
	"github.com/jward/cxxbind/internal/logger"
	"github.com/jward/cxxbind/internal/store"
)

// testHost serves a fixed snapshot.
type testHost struct {
	snap *cpp.Snapshot
}

func (h *testHost) Snapshot(ctx context.Context) (*cpp.Snapshot, error) {
	return h.snap, nil
}

func (h *testHost) DependencyTable(ctx context.Context) (*deptable.Table, error) {
	t := deptable.New()
	if err := t.Build(ctx, h.snap); err != nil {
		return nil, err
	}
	return t, nil
}

func (h *testHost) LookupContext(ctx context.Context, file string) (*bindings.LookupContext, error) {
	doc := h.snap.Document(file)
	if doc == nil {
		return nil, nil
	}
	return bindings.NewLookupContext(doc, h.snap), nil
}

// newTestHost builds:
//
//	a.h:      namespace N { class Base { int inherited; };
//	                        class C : Base { int field; void run() { int local; } }; }
//	main.cpp: #include "a.h"
//	          int g;
func newTestHost() *testHost {
	c := cpp.NewControl()
	line := 0
	loc := func(file string) cpp.Location {
		line++
		return cpp.Location{File: file, Line: line, Column: 1}
	}

	a := cpp.NewDocument("a.h", c)
	n := cpp.NewNamespace(loc("a.h"), c.NameID("N"))
	a.GlobalNamespace().AddMember(n)
	base := cpp.NewClass(loc("a.h"), c.NameID("Base"))
	base.AddMember(cpp.NewDeclaration(loc("a.h"), c.NameID("inherited"), cpp.Builtin("int")))
	n.AddMember(base)
	cls := cpp.NewClass(loc("a.h"), c.NameID("C"))
	cls.AddBaseClass(cpp.NewBaseClass(loc("a.h"), c.NameID("Base")))
	cls.AddMember(cpp.NewDeclaration(loc("a.h"), c.NameID("field"), cpp.Builtin("int")))
	run := cpp.NewFunction(loc("a.h"), c.NameID("run"), cpp.Builtin("void"))
	body := cpp.NewBlock(loc("a.h"))
	body.AddMember(cpp.NewDeclaration(loc("a.h"), c.NameID("local"), cpp.Builtin("int")))
	run.AddMember(body)
	cls.AddMember(run)
	n.AddMember(cls)

	main := cpp.NewDocument("main.cpp", c)
	main.AddInclude("a.h", 1)
	main.GlobalNamespace().AddMember(cpp.NewDeclaration(loc("main.cpp"), c.NameID("g"), cpp.Builtin("int")))

	return &testHost{snap: cpp.NewSnapshot(a, main)}
}

func newHostRuntime(t *testing.T) *Runtime {
	t.Helper()
	return NewRuntime(nil, "", WithHost(newTestHost()))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

// --- Snapshot and dependency host functions ---

func TestDocuments(t *testing.T) {
	t.Parallel()
	script := `
docs := documents()
assert(len(docs) == 2, 'expected 2 documents, got {len(docs)}')
assert(docs[0] == "a.h", 'expected a.h first, got ' + docs[0])
assert(docs[1] == "main.cpp", 'expected main.cpp second')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestIncludes(t *testing.T) {
	t.Parallel()
	script := `
incs := includes("main.cpp")
assert(len(incs) == 1, 'expected 1 include, got {len(incs)}')
assert(incs[0]["file"] == "a.h", 'expected a.h')
assert(incs[0]["line"] == 1, 'expected line 1')
assert(len(includes("a.h")) == 0, 'a.h includes nothing')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestIncludes_UnknownDocument(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `includes("nope.h")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document")
}

func TestFilesDependingOn(t *testing.T) {
	t.Parallel()
	script := `
deps := files_depending_on("a.h")
assert(len(deps) == 1, 'expected 1 dependent, got {len(deps)}')
assert(deps[0] == "main.cpp", 'expected main.cpp')
assert(len(files_depending_on("main.cpp")) == 0, 'nothing includes main.cpp')
assert(len(files_depending_on("unknown.h")) == 0, 'unknown files have no dependents')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

// --- Lookup host functions ---

func TestLookup_FromFunctionBody(t *testing.T) {
	t.Parallel()
	script := `
items := lookup("a.h", "field", "N::C::run")
assert(len(items) == 1, 'expected 1 item, got {len(items)}')
item := items[0]
assert(item["name"] == "field", 'name: ' + item["name"])
assert(item["qualified_name"] == "N::C::field", 'qualified_name: ' + item["qualified_name"])
assert(item["kind"] == "declaration", 'kind: ' + item["kind"])
assert(item["type"] == "int", 'type: ' + item["type"])
assert(item["file"] == "a.h", 'file: ' + item["file"])

inherited := lookup("a.h", "inherited", "N::C::run")
assert(len(inherited) == 1, 'expected inherited member')
assert(inherited[0]["qualified_name"] == "N::Base::inherited", 'got ' + inherited[0]["qualified_name"])

local := lookup("a.h", "local", "N::C::run")
assert(len(local) == 1, 'expected local declaration')

assert(len(lookup("a.h", "nothing")) == 0, 'expected no items')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestLookup_UnknownDocument(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `lookup("x.h", "a")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document")
}

func TestLookup_UnknownScope(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `lookup("a.h", "a", "Nope")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestLookup_BadName(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `lookup("a.h", "A::")`, nil)
	require.Error(t, err)
}

func TestLookup_ArgumentCount(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `lookup("a.h")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 or 3 arguments")
}

func TestLookupType(t *testing.T) {
	t.Parallel()
	script := `
ty := lookup_type("a.h", "N::C")
assert(ty != nil, 'expected N::C')
assert(ty["name"] == "N::C", 'name: ' + ty["name"])
assert(ty["kind"] == "class", 'kind: ' + ty["kind"])
assert(ty["symbols"] == 1, 'expected 1 symbol')

inner := lookup_type("a.h", "Base", "N::C")
assert(inner["name"] == "N::Base", 'name: ' + inner["name"])

assert(lookup_type("a.h", "Missing") == nil, 'expected nil')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestQualifiedName(t *testing.T) {
	t.Parallel()
	script := `
assert(qualified_name("a.h", "C", "N") == "N::C", 'expected N::C')
assert(qualified_name("main.cpp", "g") == "g", 'expected g')
assert(qualified_name("a.h", "C") == nil, 'C is not visible from the global namespace')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestMinimalName(t *testing.T) {
	t.Parallel()
	script := `
assert(minimal_name("a.h", "N::C", "N") == "C", 'inside N')
assert(minimal_name("a.h", "N::C", "") == "N::C", 'from global')
assert(minimal_name("a.h", "N::Base", "N::C") == "Base", 'inside C')
assert(minimal_name("a.h", "Missing", "N") == nil, 'unresolved')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestMinimalName_UnknownTarget(t *testing.T) {
	t.Parallel()
	err := newHostRuntime(t).RunSource(context.Background(), `minimal_name("a.h", "N::C", "Q")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown scope")
}

func TestBaseClasses(t *testing.T) {
	t.Parallel()
	script := `
bases := base_classes("a.h", "N::C")
assert(len(bases) == 1, 'expected 1 base, got {len(bases)}')
assert(bases[0] == "N::Base", 'got ' + bases[0])
assert(len(base_classes("a.h", "N::Base")) == 0, 'Base has no bases')
assert(len(base_classes("a.h", "Missing")) == 0, 'unknown class')
`
	require.NoError(t, newHostRuntime(t).RunSource(context.Background(), script, nil))
}

func TestHostFunctions_AbsentWithoutHost(t *testing.T) {
	t.Parallel()
	err := NewRuntime(nil, "").RunSource(context.Background(), `documents()`, nil)
	require.Error(t, err)
}

// --- Store host functions ---

func TestInsertFunctions_CommitAfterScript(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rt := NewRuntime(s, "")

	script := `
fid := insert_file({"path": "gen.h"})
assert(fid < 0, 'ids are provisional during the run')
insert_include({"file_id": fid, "path": "base.h", "line": 1, "ordinal": 0})
ns := insert_symbol({"file_id": fid, "kind": "namespace", "name": "N", "line": 2, "ordinal": 0})
insert_symbol({"file_id": fid, "parent_id": ns, "kind": "class", "name": "C", "class_key": "struct", "line": 3, "ordinal": 0})

f := file_by_path("gen.h")
assert(f["id"] == fid, 'buffered file visible')
syms := symbols_by_file(fid)
assert(len(syms) == 2, 'expected 2 buffered symbols, got {len(syms)}')
assert(syms[1]["parent_id"] == ns, 'parent recorded')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))

	doc, err := s.LoadDocument("gen.h", nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, []string{"base.h"}, doc.IncludedFiles())

	got, err := doc.FindSymbol("N::C")
	require.NoError(t, err)
	require.NotNil(t, got)
	cls, ok := got.(*cpp.Class)
	require.True(t, ok)
	assert.Equal(t, cpp.ClassKeyStruct, cls.Key)
	assert.Equal(t, 3, cls.Line())

	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestInsertFunctions_FailedScriptWritesNothing(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	rt := NewRuntime(s, "")

	script := `
fid := insert_file({"path": "gen.h"})
insert_symbol({"file_id": fid, "name": "missing_kind"})
`
	err := rt.RunSource(context.Background(), script, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kind is required")

	f, err := s.FileByPath("gen.h")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestInsertFile_RequiresPath(t *testing.T) {
	t.Parallel()
	err := NewRuntime(newTestStore(t), "").RunSource(context.Background(), `insert_file({})`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestFileByPath_Unknown(t *testing.T) {
	t.Parallel()
	script := `assert(file_by_path("none.h") == nil, 'expected nil')`
	require.NoError(t, NewRuntime(newTestStore(t), "").RunSource(context.Background(), script, nil))
}

// --- log ---

func TestLog_WritesThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	script := `
log.Info("info message")
log.Warn("warn message")
log.Error("error message")
`
	require.NoError(t, NewRuntime(nil, "").RunSource(context.Background(), script, nil))
	out := buf.String()
	assert.Contains(t, out, "[cxxbind] ")
	assert.Contains(t, out, "INFO: info message")
	assert.Contains(t, out, "WARN: warn message")
	assert.Contains(t, out, "ERROR: error message")
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "test.risor")
	if err := os.WriteFile(scriptPath, []byte(`result := 1 + 1`), 0644); err != nil {
		t.Fatalf("writing script: %v", err)
	}

	rt := NewRuntime(nil, dir)
	ctx := context.Background()

	err := rt.RunScript(ctx, "test.risor", nil)
	if err != nil {
		t.Fatalf("RunScript: %v", err)
	}
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(nil, t.TempDir())
	ctx := context.Background()

	err := rt.RunScript(ctx, "nonexistent.risor", nil)
	if err == nil {
		t.Fatal("expected error for missing script, got nil")
	}
}

func TestRunSource_ExtraGlobals(t *testing.T) {
	t.Parallel()
	script := `assert(target == "main.cpp", 'expected extra global')`
	err := NewRuntime(nil, "").RunSource(context.Background(), script, map[string]any{
		"target": "main.cpp",
	})
	require.NoError(t, err)
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing: %v", err)
	}

	rt := NewRuntime(nil, dir)
	got, err := rt.LoadScript(path)
	if err != nil {
		t.Fatalf("LoadScript: %v", err)
	}
	if got != content {
		t.Errorf("LoadScript = %q, want %q", got, content)
	}
}

// --- fs.FS-based script loading tests ---

func TestLoadScript_FromFSFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"report/bases.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("report/bases.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFSFS_NotFound(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{}
	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	_, err := rt.LoadScript("nonexistent.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestLoadScript_FromFSFS_StripsLeadingSeparator(t *testing.T) {
	t.Parallel()

	content := `y := 99`
	mapFS := fstest.MapFS{
		"report/bases.risor": &fstest.MapFile{Data: []byte(content)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	// Absolute-style path should be resolved within the FS.
	got, err := rt.LoadScript("/report/bases.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FallsBackToDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	content := `z := 7`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(content), 0644))

	// No WithRuntimeFS -- should fall back to disk.
	rt := NewRuntime(nil, dir)

	got, err := rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRunScript_FromFSFS(t *testing.T) {
	mapFS := fstest.MapFS{
		"test.risor": &fstest.MapFile{Data: []byte(`result := 1 + 1`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))
	err := rt.RunScript(context.Background(), "test.risor", nil)
	require.NoError(t, err)
}

// --- Importer wiring tests ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()

	// Write a module file to disk.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_HostGlobalsAvailableInImportedModules(t *testing.T) {
	// Imported modules compile against the host-provided global names.
	mapFS := fstest.MapFS{
		"hierarchy.risor": &fstest.MapFile{Data: []byte(`
func first_base(file, class) {
	bases := base_classes(file, class)
	if len(bases) == 0 {
		return nil
	}
	return bases[0]
}
`)},
	}

	rt := NewRuntime(nil, "", WithRuntimeFS(mapFS), WithHost(newTestHost()))

	script := `
import hierarchy
assert(hierarchy.first_base("a.h", "N::C") == "N::Base", 'expected N::Base')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestImport_LocalModuleUsesBuiltins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "names.risor"), []byte(`
func joined(parts) {
	if len(parts) == 0 {
		return ""
	}
	return strings.join(parts, "::")
}
`), 0644))

	rt := NewRuntime(nil, dir)

	script := `
import names
assert(names.joined(["N", "C"]) == "N::C", 'expected N::C')
assert(names.joined([]) == "", 'expected empty')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestRunSource_NoImport_NoRegression(t *testing.T) {
	// Scripts without import statements should work regardless of importer config.
	rt := NewRuntime(nil, "")

	script := `
x := 1 + 2
assert(x == 3, 'expected 3')
`
	err := rt.RunSource(context.Background(), script, nil)
	require.NoError(t, err)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime(nil, "/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Nil(t, rt.host)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.Equal(t, bindings.HideInlineNamespaces, rt.policy)
}
