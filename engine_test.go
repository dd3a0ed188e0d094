package cxxbind

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/cpp"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

// fixtureDocuments builds:
//
//	// a.h
//	namespace N {
//	  class Base { int inherited; };
//	  class C : Base { int field; void run() { int local; } };
//	  class D : C {};
//	}
//
//	// main.cpp
//	#include "a.h"
//	int g;
//	class E : N::Base {};
func fixtureDocuments(t *testing.T) []*cpp.Document {
	t.Helper()
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
	d := cpp.NewClass(loc("a.h"), c.NameID("D"))
	d.AddBaseClass(cpp.NewBaseClass(loc("a.h"), c.NameID("C")))
	n.AddMember(d)

	main := cpp.NewDocument("main.cpp", c)
	main.AddInclude("a.h", 1)
	main.GlobalNamespace().AddMember(cpp.NewDeclaration(loc("main.cpp"), c.NameID("g"), cpp.Builtin("int")))
	baseName, err := cpp.ParseName(c, "N::Base")
	require.NoError(t, err)
	e := cpp.NewClass(loc("main.cpp"), c.NameID("E"))
	e.AddBaseClass(cpp.NewBaseClass(loc("main.cpp"), baseName))
	main.GlobalNamespace().AddMember(e)

	return []*cpp.Document{a, main}
}

func newFixtureEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := newTestEngine(t, opts...)
	for _, doc := range fixtureDocuments(t) {
		changed, err := e.SaveDocument(context.Background(), doc)
		require.NoError(t, err)
		require.True(t, changed)
	}
	return e
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())

	// Verify the DB is usable (migration ran).
	gen, err := e.Store().Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
}

func TestNew_InvalidPath(t *testing.T) {
	t.Parallel()
	_, err := New("/nonexistent/dir/db.sqlite", t.TempDir())
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	assert.True(t, e.expandTemplates)
	assert.Equal(t, ScopeSnapshot, e.documentScope)
	assert.Equal(t, HideInlineNamespaces, e.policy)
}

func TestNew_Options(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t,
		WithExpandTemplates(false),
		WithDocumentScope(ScopeTranslationUnit),
		WithInlineNamespaces(ShowInlineNamespaces),
		WithWorkers(3),
	)
	assert.False(t, e.expandTemplates)
	assert.Equal(t, ScopeTranslationUnit, e.documentScope)
	assert.Equal(t, ShowInlineNamespaces, e.policy)
	assert.Equal(t, 3, e.workers)
}

func TestClose(t *testing.T) {
	t.Parallel()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestQuery_ReturnsQuery(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NotNil(t, e.Query())
}

func TestSaveDocument_UnchangedIsSkipped(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()

	gen, err := e.Store().Generation()
	require.NoError(t, err)

	changed, err := e.SaveDocument(ctx, fixtureDocuments(t)[0])
	require.NoError(t, err)
	assert.False(t, changed)

	after, err := e.Store().Generation()
	require.NoError(t, err)
	assert.Equal(t, gen, after)
}

func TestSnapshot_ReloadsAfterWrite(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h", "main.cpp"}, snap.Files())

	changed, err := e.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed, "no writes since the last load")

	c := cpp.NewControl()
	extra := cpp.NewDocument("b.h", c)
	extra.GlobalNamespace().AddMember(cpp.NewDeclaration(cpp.Location{File: "b.h", Line: 1}, c.NameID("b"), cpp.Builtin("int")))
	_, err = e.SaveDocument(ctx, extra)
	require.NoError(t, err)

	changed, err = e.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)

	snap, err = e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h", "b.h", "main.cpp"}, snap.Files())
}

func TestDeleteFile_DropsDocument(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()

	require.NoError(t, e.DeleteFile("main.cpp"))
	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h"}, snap.Files())

	lc, err := e.LookupContext(ctx, "main.cpp")
	require.NoError(t, err)
	assert.Nil(t, lc)
}

func TestLookupContext_CachedUntilReload(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()

	first, err := e.LookupContext(ctx, "main.cpp")
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := e.LookupContext(ctx, "main.cpp")
	require.NoError(t, err)
	assert.Same(t, first, again)

	require.NoError(t, e.DeleteFile("a.h"))
	reloaded, err := e.LookupContext(ctx, "main.cpp")
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.NotSame(t, first, reloaded)
}

func TestLookupContext_UnknownFile(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)

	lc, err := e.LookupContext(context.Background(), "missing.h")
	require.NoError(t, err)
	assert.Nil(t, lc)

	b, err := e.Bindings(context.Background(), "missing.h")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestBindings_CancelledThenRetried(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)

	// Load the snapshot first so only the graph build sees the cancellation.
	_, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := e.Bindings(ctx, "main.cpp")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, b)

	b, err = e.Bindings(context.Background(), "main.cpp")
	require.NoError(t, err)
	require.NotNil(t, b)

	// Nodes beyond the global one are allocated on first lookup.
	assert.Equal(t, 1, b.NodeCount())
	n := b.GlobalNamespace().LookupType(b.Control().NameID("N"))
	require.NotNil(t, n)
	assert.Greater(t, b.NodeCount(), 1)
}

func TestDependencyTable(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()

	table, err := e.DependencyTable(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.h", "main.cpp"}, table.Files())

	again, err := e.DependencyTable(ctx)
	require.NoError(t, err)
	assert.Same(t, table, again)

	deps, err := e.FilesDependingOn(ctx, "a.h")
	require.NoError(t, err)
	assert.Equal(t, []string{"main.cpp"}, deps)

	deps, err = e.FilesDependingOn(ctx, "main.cpp")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestDependencyTable_CancelledIsNotCached(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	_, err := e.Snapshot(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.DependencyTable(ctx)
	require.ErrorIs(t, err, context.Canceled)

	e.mu.Lock()
	assert.Nil(t, e.table)
	e.mu.Unlock()

	table, err := e.DependencyTable(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, table)
}

func TestWarm_AllDocuments(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t, WithWorkers(2))
	require.NoError(t, e.Warm(context.Background()))

	for _, file := range []string{"a.h", "main.cpp"} {
		lc, err := e.LookupContext(context.Background(), file)
		require.NoError(t, err)
		require.NotNil(t, lc)
		// Prepare returns the graph Warm built without touching ctx.
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		b, err := lc.Prepare(ctx)
		require.NoError(t, err, file)
		assert.NotNil(t, b)
	}
}

func TestWarm_UnknownDocument(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	err := e.Warm(context.Background(), "a.h", "missing.h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.h")
}

func TestWarm_EmptyStore(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	require.NoError(t, e.Warm(context.Background()))
}

func TestRunSource_SeesStoredDocuments(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	script := `
items := lookup("a.h", "inherited", "N::C")
assert(len(items) == 1, 'expected one item, got {len(items)}')
assert(items[0]["qualified_name"] == "N::Base::inherited", items[0]["qualified_name"])
deps := files_depending_on("a.h")
assert(len(deps) == 1 && deps[0] == "main.cpp", "dependents of a.h")
`
	require.NoError(t, e.RunSource(context.Background(), script, nil))
}

func TestRunSource_InsertsReloadSnapshot(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t)
	ctx := context.Background()
	_, err := e.Snapshot(ctx)
	require.NoError(t, err)

	script := `
fid := insert_file({"path": "gen.h"})
insert_symbol({"file_id": fid, "ordinal": 0, "kind": "declaration", "name": "generated", "type": "int", "line": 1, "col": 1})
`
	require.NoError(t, e.RunSource(ctx, script, nil))

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h", "gen.h", "main.cpp"}, snap.Files())
}

func TestRunScript_FromScriptsFS(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"check.risor": &fstest.MapFile{Data: []byte(`
assert(qualified_name("a.h", "field", "N::C") == "N::C::field")
`)},
	}
	e := newFixtureEngine(t, WithScriptsFS(fsys))
	require.NoError(t, e.RunScript(context.Background(), "check.risor", nil))
}

func TestRunScript_MissingScript(t *testing.T) {
	t.Parallel()
	e := newFixtureEngine(t, WithScriptsFS(fstest.MapFS{}))
	err := e.RunScript(context.Background(), "missing.risor", nil)
	require.Error(t, err)
}
