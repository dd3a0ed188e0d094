package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/cxxbind/internal/cpp"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

type docBuilder struct {
	t    *testing.T
	c    *cpp.Control
	doc  *cpp.Document
	line int
}

func newDocBuilder(t *testing.T, file string) *docBuilder {
	c := cpp.NewControl()
	return &docBuilder{t: t, c: c, doc: cpp.NewDocument(file, c)}
}

func (b *docBuilder) loc() cpp.Location {
	b.line++
	return cpp.Location{File: b.doc.FileName(), Line: b.line, Column: 3}
}

func (b *docBuilder) name(text string) cpp.Name {
	b.t.Helper()
	n, err := cpp.ParseName(b.c, text)
	require.NoError(b.t, err)
	return n
}

func (b *docBuilder) ty(text string) cpp.FullySpecifiedType {
	b.t.Helper()
	ty, err := cpp.ParseType(b.c, text)
	require.NoError(b.t, err)
	return ty
}

// richDocument exercises every attribute the codec stores.
func richDocument(t *testing.T, file string) *cpp.Document {
	b := newDocBuilder(t, file)
	b.doc.AddInclude("base.h", 1)
	b.doc.AddInclude("vector", 2)
	g := b.doc.GlobalNamespace()

	n := cpp.NewNamespace(b.loc(), b.name("N"))
	g.AddMember(n)
	inline := cpp.NewNamespace(b.loc(), b.name("v1"))
	inline.Inline = true
	n.AddMember(inline)

	c := cpp.NewClass(b.loc(), b.name("C"))
	c.Key = cpp.ClassKeyStruct
	base := cpp.NewBaseClass(b.loc(), b.name("Base"))
	base.Virtual = true
	c.AddBaseClass(base)
	n.AddMember(c)
	field := cpp.NewDeclaration(b.loc(), b.name("names"), b.ty("const std::string&"))
	field.SetVisibility(cpp.VisibilityPrivate)
	c.AddMember(field)
	anon := cpp.NewClass(b.loc(), b.c.AnonymousNameID())
	c.AddMember(anon)
	td := cpp.NewDeclaration(b.loc(), b.name("S"), anon.Type())
	td.SetStorage(cpp.StorageTypedef)
	c.AddMember(td)
	friend := cpp.NewForwardClassDeclaration(b.loc(), b.name("F"))
	friend.SetStorage(cpp.StorageFriend)
	c.AddMember(friend)

	e := cpp.NewEnum(b.loc(), b.name("E"))
	e.Scoped = true
	e.AddMember(cpp.NewDeclaration(b.loc(), b.name("A"), cpp.Builtin("int")))
	n.AddMember(e)

	tmpl := cpp.NewTemplate(b.loc())
	param := cpp.NewTypenameArgument(b.loc(), b.name("T"))
	param.Default = b.ty("int")
	tmpl.AddMember(param)
	tmpl.AddMember(cpp.NewClass(b.loc(), b.c.TemplateNameID("V", true, b.ty("T*"))))
	n.AddMember(tmpl)

	fn := cpp.NewFunction(b.loc(), b.name("C::run"), b.ty("int*[4]"))
	fn.AddMember(cpp.NewArgument(b.loc(), b.name("count"), b.ty("unsigned long")))
	body := cpp.NewBlock(b.loc())
	body.AddMember(cpp.NewDeclaration(b.loc(), b.name("local"), b.ty("N::C")))
	body.AddMember(cpp.NewUsingNamespaceDirective(b.loc(), b.name("std")))
	fn.AddMember(body)
	n.AddMember(fn)

	g.AddMember(cpp.NewUsingDeclaration(b.loc(), b.name("N::C")))
	g.AddMember(cpp.NewNamespaceAlias(b.loc(), b.name("M"), b.name("N::v1")))
	g.AddMember(cpp.NewFunction(b.loc(), b.c.OperatorNameID("=="), b.ty("bool")))

	objc := cpp.NewObjCClass(b.loc(), b.name("View"))
	objc.SetBaseClass(cpp.NewObjCBaseClass(b.loc(), b.name("NSObject")))
	objc.AddProtocol(cpp.NewObjCBaseProtocol(b.loc(), b.name("Drawable")))
	g.AddMember(objc)
	return b.doc
}

func hashOf(doc *cpp.Document) string {
	incs, rows := EncodeDocument(doc)
	return ComputeDocumentHash(incs, rows)
}

// =============================================================================
// Schema & Lifecycle
// =============================================================================

func TestMigrate_AllTablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "includes", "symbols", "metadata"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

// =============================================================================
// Documents
// =============================================================================

func TestSaveDocument_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	doc := richDocument(t, "main.cpp")

	changed, err := s.SaveDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, changed)

	loaded, err := s.LoadDocument("main.cpp", cpp.NewControl())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []string{"base.h", "vector"}, loaded.IncludedFiles())
	assert.Equal(t, hashOf(doc), hashOf(loaded))

	n := loaded.GlobalNamespace().Members()[0].(*cpp.Namespace)
	assert.True(t, n.Members()[0].(*cpp.Namespace).Inline)
	c := n.Find("C")[0].(*cpp.Class)
	assert.Equal(t, cpp.ClassKeyStruct, c.Key)
	require.Len(t, c.BaseClasses(), 1)
	assert.True(t, c.BaseClasses()[0].Virtual)
	assert.Same(t, c, c.BaseClasses()[0].EnclosingScope())

	td := c.Find("S")[0]
	assert.True(t, td.IsTypedef())
	anon, ok := td.Type().Type.(*cpp.Class)
	require.True(t, ok)
	assert.IsType(t, &cpp.AnonymousNameID{}, anon.Name())
	assert.Same(t, c, anon.EnclosingScope())
	assert.True(t, c.Find("F")[0].IsFriend())

	tmpl := n.Find("V")[0].(*cpp.Template)
	spec := tmpl.Declaration().Name().(*cpp.TemplateNameID)
	assert.True(t, spec.IsSpecialization())
	assert.Equal(t, "int", tmpl.TemplateParameterAt(0).(*cpp.TypenameArgument).Default.String())

	fn := n.Find("run")[0].(*cpp.Function)
	assert.Equal(t, "C::run", fn.Name().String())
	assert.Equal(t, "int*[4]", fn.ReturnType.String())
	require.NotNil(t, fn.Body())
	assert.Len(t, fn.Body().Members(), 2)
	assert.Equal(t, 3, fn.Column())

	objc := loaded.GlobalNamespace().Find("View")[0].(*cpp.ObjCClass)
	require.NotNil(t, objc.BaseClass)
	assert.Equal(t, "NSObject", objc.BaseClass.Name().String())
	assert.Len(t, objc.Protocols(), 1)
}

func TestSaveDocument_SkipsUnchanged(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	doc := richDocument(t, "main.cpp")

	_, err := s.SaveDocument(ctx, doc)
	require.NoError(t, err)
	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)

	changed, err := s.SaveDocument(ctx, richDocument(t, "main.cpp"))
	require.NoError(t, err)
	assert.False(t, changed)
	gen, err = s.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestSaveDocument_ReplacesContent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SaveDocument(ctx, richDocument(t, "main.cpp"))
	require.NoError(t, err)
	before, err := s.FileByPath("main.cpp")
	require.NoError(t, err)

	b := newDocBuilder(t, "main.cpp")
	b.doc.GlobalNamespace().AddMember(cpp.NewClass(b.loc(), b.name("Only")))
	changed, err := s.SaveDocument(ctx, b.doc)
	require.NoError(t, err)
	assert.True(t, changed)

	after, err := s.FileByPath("main.cpp")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.NotEqual(t, before.Hash, after.Hash)

	syms, err := s.SymbolsByFile(after.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Only", syms[0].Name)
	incs, err := s.IncludesByFile(after.ID)
	require.NoError(t, err)
	assert.Empty(t, incs)

	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(2), gen)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SaveDocument(context.Background(), richDocument(t, "main.cpp"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteFile("main.cpp"))
	f, err := s.FileByPath("main.cpp")
	require.NoError(t, err)
	assert.Nil(t, f)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&count))
	assert.Zero(t, count)

	require.NoError(t, s.DeleteFile("missing.cpp"))
}

func TestFilesIncluding(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	for _, spec := range []struct {
		file     string
		includes []string
	}{
		{"b.cpp", []string{"a.h", "a.h"}},
		{"a.cpp", []string{"a.h"}},
		{"a.h", nil},
		{"c.cpp", []string{"b.h"}},
	} {
		doc := cpp.NewDocument(spec.file, nil)
		for i, inc := range spec.includes {
			doc.AddInclude(inc, i+1)
		}
		_, err := s.SaveDocument(ctx, doc)
		require.NoError(t, err)
	}

	files, err := s.FilesIncluding("a.h")
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"a.cpp", "b.cpp"}, paths)

	all, err := s.Files()
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "a.cpp", all[0].Path)
}

func TestLoadSnapshot(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	for _, file := range []string{"z.h", "a.h"} {
		_, err := s.SaveDocument(ctx, cpp.NewDocument(file, nil))
		require.NoError(t, err)
	}

	snap, err := s.LoadSnapshot(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.h", "z.h"}, snap.Files())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.LoadSnapshot(cancelled, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadDocument_Unknown(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	doc, err := s.LoadDocument("missing.h", nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestDecodeDocument_Errors(t *testing.T) {
	t.Parallel()
	_, err := DecodeDocument("a.h", nil, nil, []*Symbol{{ID: 1, ParentID: ptr(int64(7)), Kind: "class", Name: "C"}})
	assert.ErrorContains(t, err, "unknown parent")

	_, err = DecodeDocument("a.h", nil, nil, []*Symbol{{ID: 1, Kind: "bogus"}})
	assert.ErrorContains(t, err, "unknown kind")

	_, err = DecodeDocument("a.h", nil, nil, []*Symbol{
		{ID: 1, Kind: "declaration", Name: "x", Type: "int"},
		{ID: 2, ParentID: ptr(int64(1)), Kind: "declaration", Name: "y", Type: "int"},
	})
	assert.ErrorContains(t, err, "not a scope")
}

// =============================================================================
// Batched writes
// =============================================================================

func TestCommitBatch(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore(s)

	fileID, err := batch.InsertFile(&File{Path: "gen.h"})
	require.NoError(t, err)
	assert.Negative(t, fileID)
	_, err = batch.InsertInclude(&Include{FileID: fileID, Path: "base.h", Line: 1})
	require.NoError(t, err)
	nsID, err := batch.InsertSymbol(&Symbol{FileID: fileID, Kind: "namespace", Name: "gen", Line: 2})
	require.NoError(t, err)
	_, err = batch.InsertSymbol(&Symbol{FileID: fileID, ParentID: &nsID, Kind: "class", Name: "Widget", Line: 3})
	require.NoError(t, err)

	f, err := batch.FileByPath("gen.h")
	require.NoError(t, err)
	assert.Equal(t, fileID, f.ID)
	syms, err := batch.SymbolsByFile(fileID)
	require.NoError(t, err)
	assert.Len(t, syms, 2)
	assert.Equal(t, 4, batch.Len())

	require.NoError(t, s.CommitBatch(batch))
	assert.Zero(t, batch.Len())

	doc, err := s.LoadDocument("gen.h", nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, []string{"base.h"}, doc.IncludedFiles())
	ns := doc.GlobalNamespace().Find("gen")[0].(*cpp.Namespace)
	assert.Len(t, ns.Find("Widget"), 1)

	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestCommitBatch_ReplacesStoredFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	_, err := s.SaveDocument(context.Background(), richDocument(t, "main.cpp"))
	require.NoError(t, err)
	before, err := s.FileByPath("main.cpp")
	require.NoError(t, err)

	batch := NewBatchedStore(s)
	fileID, err := batch.InsertFile(&File{Path: "main.cpp"})
	require.NoError(t, err)
	_, err = batch.InsertSymbol(&Symbol{FileID: fileID, Kind: "class", Name: "Fresh"})
	require.NoError(t, err)
	require.NoError(t, s.CommitBatch(batch))

	after, err := s.FileByPath("main.cpp")
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Empty(t, after.Hash)
	syms, err := s.SymbolsByFile(after.ID)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "Fresh", syms[0].Name)
}

func TestCommitBatch_UnknownParent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	batch := NewBatchedStore(s)
	fileID, err := batch.InsertFile(&File{Path: "gen.h"})
	require.NoError(t, err)
	_, err = batch.InsertSymbol(&Symbol{FileID: fileID, ParentID: ptr(int64(-99)), Kind: "class", Name: "Orphan"})
	require.NoError(t, err)

	require.Error(t, s.CommitBatch(batch))
	f, err := s.FileByPath("gen.h")
	require.NoError(t, err)
	assert.Nil(t, f)
}

// =============================================================================
// Metadata
// =============================================================================

func TestMetadata(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	v, err := s.Metadata("producer")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, s.SetMetadata("producer", "clang"))
	require.NoError(t, s.SetMetadata("producer", "gcc"))
	v, err = s.Metadata("producer")
	require.NoError(t, err)
	assert.Equal(t, "gcc", v)

	gen, err := s.Generation()
	require.NoError(t, err)
	assert.Zero(t, gen)
}
