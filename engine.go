package cxxbind

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/cpp"
	"github.com/jward/cxxbind/internal/deptable"
	"github.com/jward/cxxbind/internal/logger"
	"github.com/jward/cxxbind/internal/runtime"
	"github.com/jward/cxxbind/internal/store"
)

// Engine ties the document store to the lookup core: it loads the stored
// snapshot, caches the dependency table and per-document binding graphs,
// and runs scripts against them.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS

	expandTemplates bool
	documentScope   bindings.DocumentScope
	policy          bindings.InlineNamespacePolicy
	workers         int

	// mu guards the cached state below. Graph builds run outside it.
	mu         sync.Mutex
	loaded     bool
	generation int64
	snapshot   *cpp.Snapshot
	table      *deptable.Table
	contexts   map[string]*bindings.LookupContext
}

// Option configures an Engine.
type Option func(*Engine)

// WithExpandTemplates controls whether template instantiations clone the
// template's members with arguments substituted (default true).
func WithExpandTemplates(expand bool) Option {
	return func(e *Engine) {
		e.expandTemplates = expand
	}
}

// WithDocumentScope selects which documents contribute to a graph.
func WithDocumentScope(scope DocumentScope) Option {
	return func(e *Engine) {
		e.documentScope = scope
	}
}

// WithInlineNamespaces sets how printed names treat inline namespaces
// (default hidden).
func WithInlineNamespaces(policy InlineNamespacePolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

// WithWorkers bounds the number of graphs Warm builds at once. Values below
// one mean one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithScriptsFS configures the Engine to load Risor scripts from the given
// filesystem instead of from the scriptsDir path on disk. This enables
// embedding scripts via go:embed.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Script loading priority:
//  1. If WithScriptsFS is set, use the provided fs.FS
//  2. Otherwise, use scriptsDir on disk
//
// The scriptsDir parameter may be empty when no scripts are run.
func New(dbPath string, scriptsDir string, opts ...Option) (*Engine, error) {
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("cxxbind: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("cxxbind: migrate: %w", err)
	}

	e := &Engine{
		store:           s,
		scriptsDir:      scriptsDir,
		expandTemplates: true,
		policy:          bindings.HideInlineNamespaces,
	}
	for _, opt := range opts {
		opt(e)
	}

	rtOpts := []runtime.RuntimeOption{
		runtime.WithHost(e),
		runtime.WithInlineNamespaces(e.policy),
	}
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	e.runtime = runtime.NewRuntime(s, scriptsDir, rtOpts...)

	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a Query over the Engine's current snapshot.
func (e *Engine) Query() *Query {
	return &Query{engine: e}
}

// SaveDocument stores doc, replacing the stored document for its file. It
// reports false when the stored content was already identical. The next
// snapshot access reloads.
func (e *Engine) SaveDocument(ctx context.Context, doc *Document) (bool, error) {
	changed, err := e.store.SaveDocument(ctx, doc)
	if err != nil {
		return false, fmt.Errorf("cxxbind: %w", err)
	}
	return changed, nil
}

// DeleteFile removes a stored document.
func (e *Engine) DeleteFile(path string) error {
	if err := e.store.DeleteFile(path); err != nil {
		return fmt.Errorf("cxxbind: %w", err)
	}
	return nil
}

// Snapshot returns the stored documents as a snapshot, reloading it when the
// database has been written since the last load.
func (e *Engine) Snapshot(ctx context.Context) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.refreshLocked(ctx); err != nil {
		return nil, err
	}
	return e.snapshot, nil
}

// Refresh reloads the snapshot if the database changed and reports whether
// it did. Cached graphs and the dependency table are dropped on reload.
func (e *Engine) Refresh(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.refreshLocked(ctx)
}

func (e *Engine) refreshLocked(ctx context.Context) (bool, error) {
	gen, err := e.store.Generation()
	if err != nil {
		return false, fmt.Errorf("cxxbind: %w", err)
	}
	if e.loaded && gen == e.generation {
		return false, nil
	}

	start := time.Now()
	snap, err := e.store.LoadSnapshot(ctx, cpp.NewControl())
	if err != nil {
		return false, fmt.Errorf("cxxbind: %w", err)
	}
	e.loaded = true
	e.generation = gen
	e.snapshot = snap
	e.table = nil
	e.contexts = make(map[string]*bindings.LookupContext)
	logger.Debugf("loaded %d documents (generation %d) in %s", snap.Len(), gen, time.Since(start).Round(time.Millisecond))
	return true, nil
}

// DependencyTable returns the include dependency table of the current
// snapshot, building it on first use. A cancelled build is not cached.
func (e *Engine) DependencyTable(ctx context.Context) (*DependencyTable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.refreshLocked(ctx); err != nil {
		return nil, err
	}
	if e.table != nil {
		return e.table, nil
	}

	start := time.Now()
	t := deptable.New()
	if err := t.Build(ctx, e.snapshot); err != nil {
		logger.Debugf("dependency table build cancelled: %v", err)
		return nil, err
	}
	e.table = t
	logger.Debugf("built dependency table for %d files in %s", len(t.Files()), time.Since(start).Round(time.Millisecond))
	return t, nil
}

// FilesDependingOn returns every stored file that transitively includes file.
func (e *Engine) FilesDependingOn(ctx context.Context, file string) ([]string, error) {
	t, err := e.DependencyTable(ctx)
	if err != nil {
		return nil, err
	}
	return t.FilesDependingOn(file), nil
}

// LookupContext returns the cached lookup context anchored at file, or nil
// when the snapshot has no such document. Its graph is built on first use.
func (e *Engine) LookupContext(ctx context.Context, file string) (*LookupContext, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.refreshLocked(ctx); err != nil {
		return nil, err
	}
	if lc, ok := e.contexts[file]; ok {
		return lc, nil
	}
	doc := e.snapshot.Document(file)
	if doc == nil {
		return nil, nil
	}
	lc := bindings.NewLookupContext(doc, e.snapshot,
		bindings.WithExpandTemplates(e.expandTemplates),
		bindings.WithDocumentScope(e.documentScope),
	)
	e.contexts[file] = lc
	return lc, nil
}

// Bindings returns the binding graph anchored at file, building it if
// needed. It returns nil for an unknown file and ctx.Err() when the build is
// cancelled; a later call retries.
func (e *Engine) Bindings(ctx context.Context, file string) (*Bindings, error) {
	lc, err := e.LookupContext(ctx, file)
	if err != nil || lc == nil {
		return nil, err
	}
	start := time.Now()
	b, err := lc.Prepare(ctx)
	if err != nil {
		logger.Debugf("graph build for %s cancelled: %v", file, err)
		return nil, err
	}
	logger.Debugf("binding graph for %s ready: %d nodes in %s", file, b.NodeCount(), time.Since(start).Round(time.Millisecond))
	return b, nil
}

// RunScript runs a Risor script with the lookup, dependency and store host
// functions. Documents the script inserts are committed when it succeeds.
func (e *Engine) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	if err := e.runtime.RunScript(ctx, scriptPath, extraGlobals); err != nil {
		return fmt.Errorf("cxxbind: %w", err)
	}
	return nil
}

// RunSource is RunScript for inline source.
func (e *Engine) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	if err := e.runtime.RunSource(ctx, source, extraGlobals); err != nil {
		return fmt.Errorf("cxxbind: %w", err)
	}
	return nil
}

// Compile-time check: *Engine serves the script host functions.
var _ runtime.Host = (*Engine)(nil)
