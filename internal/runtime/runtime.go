package runtime

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/store"
)

// Runtime embeds a Risor VM and provides lookup, dependency and Store host
// functions to scripts.
type Runtime struct {
	store      *store.Store
	host       Host
	policy     bindings.InlineNamespacePolicy
	scriptsDir string
	fsys       fs.FS
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS configures the Runtime to load scripts from an fs.FS
// instead of from disk. Also configures the Risor importer to use
// FSImporter for import statement resolution.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithHost exposes the snapshot, dependency and lookup host functions.
// Without a host only the store and log globals exist.
func WithHost(h Host) RuntimeOption {
	return func(r *Runtime) {
		r.host = h
	}
}

// WithInlineNamespaces sets how printed names treat inline namespaces.
func WithInlineNamespaces(policy bindings.InlineNamespacePolicy) RuntimeOption {
	return func(r *Runtime) {
		r.policy = policy
	}
}

// NewRuntime creates a Runtime wired to the given Store and scripts directory.
// Accepts optional RuntimeOptions for configuration such as fs.FS-based script loading.
func NewRuntime(s *store.Store, scriptsDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		store:      s,
		scriptsDir: scriptsDir,
		policy:     bindings.HideInlineNamespaces,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunScript loads and executes a Risor script with all standard globals
// plus any extra globals provided by the caller.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

// RunSource executes Risor source code directly with all standard globals
// plus any extra globals. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// eval runs source with store inserts buffered in a BatchedStore. The batch
// is committed in one transaction only when the script succeeds.
func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	var batch *store.BatchedStore
	if r.store != nil {
		batch = store.NewBatchedStore(r.store)
	}
	globals := r.buildGlobals(batch, extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Imported modules compile against the same names as the script:
	// Risor's builtins and default modules plus the host globals.
	if imp := r.buildImporter(risor.NewConfig(opts...).GlobalNames()); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	if _, err := risor.Eval(ctx, source, opts...); err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	if batch != nil {
		if err := r.store.CommitBatch(batch); err != nil {
			return fmt.Errorf("runtime: script %s: %w", label, err)
		}
	}
	return nil
}

// buildImporter returns a Risor importer configured for the Runtime's script source.
// Returns nil if neither fs.FS nor scriptsDir is configured.
func (r *Runtime) buildImporter(globalNames []string) importer.Importer {
	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.scriptsDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.scriptsDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

// LoadScript reads a .risor file and returns its source code.
// When an fs.FS is configured, uses fs.ReadFile on the embedded filesystem.
// Otherwise, uses os.ReadFile with scriptsDir as the base directory.
func (r *Runtime) LoadScript(path string) (string, error) {
	if r.fsys != nil {
		// For fs.FS, strip any leading path separator so the path is
		// relative within the FS (e.g., "/report/bases.risor" -> "report/bases.risor").
		fsPath := strings.TrimPrefix(filepath.ToSlash(path), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := path
	if !filepath.IsAbs(path) {
		fullPath = filepath.Join(r.scriptsDir, path)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// buildGlobals constructs the full set of globals exposed to Risor scripts.
func (r *Runtime) buildGlobals(batch *store.BatchedStore, extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{}),
	}

	if r.host != nil {
		h := &hostFuncs{host: r.host, policy: r.policy}
		globals["documents"] = h.documentsFn()
		globals["includes"] = h.includesFn()
		globals["files_depending_on"] = h.filesDependingOnFn()
		globals["lookup"] = h.lookupFn()
		globals["lookup_type"] = h.lookupTypeFn()
		globals["qualified_name"] = h.qualifiedNameFn()
		globals["minimal_name"] = h.minimalNameFn()
		globals["base_classes"] = h.baseClassesFn()
	}

	// Inserts are buffered in the batch. Risor cannot construct Go struct
	// pointers, so these accept maps and build structs Go-side.
	if batch != nil {
		globals["insert_file"] = makeInsertFileFn(batch)
		globals["insert_include"] = makeInsertIncludeFn(batch)
		globals["insert_symbol"] = makeInsertSymbolFn(batch)
		globals["file_by_path"] = makeFileByPathFn(batch)
		globals["symbols_by_file"] = makeSymbolsByFileFn(batch)
	}

	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
