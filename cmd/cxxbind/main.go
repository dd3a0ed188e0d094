package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
	"github.com/jward/cxxbind/internal/bindings"
	"github.com/jward/cxxbind/internal/config"
	"github.com/jward/cxxbind/internal/logger"
	"github.com/jward/cxxbind/scripts"
)

var (
	flagDB      string
	flagFormat  string
	flagConfig  string
	flagVerbose bool
)

// cfg is loaded by the root command before any subcommand runs.
var cfg = config.Default()

// repoRoot is the directory relative database paths resolve against.
var repoRoot string

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "cxxbind",
	Short:         "C++ name lookup over a stored snapshot",
	Long:          "cxxbind builds cross-document binding graphs from parsed C++ documents stored in a SQLite database and answers name-lookup, qualification and include-dependency queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadConfig()
	},
	// No Run, prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .cxxbind/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .cxxbind.toml at the repo root)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(includesCmd)
	rootCmd.AddCommand(depsCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(typeCmd)
	rootCmd.AddCommand(qualifiedNameCmd)
	rootCmd.AddCommand(minimalNameCmd)
	rootCmd.AddCommand(basesCmd)
	rootCmd.AddCommand(derivedCmd)
	rootCmd.AddCommand(scriptCmd)
	rootCmd.AddCommand(watchCmd)
}

// loadConfig reads the config file and applies --verbose over it.
func loadConfig() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot = findRepoRoot(cwd)

	path := flagConfig
	if path == "" {
		path = filepath.Join(repoRoot, config.FileName)
	}
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	cfg = loaded
	logger.SetDebug(flagVerbose || cfg.Verbose)
	return nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config
// file, or the default, in that order.
func resolveDBPath(root string) string {
	path := cfg.Database
	if flagDB != "" {
		path = flagDB
	}
	if path == "" {
		path = filepath.Join(".cxxbind", "index.db")
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// engineOptions derives Engine options from the loaded config.
func engineOptions(c config.Config) ([]cxxbind.Option, error) {
	scope, ok := bindings.ParseDocumentScope(c.DocumentScope)
	if !ok {
		return nil, fmt.Errorf("document_scope: unknown value %q", c.DocumentScope)
	}
	policy := cxxbind.HideInlineNamespaces
	if c.InlineNamespaces == "show" {
		policy = cxxbind.ShowInlineNamespaces
	}
	return []cxxbind.Option{
		cxxbind.WithExpandTemplates(c.ExpandTemplates),
		cxxbind.WithDocumentScope(scope),
		cxxbind.WithInlineNamespaces(policy),
		cxxbind.WithWorkers(c.Workers),
	}, nil
}

// openEngine opens the Engine over the configured database, which must
// already exist.
func openEngine() (*cxxbind.Engine, error) {
	dbPath := resolveDBPath(repoRoot)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s", dbPath)
	}
	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	// Script source: scripts_dir overrides the embedded reports.
	if cfg.ScriptsDir == "" {
		opts = append(opts, cxxbind.WithScriptsFS(scripts.FS))
	}
	e, err := cxxbind.New(dbPath, cfg.ScriptsDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("opening engine: %w", err)
	}
	return e, nil
}
