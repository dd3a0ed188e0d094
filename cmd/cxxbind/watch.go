package main

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jward/cxxbind"
	"github.com/jward/cxxbind/internal/logger"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [file...]",
	Short: "Reload when the database changes and reprint dependents",
	Long:  "Watches the database for writes by the indexer. After each change the snapshot is reloaded and, for every file argument, the documents that transitively include it are printed.",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 250*time.Millisecond, "quiet period before reloading")
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := openEngine()
	if err != nil {
		return outputError("watch", err)
	}
	defer e.Close()

	ctx := cmd.Context()
	if err := printDependents(ctx, e, args); err != nil {
		return outputError("watch", err)
	}

	dbPath := resolveDBPath(repoRoot)
	err = watchDatabase(ctx, dbPath, flagDebounce, func() error {
		changed, err := e.Refresh(ctx)
		if err != nil || !changed {
			return err
		}
		logger.Printf("reloaded %s", dbPath)
		return printDependents(ctx, e, args)
	})
	if err != nil {
		return outputError("watch", err)
	}
	return nil
}

func printDependents(ctx context.Context, e *cxxbind.Engine, files []string) error {
	for _, file := range files {
		deps, err := e.FilesDependingOn(ctx, file)
		if err != nil {
			return err
		}
		n := len(deps)
		if err := outputResult(CLIResult{
			Command:    "watch " + file,
			Results:    nonNil(deps),
			TotalCount: &n,
		}); err != nil {
			return err
		}
	}
	return nil
}

// isDatabaseEvent reports whether name is the database file or one of the
// journal files SQLite writes beside it.
func isDatabaseEvent(dbPath, name string) bool {
	base := filepath.Base(dbPath)
	got := filepath.Base(name)
	if filepath.Dir(filepath.Clean(name)) != filepath.Dir(filepath.Clean(dbPath)) {
		return false
	}
	return got == base || strings.HasPrefix(got, base+"-")
}

// watchDatabase calls onChange once writes to dbPath have been quiet for
// debounce. It returns nil when ctx is done.
func watchDatabase(ctx context.Context, dbPath string, debounce time.Duration, onChange func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// SQLite replaces journal files, so watch the directory.
	if err := watcher.Add(filepath.Dir(dbPath)); err != nil {
		return err
	}

	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDatabaseEvent(dbPath, event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if pending && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
			pending = true
		case <-timer.C:
			pending = false
			if err := onChange(); err != nil {
				return err
			}
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return watchErr
		}
	}
}
