package cxxbind

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jward/cxxbind/internal/logger"
)

// Warm builds the binding graphs anchored at files concurrently, every
// stored document when files is empty. At most the configured number of
// workers build at once. The first failure cancels the remaining builds and
// is returned; graphs that finished stay cached.
//
// With eager flushing off, a graph's nodes still fill in lazily; Warm only
// moves the top-level pass off the query path.
func (e *Engine) Warm(ctx context.Context, files ...string) error {
	if len(files) == 0 {
		snap, err := e.Snapshot(ctx)
		if err != nil {
			return err
		}
		files = snap.Files()
	}
	if len(files) == 0 {
		return nil
	}

	numWorkers := e.workers
	if numWorkers < 1 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = min(numWorkers, len(files))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for _, file := range files {
		g.Go(func() error {
			b, err := e.Bindings(gctx, file)
			if err != nil {
				return fmt.Errorf("cxxbind: warm %s: %w", file, err)
			}
			if b == nil {
				return fmt.Errorf("cxxbind: warm %s: unknown document", file)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Debugf("warmed %d graphs with %d workers in %s", len(files), numWorkers, time.Since(start).Round(time.Millisecond))
	return nil
}
