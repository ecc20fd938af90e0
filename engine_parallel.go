package execscan

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/jward/execscan/internal/store"
)

// workItem holds everything a parallel classification worker needs.
type workItem struct {
	path  string
	runID string
	batch *store.Batch
}

type workResult struct {
	path    string
	skipped bool
	err     error
}

// indexFilesParallel classifies files using a three-phase pipeline:
//
//	Phase A (serial):   Look up stored hashes for every path in one pass.
//	Phase B (parallel): Read, hash and classify via worker pool into a Batch.
//	Phase C (serial):   Commit the Batch to SQLite in a single transaction.
func (e *Engine) indexFilesParallel(ctx context.Context, run *Run, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	// ---- Phase A: Serial hash lookup ----
	existing, err := e.store.FileStamps(paths)
	if err != nil {
		return fmt.Errorf("execscan: lookup files: %w", err)
	}

	// ---- Phase B: Parallel classification ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(paths)))

	batch := store.NewBatch()
	workCh := make(chan workItem, len(paths))
	for _, p := range paths {
		workCh <- workItem{path: p, runID: run.ID, batch: batch}
	}
	close(workCh)

	resultCh := make(chan workResult, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				resultCh <- e.classifyItem(ctx, item, existing)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var errs []error
	for res := range resultCh {
		switch {
		case res.err != nil:
			run.Failed++
			e.logger.Warn("classify failed", zap.String("path", res.path), zap.Error(res.err))
			errs = append(errs, fmt.Errorf("index %s: %w", res.path, res.err))
		case res.skipped:
			run.Skipped++
		}
	}

	// ---- Phase C: Serial commit ----
	if err := e.store.CommitBatch(batch); err != nil {
		run.Failed += batch.Len()
		errs = append(errs, fmt.Errorf("commit: %w", err))
	} else {
		run.Indexed += batch.Len()
	}

	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// classifyItem does Phase B work for a single file. Cancelled contexts turn
// the remaining items into errors without touching the filesystem.
func (e *Engine) classifyItem(ctx context.Context, item workItem, existing map[string]store.Stamp) workResult {
	if err := ctx.Err(); err != nil {
		return workResult{path: item.path, err: err}
	}
	f, skip, err := e.classifyPath(item.path, existing, item.runID)
	if err != nil {
		return workResult{path: item.path, err: err}
	}
	if skip {
		return workResult{path: item.path, skipped: true}
	}
	item.batch.Add(f)
	return workResult{path: item.path}
}
