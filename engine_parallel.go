package xref

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
)

// workItem holds everything a parallel extraction worker needs.
type workItem struct {
	seq    int
	path   string
	src    []byte
	driver driver
}

// indexFilesParallel indexes files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Driver selection and file reads.
//	Phase B (parallel): Parse and extract via worker pool, one aggregate each.
//	Phase C (serial):   Commit units to SQLite through a single writer.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) ([]*Unit, error) {
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		item.seq = len(items)
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, joinIndexErrors(errs)
	}

	// ---- Phase B: Parallel extraction ----
	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	numWorkers = max(1, min(numWorkers, len(items)))

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		unit *Unit
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Aggregates are single-writer; each item gets its own.
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				u, err := e.index(ctx, item.driver, item.path, item.src)
				resultCh <- result{item: item, unit: u, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	units := make([]*Unit, len(items))
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, res.err)
			continue
		}
		if err := e.commitIfStored(ctx, res.unit); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		units[res.item.seq] = res.unit
	}

	out := make([]*Unit, 0, len(units))
	for _, u := range units {
		if u != nil {
			out = append(out, u)
		}
	}
	return out, joinIndexErrors(errs)
}

// prepareFile does Phase A work for a single file. skip=true means no driver
// handles it.
func (e *Engine) prepareFile(path string) (workItem, bool, error) {
	d, ok := e.driverFor(path)
	if !ok {
		return workItem{}, true, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	return workItem{path: path, src: src, driver: d}, false, nil
}

func joinIndexErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
}
