package sweep

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"collatz-checker/internal/collatz"
)

// RunParallel checks the range with a pool of workers sharing memo.
// Each worker owns the trace of the check it is running.
//
// With HaltOnDivergence the first divergence found cancels the remaining
// candidates. Which candidates were checked before the cancellation is not
// deterministic; the smallest divergent start seen is reported as the halt.
//
// workers: if 0 or negative, uses runtime.NumCPU().
func RunParallel(ctx context.Context, checker *collatz.Checker, memo *collatz.SyncSet, opts Options) (Summary, error) {
	if err := opts.Validate(); err != nil {
		return Summary{}, err
	}

	workerPoolSize := opts.Workers
	if workerPoolSize <= 0 {
		workerPoolSize = runtime.NumCPU()
	}

	summary := newSummary(opts)
	progress(opts.Progress, fmt.Sprintf("Checking %d..%d with %d workers (policy: %s)",
		opts.Lower, opts.Upper, workerPoolSize, opts.Policy))

	haltCtx, halt := context.WithCancel(ctx)
	defer halt()

	candidates := make(chan uint64, workerPoolSize*4)
	results := make(chan collatz.Result, workerPoolSize*4)

	eg, egCtx := errgroup.WithContext(haltCtx)

	// Feed candidates until the range is exhausted or the sweep is halted
	eg.Go(func() error {
		defer close(candidates)
		for n := opts.Lower; ; n++ {
			select {
			case candidates <- n:
			case <-egCtx.Done():
				return nil
			}
			if n == opts.Upper {
				return nil
			}
		}
	})

	for w := 1; w <= workerPoolSize; w++ {
		eg.Go(func() error {
			return checkWorker(egCtx, checker, memo, candidates, results)
		})
	}

	// Collect results in a separate goroutine
	done := make(chan struct{})
	go func() {
		defer close(done)
		for result := range results {
			summary.Checked++
			switch {
			case result.Converged:
				summary.Converged++
			case result.Overflow:
				summary.Unresolved = append(summary.Unresolved, result.Start)
			default:
				summary.Divergences = append(summary.Divergences, Divergence{Start: result.Start, Trace: result.Trace})
				if opts.Policy == HaltOnDivergence {
					halt()
				}
			}

			if summary.Checked%progressReportInterval == 0 {
				progress(opts.Progress, fmt.Sprintf("  Checked %d candidates (memo size %d)", summary.Checked, memo.Len()))
			}
		}
	}()

	// Wait for all workers to finish
	err := eg.Wait()

	// Close results channel to signal collector we're done
	close(results)
	<-done

	slices.SortFunc(summary.Divergences, func(a, b Divergence) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	slices.Sort(summary.Unresolved)

	if opts.Policy == HaltOnDivergence && len(summary.Divergences) > 0 {
		summary.Halted = true
		checker.Reporter().Halted(summary.Divergences[0].Start)
	}

	summary = finish(summary, memo)
	if err != nil {
		return summary, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("sweep interrupted: %w", ctxErr)
	}

	progress(opts.Progress, fmt.Sprintf("Checked %d candidates, %d converged, %d diverged",
		summary.Checked, summary.Converged, len(summary.Divergences)))
	return summary, nil
}

func checkWorker(ctx context.Context, checker *collatz.Checker, memo collatz.Memo, candidates <-chan uint64, results chan<- collatz.Result) error {
	for n := range candidates {
		if ctx.Err() != nil {
			continue // drain so the feeder can exit
		}
		results <- checker.Walk(n, memo)
	}
	return nil
}
