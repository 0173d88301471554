// Package executor runs a sequence of independent tasks across a bounded
// pool of workers, grounded on
// original_source/include/Parallelization/Parallelization.h and its
// TaskExecutor/Progress collaborators. The work is not partitioned into
// per-worker slices: each task runs on its own goroutine under a
// concurrency limit of the worker count, a shared progress counter is
// incremented per finished task, and results are returned in task order
// once every task finishes. Go's
// equivalent of the original's thread pool is golang.org/x/sync/errgroup,
// which the fuzzing driver this project started from already pulls in as
// an indirect dependency for its own batch compilation step.
package executor

import (
	"context"
	"fmt"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work: compile a module, run a test against a
// mutant, load a bitcode file. It returns its own result plus any error;
// an error from one task never cancels the others (spec.md §4.7, §5: "no
// per-task cancellation" — a crashing mutant must not abort its siblings).
type Task[T any] func(ctx context.Context) (T, error)

// Progress is a thread-safe counter workers advance as they complete
// tasks, letting a caller report "N/total done" without a mutex of its
// own, mirroring Progress.h's shared atomic counter.
type Progress struct {
	completed atomic.Int64
	total     int64
}

// NewProgress creates a Progress tracker for total tasks.
func NewProgress(total int) *Progress {
	return &Progress{total: int64(total)}
}

// Completed returns how many tasks have finished so far.
func (p *Progress) Completed() int64 { return p.completed.Load() }

// Total returns the task count this Progress was created with.
func (p *Progress) Total() int64 { return p.total }

func (p *Progress) advance() { p.completed.Inc() }

// Run executes tasks across workers goroutines (1 if workers <= 0),
// returning one result per task in the same order the tasks were given
// regardless of completion order, plus a single aggregated error built
// from every task's individual failure with go.uber.org/multierr. progress
// may be nil when the caller doesn't need a running count.
func Run[T any](ctx context.Context, tasks []Task[T], workers int, progress *Progress) ([]T, error) {
	results := make([]T, len(tasks))
	if len(tasks) == 0 {
		return results, nil
	}
	if workers <= 0 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	var errs []error
	var errsIndex = make(chan error, len(tasks))

	for i, task := range tasks {
		i, task := i, task
		group.Go(func() error {
			result, err := task(groupCtx)
			results[i] = result
			if progress != nil {
				progress.advance()
			}
			if err != nil {
				errsIndex <- fmt.Errorf("task %d: %w", i, err)
			}
			return nil
		})
	}

	// errgroup's own Wait() would cancel groupCtx and stop queuing further
	// workers on the first error if tasks returned it directly; tasks
	// instead report failures out-of-band on errsIndex so every task runs
	// to completion regardless of its siblings' outcomes.
	_ = group.Wait()
	close(errsIndex)
	for err := range errsIndex {
		errs = append(errs, err)
	}

	return results, multierr.Combine(errs...)
}
