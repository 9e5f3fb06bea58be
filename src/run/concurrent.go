package run

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/thought-machine/sleepbench/src/task"
)

// A Policy decides what Concurrent does when a task fails.
type Policy int

const (
	// FailFast cancels the remaining tasks on the first failure and reports that failure.
	FailFast Policy = iota
	// WaitAll lets every task finish and reports all failures.
	WaitAll
)

// String implements the fmt.Stringer interface
func (p Policy) String() string {
	if p == WaitAll {
		return "wait-all"
	}
	return "fail-fast"
}

// Options configures a concurrent run.
type Options struct {
	Policy Policy
	// Parallelism limits how many tasks are in flight at once. Zero or less means no limit.
	Parallelism int
}

// Concurrent runs a series of tasks in parallel and waits for all of them to finish.
// Results are returned in the same order as the tasks, not the order they completed in.
// Every goroutine it starts has returned by the time it returns, whatever the policy.
func Concurrent(ctx context.Context, tasks []task.Task, opts Options) ([]Result, error) {
	results := make([]Result, len(tasks))
	if opts.Policy == WaitAll {
		return results, waitAll(ctx, tasks, opts.Parallelism, results)
	}
	g, ctx := errgroup.WithContext(ctx)
	setLimit(g, opts.Parallelism)
	for i, t := range tasks {
		i, t := i, t // capture locally
		g.Go(func() error {
			results[i] = execute(ctx, t)
			return results[i].Err
		})
	}
	return results, g.Wait()
}

// waitAll runs every task to completion and collects all their failures, in task order.
func waitAll(ctx context.Context, tasks []task.Task, parallelism int, results []Result) error {
	var g errgroup.Group
	setLimit(&g, parallelism)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			results[i] = execute(ctx, t)
			return nil
		})
	}
	g.Wait()
	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return merr.ErrorOrNil()
}

func setLimit(g *errgroup.Group, parallelism int) {
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
}
