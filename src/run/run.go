// Package run implements running a set of tasks, either one after another or all at once.
package run

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thought-machine/sleepbench/src/cli/logging"
	"github.com/thought-machine/sleepbench/src/task"
)

var log = logging.Log

// tracerName identifies spans created by this package.
const tracerName = "github.com/thought-machine/sleepbench/src/run"

// A Result describes the outcome of a single task.
type Result struct {
	Task    string
	Elapsed time.Duration
	Err     error
}

// Sequential runs a series of tasks sequentially.
// It stops at the first failure and returns it; later tasks are never started.
// The returned results cover every task that was started, in order.
func Sequential(ctx context.Context, tasks []task.Task) ([]Result, error) {
	results := make([]Result, 0, len(tasks))
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return results, &task.Failure{Task: t.Name, Err: err}
		}
		r := execute(ctx, t)
		results = append(results, r)
		if r.Err != nil {
			return results, r.Err
		}
	}
	return results, nil
}

// execute runs a single task in its own span and times it.
func execute(ctx context.Context, t task.Task) Result {
	ctx, span := otel.Tracer(tracerName).Start(ctx, t.Name, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()
	log.Debug("Starting %s", t.Name)
	start := time.Now()
	err := t.Execute(ctx)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Info("%s failed after %s: %s", t.Name, elapsed, err)
	} else {
		log.Debug("Finished %s in %s", t.Name, elapsed)
	}
	return Result{Task: t.Name, Elapsed: elapsed, Err: err}
}
