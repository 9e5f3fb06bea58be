// Package bench times the same set of delay tasks run one after another and then all at once.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/thought-machine/sleepbench/src/cli/logging"
	"github.com/thought-machine/sleepbench/src/metrics"
	"github.com/thought-machine/sleepbench/src/run"
	"github.com/thought-machine/sleepbench/src/task"
	"github.com/thought-machine/sleepbench/src/timing"
)

var log = logging.Log

// tracerName identifies spans created by this package.
const tracerName = "github.com/thought-machine/sleepbench/src/bench"

// ErrInjected is the error returned by tasks that were asked to fail.
var ErrInjected = errors.New("injected failure")

// Names of the two strategies.
const (
	Sequential = "sequential"
	Concurrent = "concurrent"
)

// labels are what each strategy is called in the output.
var labels = map[string]string{
	Sequential: "Synchronous",
	Concurrent: "Asynchronous",
}

// Config describes a benchmark run.
type Config struct {
	// Tasks is the number of delay tasks, each of which waits for Delay.
	Tasks int
	Delay time.Duration
	// Timeout is applied to each strategy separately. Zero means no deadline.
	Timeout time.Duration
	// Policy and Parallelism configure the concurrent strategy.
	Policy      run.Policy
	Parallelism int
	// Fail holds 1-based indices of tasks that should fail immediately instead of waiting.
	Fail []int
	// Metrics, if set, receives observations of every run and task.
	Metrics *metrics.Metrics
}

// DefaultConfig returns the configuration of the reference run: three tasks of two seconds each.
func DefaultConfig() Config {
	return Config{
		Tasks: 3,
		Delay: 2 * time.Second,
	}
}

// A Report is the result of a benchmark run.
type Report struct {
	RunID string
	// Measurements of the strategies that succeeded, in the order they ran.
	Measurements []timing.Measurement
}

// Speedup returns how many times faster the concurrent strategy was than the sequential one,
// or zero if either is missing.
func (r *Report) Speedup() float64 {
	var seq, con float64
	for _, m := range r.Measurements {
		switch m.Strategy {
		case Sequential:
			seq = m.Seconds()
		case Concurrent:
			con = m.Seconds()
		}
	}
	if seq == 0 || con == 0 {
		return 0
	}
	return seq / con
}

type strategy struct {
	name string
	run  func(ctx context.Context, tasks []task.Task) ([]run.Result, error)
}

// Run builds the task set and measures the sequential strategy followed by the concurrent one.
// It stops at the first strategy that fails; the report then holds only the strategies before it.
func Run(ctx context.Context, config Config) (*Report, error) {
	tasks, err := config.tasks()
	if err != nil {
		return nil, err
	}
	strategies := []strategy{
		{name: Sequential, run: run.Sequential},
		{name: Concurrent, run: func(ctx context.Context, tasks []task.Task) ([]run.Result, error) {
			return run.Concurrent(ctx, tasks, run.Options{Policy: config.Policy, Parallelism: config.Parallelism})
		}},
	}
	return config.runStrategies(ctx, tasks, strategies)
}

// runStrategies measures each strategy in turn over the same tasks.
func (config Config) runStrategies(ctx context.Context, tasks []task.Task, strategies []strategy) (*Report, error) {
	report := &Report{RunID: uuid.New().String()}
	log.Info("Starting run %s with %d tasks of %s", report.RunID, len(tasks), config.Delay)
	for _, s := range strategies {
		m, err := config.measure(ctx, s, tasks)
		if err != nil {
			return report, err
		}
		log.Notice("%s run took %s", s.name, m.Elapsed)
		report.Measurements = append(report.Measurements, m)
	}
	return report, nil
}

// measure times a single strategy and records what happened.
func (config Config) measure(ctx context.Context, s strategy, tasks []task.Task) (timing.Measurement, error) {
	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, s.name)
	defer span.End()
	var results []run.Result
	start := time.Now()
	m, err := timing.Measure(s.name, func() (err error) {
		results, err = s.run(ctx, tasks)
		return err
	})
	for _, r := range results {
		config.Metrics.RecordTask(s.name, r.Elapsed, r.Err == nil)
	}
	if err != nil {
		config.Metrics.RecordRun(s.name, time.Since(start), false)
		span.SetStatus(codes.Error, err.Error())
		if config.Timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			return m, fmt.Errorf("%s run timed out after %s: %w", s.name, config.Timeout, err)
		}
		return m, fmt.Errorf("%s run failed: %w", s.name, err)
	}
	config.Metrics.RecordRun(s.name, m.Elapsed, true)
	return m, nil
}

// tasks builds the task set for this config.
func (config Config) tasks() ([]task.Task, error) {
	if config.Tasks < 0 {
		return nil, fmt.Errorf("invalid number of tasks: %d", config.Tasks)
	} else if config.Delay < 0 {
		return nil, fmt.Errorf("invalid delay: %s", config.Delay)
	}
	tasks := task.Requests(config.Tasks, config.Delay)
	for _, i := range config.Fail {
		if i < 1 || i > len(tasks) {
			return nil, fmt.Errorf("can't fail task %d, there are only %d tasks", i, len(tasks))
		}
		tasks[i-1] = task.Fail(tasks[i-1].Name, ErrInjected)
	}
	return tasks, nil
}

// Write prints a single measurement line in the form
//   Synchronous time taken:  6.004
func Write(w io.Writer, m timing.Measurement) error {
	label, present := labels[m.Strategy]
	if !present {
		label = m.Strategy
	}
	_, err := fmt.Fprintln(w, label+" time taken: ", m.Seconds())
	return err
}
