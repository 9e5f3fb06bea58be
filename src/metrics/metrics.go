// Package metrics contains support for reporting metrics to an external server,
// currently a Prometheus pushgateway. Because we run as a transient process
// we can't wait around for Prometheus to call us, we've got to push to them.
package metrics

import (
	"fmt"
	"os/user"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/thought-machine/sleepbench/src/cli/logging"
)

var log = logging.Log

// jobName is the job that metrics are pushed under.
const jobName = "sleepbench"

// Metrics holds the collectors for a single invocation.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry                    *prometheus.Registry
	runHistogram, taskHistogram *prometheus.HistogramVec
	taskCounter                 *prometheus.CounterVec
}

// New creates a new set of metrics on a private registry.
func New() *Metrics {
	u, err := user.Current()
	if err != nil {
		log.Warning("Can't determine current user name for metrics")
		u = &user.User{Username: "unknown"}
	}
	constLabels := prometheus.Labels{
		"user": u.Username,
		"arch": runtime.GOOS + "_" + runtime.GOARCH,
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	// Wall-clock durations of each strategy as a whole.
	m.runHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "sleepbench_run_duration_seconds",
		Help:        "Durations of each run of a strategy",
		Buckets:     prometheus.LinearBuckets(0, 0.5, 40),
		ConstLabels: constLabels,
	}, []string{"strategy", "success"})

	// Durations of individual tasks.
	m.taskHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "sleepbench_task_duration_seconds",
		Help:        "Durations of individual tasks",
		Buckets:     prometheus.LinearBuckets(0, 0.1, 50),
		ConstLabels: constLabels,
	}, []string{"strategy"})

	// Count of tasks run
	m.taskCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "sleepbench_tasks_total",
		Help:        "Count of tasks run, by outcome",
		ConstLabels: constLabels,
	}, []string{"strategy", "success"})

	m.registry.MustRegister(m.runHistogram, m.taskHistogram, m.taskCounter)
	return m
}

// RecordRun records the duration of one run of a strategy.
func (m *Metrics) RecordRun(strategy string, duration time.Duration, success bool) {
	if m != nil {
		m.runHistogram.WithLabelValues(strategy, strconv.FormatBool(success)).Observe(duration.Seconds())
	}
}

// RecordTask records the outcome of a single task.
func (m *Metrics) RecordTask(strategy string, duration time.Duration, success bool) {
	if m != nil {
		m.taskCounter.WithLabelValues(strategy, strconv.FormatBool(success)).Inc()
		m.taskHistogram.WithLabelValues(strategy).Observe(duration.Seconds())
	}
}

// Push sends the current metrics to the pushgateway at the given URL, grouped under the given run ID.
// It gives up after the given timeout.
func (m *Metrics) Push(url, runID string, timeout time.Duration) error {
	if m == nil {
		return nil
	}
	start := time.Now()
	if err := deadline(func() error {
		return push.New(url, jobName).Gatherer(m.registry).Grouping("run_id", runID).Push()
	}, timeout); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	log.Debug("Pushed metrics in %0.3fs", time.Since(start).Seconds())
	return nil
}

// deadline applies a deadline to an arbitrary function and returns when either the function
// completes or the deadline expires.
func deadline(f func() error, timeout time.Duration) error {
	c := make(chan error, 1)
	go func() {
		c <- f()
	}()
	select {
	case err := <-c:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("timed out after %s", timeout)
	}
}
