package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/thought-machine/sleepbench/src/bench"
	"github.com/thought-machine/sleepbench/src/cli"
	"github.com/thought-machine/sleepbench/src/cli/logging"
	"github.com/thought-machine/sleepbench/src/metrics"
	"github.com/thought-machine/sleepbench/src/run"
	"github.com/thought-machine/sleepbench/src/tracing"
)

var log = logging.Log

var opts = struct {
	Usage       string
	Verbosity   cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (higher number = more output)"`
	NumTasks    int           `short:"n" long:"num_tasks" default:"3" description:"Number of simulated requests to make"`
	Delay       cli.Duration  `short:"d" long:"delay" default:"2s" description:"How long each simulated request takes"`
	Timeout     cli.Duration  `long:"timeout" description:"Deadline for each strategy. Unset means no deadline."`
	KeepGoing   bool          `short:"k" long:"keep_going" description:"Don't cancel concurrent requests when one fails; wait for them all and report every failure"`
	Parallelism int           `short:"p" long:"parallelism" description:"Maximum number of concurrent requests in flight (0 for no limit)"`
	Fail        []int         `long:"fail" description:"1-based index of a request that should fail immediately. Can be repeated."`
	TraceFile   string        `long:"trace_file" description:"File to write OpenTelemetry spans for each run and request into"`
	Metrics     struct {
		PushGatewayURL cli.URL      `long:"push_gateway_url" description:"Prometheus pushgateway to send metrics to"`
		PushTimeout    cli.Duration `long:"push_timeout" default:"5s" description:"Timeout for pushing metrics"`
	} `group:"Options controlling metrics"`
}{
	Usage: `
sleepbench shows the difference between waiting on a set of slow calls one after another and waiting
on them all at once. Each simulated request just sleeps; by default there are three of two seconds each,
so the synchronous run takes about six seconds and the asynchronous one about two.
`,
}

func main() {
	cli.ParseFlagsOrDie("sleepbench", &opts)
	cli.InitLogging(opts.Verbosity)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warning("Failed to set GOMAXPROCS: %s", err)
	}
	ctx, cancel := cli.SignalContext(context.Background())
	code := traced(func() int {
		return start(ctx, os.Stdout, config())
	})
	cancel()
	os.Exit(code)
}

// runBench is what start runs; tests replace it.
var runBench = bench.Run

// traced runs f with tracing enabled if --trace_file was given.
func traced(f func() int) int {
	if opts.TraceFile == "" {
		return f()
	}
	shutdown, err := tracing.Init(opts.TraceFile)
	if err != nil {
		log.Critical("%s", err)
		return 1
	}
	code := f()
	if err := shutdown(context.Background()); err != nil {
		log.Warning("Failed to write traces: %s", err)
	}
	return code
}

// config converts the command-line options into a benchmark configuration.
func config() bench.Config {
	c := bench.DefaultConfig()
	c.Tasks = opts.NumTasks
	c.Delay = time.Duration(opts.Delay)
	c.Timeout = time.Duration(opts.Timeout)
	c.Parallelism = opts.Parallelism
	c.Fail = opts.Fail
	if opts.KeepGoing {
		c.Policy = run.WaitAll
	}
	if opts.Metrics.PushGatewayURL != "" {
		c.Metrics = metrics.New()
	}
	return c
}

// start runs the benchmark, prints the timings of every strategy that succeeded to w
// and returns the exit code.
func start(ctx context.Context, w io.Writer, config bench.Config) int {
	report, err := runBench(ctx, config)
	if report != nil {
		for _, m := range report.Measurements {
			if err := bench.Write(w, m); err != nil {
				log.Critical("Failed to write output: %s", err)
				return 1
			}
		}
		if err := config.Metrics.Push(opts.Metrics.PushGatewayURL.String(), report.RunID, time.Duration(opts.Metrics.PushTimeout)); err != nil {
			log.Warning("%s", err)
		}
	}
	if err != nil {
		// Critical so that it is shown at any verbosity.
		log.Critical("%s", err)
		return 1
	}
	if speedup := report.Speedup(); speedup > 0 {
		log.Notice("Asynchronous run was %sx faster", humanize.FtoaWithDigits(speedup, 2))
	}
	return 0
}
