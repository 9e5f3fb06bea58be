package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// terminatingSignals are the signals we treat as a request to stop.
var terminatingSignals = []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM}

// exit is replaced in tests.
var exit = exitForSignal

// SignalContext returns a context that is cancelled when the process receives a terminating signal.
// The first signal cancels the context; a second one kills the process straight away.
// The returned function releases the signal handler.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	signal.Notify(ch, terminatingSignals...)
	go handleSignals(ctx, cancel, ch, stop)
	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(ch)
			close(stop)
			cancel()
		})
	}
}

// handleSignals waits until it receives a terminating signal from the OS, at which point it
// cancels the context so that whatever is running can wind down. It returns once stop is closed.
func handleSignals(ctx context.Context, cancel context.CancelFunc, ch <-chan os.Signal, stop <-chan struct{}) {
	select {
	case <-stop:
		return
	case <-ctx.Done():
		return
	case sig := <-ch:
		log.Warning("Received signal %s, cancelling", sig)
		cancel()
	}
	// Allow a second signal to terminate the process regardless
	select {
	case <-stop:
	case sig := <-ch:
		log.Warning("Received second signal %s, aborting", sig)
		exit(sig)
	}
}

// exitForSignal kills the process with an exit code suitable for the given signal.
func exitForSignal(sig os.Signal) {
	if s, ok := sig.(syscall.Signal); ok {
		os.Exit(128 + int(s))
	}
	os.Exit(1)
}
