package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalContextCancelledBySignal(t *testing.T) {
	ctx, release := SignalContext(context.Background())
	defer release()
	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGHUP))
	select {
	case <-ctx.Done():
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by signal")
	}
}

func TestSignalContextRelease(t *testing.T) {
	ctx, release := SignalContext(context.Background())
	assert.NoError(t, ctx.Err())
	release()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestHandleSignalsReturnsAfterRelease(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		handleSignals(ctx, cancel, ch, stop)
		close(done)
	}()
	ch <- syscall.SIGHUP
	<-ctx.Done()
	close(stop)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("signal handler did not return after release")
	}
}

func TestHandleSignalsSecondSignalExits(t *testing.T) {
	defer func() { exit = exitForSignal }()
	exited := make(chan os.Signal, 1)
	exit = func(sig os.Signal) { exited <- sig }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan os.Signal, 2)
	ch <- syscall.SIGINT
	ch <- syscall.SIGTERM
	handleSignals(ctx, cancel, ch, make(chan struct{}))
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, syscall.SIGTERM, <-exited)
}
