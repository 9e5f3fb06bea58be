// Package task defines the delay tasks that the runners execute.
//
// A delay task stands in for an I/O-bound call such as a network request; it does nothing but
// wait for a fixed duration. Tasks are independent and share no mutable state.
package task

import (
	"context"
	"fmt"
	"time"
)

// A Func is the body of a task. It should return promptly once ctx is done.
type Func func(ctx context.Context) error

// A Task is a named unit of work.
type Task struct {
	Name string
	Run  Func
}

// Delay returns a task that waits for the given duration.
// If the context is done first it gives up and returns a Failure wrapping the context's error.
func Delay(name string, d time.Duration) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Fail returns a task that fails immediately with the given error.
func Fail(name string, err error) Task {
	return Task{
		Name: name,
		Run: func(ctx context.Context) error {
			return err
		},
	}
}

// Requests returns n delay tasks of duration d, named get-1 to get-n.
func Requests(n int, d time.Duration) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = Delay(fmt.Sprintf("get-%d", i+1), d)
	}
	return tasks
}

// Execute runs the task and converts any error it returns into a Failure.
func (t Task) Execute(ctx context.Context) error {
	if err := t.Run(ctx); err != nil {
		return &Failure{Task: t.Name, Err: err}
	}
	return nil
}
