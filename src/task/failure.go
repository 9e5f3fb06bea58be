package task

import "fmt"

// A Failure is returned when a task cannot complete.
type Failure struct {
	Task string
	Err  error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("task %s failed: %s", f.Task, f.Err)
}

// Unwrap returns the underlying cause, so errors.Is(err, context.DeadlineExceeded) and friends work.
func (f *Failure) Unwrap() error {
	return f.Err
}
