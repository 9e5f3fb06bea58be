// Package timing measures how long a strategy takes to run.
package timing

import (
	"fmt"
	"time"
)

// A Measurement is the elapsed time of one successful invocation.
type Measurement struct {
	Strategy string
	Elapsed  time.Duration
}

// Seconds returns the elapsed time as a floating-point number of seconds.
func (m Measurement) Seconds() float64 {
	return m.Elapsed.Seconds()
}

// String implements the fmt.Stringer interface
func (m Measurement) String() string {
	return fmt.Sprintf("%s: %s", m.Strategy, m.Elapsed)
}

// Measure invokes f synchronously and reports how long it took.
// The times are taken with time.Now, whose monotonic reading is what time.Since subtracts,
// so changes to the wall clock during the run don't affect the result.
// If f fails its error is returned and the measurement is discarded.
func Measure(strategy string, f func() error) (Measurement, error) {
	start := time.Now()
	if err := f(); err != nil {
		return Measurement{}, err
	}
	return Measurement{Strategy: strategy, Elapsed: time.Since(start)}, nil
}
