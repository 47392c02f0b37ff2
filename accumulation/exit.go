package accumulation

import (
	"fmt"
	"time"
)

// ExitPolicy decides, before each iteration, whether the accumulation loop is
// finished.
type ExitPolicy interface {
	Done(samples int, elapsed time.Duration) bool
	fmt.Stringer
}

// ExactSamples stops after exactly N samples regardless of time.
type ExactSamples struct {
	N int
}

func (p ExactSamples) Done(samples int, _ time.Duration) bool { return samples >= p.N }

func (p ExactSamples) String() string { return fmt.Sprintf("exact(%d)", p.N) }

// MinSamplesOrTime keeps going while fewer than Min samples are done or the
// budget has not run out.
type MinSamplesOrTime struct {
	Min    int
	Budget time.Duration
}

func (p MinSamplesOrTime) Done(samples int, elapsed time.Duration) bool {
	return samples >= p.Min && elapsed >= p.Budget
}

func (p MinSamplesOrTime) String() string {
	return fmt.Sprintf("min_time(min=%d, budget=%s)", p.Min, p.Budget)
}

// BoundedTime stops once the budget has run out and Min samples are done, and
// never goes past Max samples. Min must not exceed Max.
type BoundedTime struct {
	Min, Max int
	Budget   time.Duration
}

func (p BoundedTime) Done(samples int, elapsed time.Duration) bool {
	if samples < p.Min {
		return false
	}
	return samples >= p.Max || elapsed >= p.Budget
}

func (p BoundedTime) String() string {
	return fmt.Sprintf("bounded(min=%d, max=%d, budget=%s)", p.Min, p.Max, p.Budget)
}

// Unbounded only ends on an interactive abort.
type Unbounded struct{}

func (Unbounded) Done(int, time.Duration) bool { return false }

func (Unbounded) String() string { return "unbounded" }
