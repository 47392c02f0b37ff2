package accumulation

import "time"

// Signals is one level-polled snapshot of the interactive controls.
type Signals struct {
	Abort            bool
	Clear            bool
	Restart          bool
	ToggleAccumulate bool
	SuppressPresent  bool
	Capture          bool
}

// Input polls the interactive controls. Poll must not block.
type Input interface {
	Poll() Signals
}

// Clock supplies the time used by time-budgeted exit policies.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
