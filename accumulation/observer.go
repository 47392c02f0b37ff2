package accumulation

import "time"

// Progress describes the session after a completed sample.
type Progress struct {
	Samples      int           `json:"samples"`
	State        State         `json:"state"`
	Phase        bool          `json:"phase"`
	Accumulating bool          `json:"accumulating"`
	Elapsed      time.Duration `json:"elapsed_ns"`
}

// Observer receives session events. Implementations must return promptly;
// they are called on the render thread.
type Observer interface {
	SampleCompleted(p Progress)
	Presented(samples int)
	Upscaled(samples int)
	Reloaded(ok bool, err error)
}

type nopObserver struct{}

func (nopObserver) SampleCompleted(Progress) {}
func (nopObserver) Presented(int)            {}
func (nopObserver) Upscaled(int)             {}
func (nopObserver) Reloaded(bool, error)     {}
