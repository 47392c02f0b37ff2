package accumulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExitPolicies(t *testing.T) {
	tests := []struct {
		name    string
		policy  ExitPolicy
		samples int
		elapsed time.Duration
		want    bool
	}{
		{"exact below", ExactSamples{N: 64}, 63, time.Hour, false},
		{"exact reached", ExactSamples{N: 64}, 64, 0, true},
		{"exact zero", ExactSamples{N: 0}, 0, 0, true},
		{"min short of samples", MinSamplesOrTime{Min: 10, Budget: time.Second}, 9, time.Minute, false},
		{"min short of time", MinSamplesOrTime{Min: 10, Budget: time.Second}, 500, time.Millisecond, false},
		{"min both met", MinSamplesOrTime{Min: 10, Budget: time.Second}, 10, time.Second, true},
		{"bounded below min", BoundedTime{Min: 10, Max: 20, Budget: time.Second}, 9, time.Hour, false},
		{"bounded at max", BoundedTime{Min: 10, Max: 20, Budget: time.Hour}, 20, 0, true},
		{"bounded budget spent", BoundedTime{Min: 10, Max: 20, Budget: time.Second}, 12, time.Second, true},
		{"bounded running", BoundedTime{Min: 10, Max: 20, Budget: time.Second}, 12, time.Millisecond, false},
		{"unbounded", Unbounded{}, 1 << 30, 24 * time.Hour, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Done(tt.samples, tt.elapsed))
		})
	}
}

func TestExitPolicyNames(t *testing.T) {
	assert.Equal(t, "exact(64)", ExactSamples{N: 64}.String())
	assert.Equal(t, "min_time(min=4, budget=2s)", MinSamplesOrTime{Min: 4, Budget: 2 * time.Second}.String())
	assert.Equal(t, "bounded(min=1, max=9, budget=1m0s)", BoundedTime{Min: 1, Max: 9, Budget: time.Minute}.String())
	assert.Equal(t, "unbounded", Unbounded{}.String())
}
