package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom/accumulation"
	"blossom/present"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
	require.NoError(t, s.Validate())
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := writeSettings(t, `{
		"canvas": {"width": 640, "height": 480},
		"accumulation": {"exit": "bounded", "minSamples": 16, "maxSamples": 1024, "timeBudget": "2m"},
		"reload": {"watch": true, "retryDelay": "5ms"},
		"interactive": false
	}`)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 640, s.Canvas.Width)
	assert.True(t, s.Canvas.VSync, "untouched defaults survive")
	assert.Equal(t, Duration(2*time.Minute), s.Accumulation.TimeBudget)
	assert.Equal(t, Duration(5*time.Millisecond), s.Reload.RetryDelay)
	assert.Equal(t, 10, s.Reload.Retries)
	assert.Equal(t, accumulation.BoundedTime{Min: 16, Max: 1024, Budget: 2 * time.Minute}, s.ExitPolicy())
	require.NoError(t, s.Validate())
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	_, err := Load(writeSettings(t, `{"canvas": `))
	assert.Error(t, err)

	_, err = Load(writeSettings(t, `{"reload": {"retryDelay": 5}}`))
	assert.Error(t, err)
}

func TestResolveAppliesFlags(t *testing.T) {
	off := false
	on := true
	s := Default().Resolve(Flags{
		Width:       320,
		Exit:        ExitExact,
		Samples:     64,
		Interactive: &off,
		Capture:     &on,
		Reload:      &off,
		Accumulate:  true,
		OutputDir:   "out",
		MonitorAddr: ":9090",
	})

	assert.Equal(t, 320, s.Canvas.Width)
	assert.Equal(t, 720, s.Canvas.Height)
	assert.Equal(t, accumulation.ExactSamples{N: 64}, s.ExitPolicy())
	assert.False(t, s.Interactive)
	assert.True(t, s.Capture.Enabled)
	assert.False(t, s.Reload.Enabled)
	assert.True(t, s.Accumulation.StartAccumulating)
	assert.Equal(t, "out", s.Capture.OutputDir)
	assert.Equal(t, ":9090", s.Monitor.Addr)
	assert.True(t, s.Accumulation.Progressive, "nil pointer flags leave settings alone")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
		ok     bool
	}{
		{"defaults", func(*Settings) {}, true},
		{"zero width", func(s *Settings) { s.Canvas.Width = 0 }, false},
		{"zero width auto size", func(s *Settings) { s.Canvas.Width = 0; s.Canvas.AutoSize = true }, true},
		{"unknown exit", func(s *Settings) { s.Accumulation.Exit = "forever" }, false},
		{"min above max", func(s *Settings) {
			s.Accumulation.Exit = ExitBounded
			s.Accumulation.MinSamples = 10
			s.Accumulation.MaxSamples = 5
		}, false},
		{"min equals max", func(s *Settings) {
			s.Accumulation.Exit = ExitBounded
			s.Accumulation.MinSamples = 5
			s.Accumulation.MaxSamples = 5
		}, true},
		{"unbounded batch", func(s *Settings) { s.Interactive = false }, false},
		{"bad pacing", func(s *Settings) { s.Accumulation.Pacing = "fast" }, false},
		{"no retries", func(s *Settings) { s.Reload.Retries = 0 }, false},
		{"webp upscale", func(s *Settings) { s.Capture.WebPScale = 2 }, false},
		{"unbound key", func(s *Settings) { s.Keys.Capture = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mutate(&s)
			err := s.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestCadenceResolution(t *testing.T) {
	s := Default()
	assert.Equal(t, present.Skippable, s.Cadence())
	s.Interactive = false
	assert.Equal(t, present.PowerOfTwo, s.Cadence())
	s.Accumulation.Progressive = false
	assert.Equal(t, present.Every, s.Cadence())
}

func TestPacingResolution(t *testing.T) {
	s := Default()
	s.Accumulation.Exit = ExitExact
	assert.False(t, s.SyncEachSample())
	s.Accumulation.Exit = ExitMinTime
	assert.True(t, s.SyncEachSample())
	s.Accumulation.Pacing = PacingThroughput
	assert.False(t, s.SyncEachSample())
}

func TestAllowAbortResolution(t *testing.T) {
	s := Default()
	assert.True(t, s.AllowAbort())
	s.Interactive = false
	s.Capture.Enabled = true
	assert.False(t, s.AllowAbort(), "batch capture runs ignore abort")
	yes := true
	s.Accumulation.AllowAbort = &yes
	assert.True(t, s.AllowAbort())
}

func TestOptions(t *testing.T) {
	s := Default().Resolve(Flags{Exit: ExitExact, Samples: 64, Debug: true})
	opts := s.Options(256, 256)
	assert.Equal(t, 256, opts.Width)
	assert.Equal(t, accumulation.DefaultPhaseOneSamples, opts.PhaseOneSamples)
	assert.Equal(t, accumulation.ExactSamples{N: 64}, opts.Exit)
	assert.True(t, opts.Interactive)
	assert.True(t, opts.Debug)
	assert.Equal(t, "debug", s.LogLevel())
}
