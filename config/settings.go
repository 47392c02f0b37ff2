package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"blossom/accumulation"
	"blossom/present"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Exit policy names.
const (
	ExitExact     = "exact"
	ExitMinTime   = "min_time"
	ExitBounded   = "bounded"
	ExitUnbounded = "unbounded"
)

// Pacing names.
const (
	PacingSync       = "sync"
	PacingThroughput = "throughput"
)

type Settings struct {
	Canvas       CanvasSettings       `json:"canvas"`
	Accumulation AccumulationSettings `json:"accumulation"`
	Reload       ReloadSettings       `json:"reload"`
	Capture      CaptureSettings      `json:"capture"`
	Keys         KeySettings          `json:"keys"`
	Monitor      MonitorSettings      `json:"monitor"`
	Log          LogSettings          `json:"log"`
	Interactive  bool                 `json:"interactive"`
	Debug        bool                 `json:"debug"`
}

type CanvasSettings struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	AutoSize   bool `json:"autoSize"`
	Fullscreen bool `json:"fullscreen"`
	VSync      bool `json:"vsync"`
}

type AccumulationSettings struct {
	PhaseOneSamples int      `json:"phaseOneSamples"`
	Exit            string   `json:"exit"`
	Samples         int      `json:"samples"`
	MinSamples      int      `json:"minSamples"`
	MaxSamples      int      `json:"maxSamples"`
	TimeBudget      Duration `json:"timeBudget"`
	// Pacing is sync or throughput. Empty picks sync for time-budgeted
	// exits and throughput otherwise.
	Pacing      string `json:"pacing"`
	Progressive bool   `json:"progressive"`
	// AllowAbort defaults to true except for non-interactive capture runs.
	AllowAbort        *bool `json:"allowAbort,omitempty"`
	StartAccumulating bool  `json:"startAccumulating"`
}

type ReloadSettings struct {
	Enabled     bool     `json:"enabled"`
	Interval    int      `json:"interval"`
	Watch       bool     `json:"watch"`
	DrawPath    string   `json:"drawPath"`
	PresentPath string   `json:"presentPath"`
	Retries     int      `json:"retries"`
	RetryDelay  Duration `json:"retryDelay"`
}

type CaptureSettings struct {
	Enabled   bool    `json:"enabled"`
	OutputDir string  `json:"outputDir"`
	WebP      bool    `json:"webp"`
	WebPScale float64 `json:"webpScale"`
	Seed      int64   `json:"seed"`
}

// KeySettings names the key bound to each control.
type KeySettings struct {
	Abort            string `json:"abort"`
	Clear            string `json:"clear"`
	Restart          string `json:"restart"`
	ToggleAccumulate string `json:"toggleAccumulate"`
	SuppressPresent  string `json:"suppressPresent"`
	Capture          string `json:"capture"`
}

type MonitorSettings struct {
	Addr string `json:"addr"`
}

type LogSettings struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// Duration reads a time.Duration from a string such as "1m30s".
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Canvas: CanvasSettings{
			Width:  1280,
			Height: 720,
			VSync:  true,
		},
		Accumulation: AccumulationSettings{
			PhaseOneSamples: accumulation.DefaultPhaseOneSamples,
			Exit:            ExitUnbounded,
			Samples:         256,
			Progressive:     true,
		},
		Reload: ReloadSettings{
			Enabled:     true,
			Interval:    5,
			Watch:       false,
			DrawPath:    "draw.frag",
			PresentPath: "present.frag",
			Retries:     10,
			RetryDelay:  Duration(time.Millisecond),
		},
		Capture: CaptureSettings{
			OutputDir: ".",
			WebPScale: 1,
			Seed:      1,
		},
		Keys: KeySettings{
			Abort:            "escape",
			Clear:            "right_control",
			Restart:          "right_control",
			ToggleAccumulate: "enter",
			SuppressPresent:  "space",
			Capture:          "right_shift",
		},
		Log: LogSettings{
			Level: "info",
		},
		Interactive: true,
	}
}

// Load reads settings from path layered over the defaults. A missing file
// yields the defaults.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Flags are command line overrides. Zero values leave the file setting
// alone; the pointer fields distinguish an explicit false.
type Flags struct {
	Width, Height int
	Exit          string
	Samples       int
	MinSamples    int
	MaxSamples    int
	TimeBudget    time.Duration
	Pacing        string
	Interactive   *bool
	Capture       *bool
	Progressive   *bool
	Reload        *bool
	Accumulate    bool
	Fullscreen    bool
	Debug         bool
	OutputDir     string
	MonitorAddr   string
	LogLevel      string
}

// Resolve applies f over s.
func (s Settings) Resolve(f Flags) Settings {
	if f.Width > 0 {
		s.Canvas.Width = f.Width
		s.Canvas.AutoSize = false
	}
	if f.Height > 0 {
		s.Canvas.Height = f.Height
		s.Canvas.AutoSize = false
	}
	if f.Exit != "" {
		s.Accumulation.Exit = f.Exit
	}
	if f.Samples > 0 {
		s.Accumulation.Samples = f.Samples
	}
	if f.MinSamples > 0 {
		s.Accumulation.MinSamples = f.MinSamples
	}
	if f.MaxSamples > 0 {
		s.Accumulation.MaxSamples = f.MaxSamples
	}
	if f.TimeBudget > 0 {
		s.Accumulation.TimeBudget = Duration(f.TimeBudget)
	}
	if f.Pacing != "" {
		s.Accumulation.Pacing = f.Pacing
	}
	if f.Interactive != nil {
		s.Interactive = *f.Interactive
	}
	if f.Capture != nil {
		s.Capture.Enabled = *f.Capture
	}
	if f.Progressive != nil {
		s.Accumulation.Progressive = *f.Progressive
	}
	if f.Reload != nil {
		s.Reload.Enabled = *f.Reload
	}
	if f.Accumulate {
		s.Accumulation.StartAccumulating = true
	}
	if f.Fullscreen {
		s.Canvas.Fullscreen = true
	}
	if f.Debug {
		s.Debug = true
	}
	if f.OutputDir != "" {
		s.Capture.OutputDir = f.OutputDir
	}
	if f.MonitorAddr != "" {
		s.Monitor.Addr = f.MonitorAddr
	}
	if f.LogLevel != "" {
		s.Log.Level = f.LogLevel
	}
	return s
}

// Validate reports the first inconsistent setting.
func (s Settings) Validate() error {
	a := s.Accumulation
	switch {
	case !s.Canvas.AutoSize && (s.Canvas.Width <= 0 || s.Canvas.Height <= 0):
		return fmt.Errorf("%w: canvas %dx%d", ErrInvalid, s.Canvas.Width, s.Canvas.Height)
	case a.PhaseOneSamples < 0:
		return fmt.Errorf("%w: phaseOneSamples %d", ErrInvalid, a.PhaseOneSamples)
	case a.Pacing != "" && a.Pacing != PacingSync && a.Pacing != PacingThroughput:
		return fmt.Errorf("%w: pacing %q", ErrInvalid, a.Pacing)
	case a.TimeBudget < 0:
		return fmt.Errorf("%w: negative time budget", ErrInvalid)
	case s.Reload.Interval < 0:
		return fmt.Errorf("%w: reload interval %d", ErrInvalid, s.Reload.Interval)
	case s.Reload.Retries < 1:
		return fmt.Errorf("%w: reload retries %d", ErrInvalid, s.Reload.Retries)
	case s.Capture.WebPScale <= 0 || s.Capture.WebPScale > 1:
		return fmt.Errorf("%w: webp scale %g", ErrInvalid, s.Capture.WebPScale)
	}

	switch a.Exit {
	case ExitExact:
		if a.Samples < 0 {
			return fmt.Errorf("%w: samples %d", ErrInvalid, a.Samples)
		}
	case ExitMinTime:
		if a.MinSamples < 0 {
			return fmt.Errorf("%w: minSamples %d", ErrInvalid, a.MinSamples)
		}
	case ExitBounded:
		if a.MinSamples < 0 || a.MinSamples > a.MaxSamples {
			return fmt.Errorf("%w: minSamples %d exceeds maxSamples %d", ErrInvalid, a.MinSamples, a.MaxSamples)
		}
	case ExitUnbounded:
		if !s.Interactive {
			return fmt.Errorf("%w: unbounded exit needs an interactive session", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: exit policy %q", ErrInvalid, a.Exit)
	}

	for name, key := range s.Keys.byControl() {
		if key == "" {
			return fmt.Errorf("%w: no key bound to %s", ErrInvalid, name)
		}
	}
	return nil
}

func (k KeySettings) byControl() map[string]string {
	return map[string]string{
		"abort":            k.Abort,
		"clear":            k.Clear,
		"restart":          k.Restart,
		"toggleAccumulate": k.ToggleAccumulate,
		"suppressPresent":  k.SuppressPresent,
		"capture":          k.Capture,
	}
}

// ExitPolicy builds the configured exit policy.
func (s Settings) ExitPolicy() accumulation.ExitPolicy {
	a := s.Accumulation
	switch a.Exit {
	case ExitExact:
		return accumulation.ExactSamples{N: a.Samples}
	case ExitMinTime:
		return accumulation.MinSamplesOrTime{Min: a.MinSamples, Budget: time.Duration(a.TimeBudget)}
	case ExitBounded:
		return accumulation.BoundedTime{Min: a.MinSamples, Max: a.MaxSamples, Budget: time.Duration(a.TimeBudget)}
	}
	return accumulation.Unbounded{}
}

// Cadence picks the present cadence. Progressive batch runs present on powers
// of two; progressive interactive runs let the operator suppress presents.
func (s Settings) Cadence() present.Cadence {
	switch {
	case !s.Accumulation.Progressive:
		return present.Every
	case s.Interactive:
		return present.Skippable
	}
	return present.PowerOfTwo
}

// SyncEachSample resolves the pacing mode.
func (s Settings) SyncEachSample() bool {
	switch s.Accumulation.Pacing {
	case PacingSync:
		return true
	case PacingThroughput:
		return false
	}
	e := s.Accumulation.Exit
	return e == ExitMinTime || e == ExitBounded
}

// AllowAbort resolves whether abort ends the accumulation loop.
func (s Settings) AllowAbort() bool {
	if s.Accumulation.AllowAbort != nil {
		return *s.Accumulation.AllowAbort
	}
	return s.Interactive || !s.Capture.Enabled
}

// Options resolves the settings into renderer options for a canvas of the
// given size.
func (s Settings) Options(width, height int) accumulation.Options {
	return accumulation.Options{
		Width:             width,
		Height:            height,
		PhaseOneSamples:   s.Accumulation.PhaseOneSamples,
		Exit:              s.ExitPolicy(),
		Cadence:           s.Cadence(),
		SyncEachSample:    s.SyncEachSample(),
		Interactive:       s.Interactive,
		StartAccumulating: s.Accumulation.StartAccumulating,
		Capture:           s.Capture.Enabled,
		AllowAbort:        s.AllowAbort(),
		Debug:             s.Debug,
	}
}

// LogLevel returns the effective log level name.
func (s Settings) LogLevel() string {
	if s.Debug {
		return "debug"
	}
	return strings.ToLower(s.Log.Level)
}
