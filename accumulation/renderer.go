// Package accumulation drives the progressive sampling loop: one accumulate
// draw per sample into the ping-pong pair, a one-shot upscale when the phase
// threshold is reached, presentation, and the idle loop that follows.
package accumulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"blossom/capture"
	"blossom/gpu"
	"blossom/hotreload"
	"blossom/present"
)

// State is the position of the session in the accumulation state machine.
type State int

const (
	StatePhase1 State = iota
	StateUpscale
	StatePhase2
	StateIdle
	StateExit
)

func (s State) String() string {
	switch s {
	case StatePhase1:
		return "accumulate_phase1"
	case StateUpscale:
		return "upscale_transition"
	case StatePhase2:
		return "accumulate_phase2"
	case StateIdle:
		return "idle"
	case StateExit:
		return "exit"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DefaultPhaseOneSamples is the sample count at which the upscale happens.
const DefaultPhaseOneSamples = 32

// Options are the session behaviours resolved once at startup.
type Options struct {
	Width, Height   int
	PhaseOneSamples int
	Exit            ExitPolicy
	Cadence         present.Cadence

	// SyncEachSample waits for every accumulate draw to finish so no more
	// GPU work is queued than the frame budget allows.
	SyncEachSample bool
	// Interactive enables hot reload polling, clear, restart and the
	// accumulate/preview toggle.
	Interactive bool
	// StartAccumulating starts an interactive session accumulating instead
	// of previewing.
	StartAccumulating bool
	// Capture enables the first-frame capture trigger.
	Capture bool
	// AllowAbort lets the abort control end the accumulation loop. The idle
	// loop always honours it.
	AllowAbort bool
	Debug      bool
}

// Stats counts the work done over the life of the renderer.
type Stats struct {
	Runs            int
	AccumulateDraws int
	Presents        int
	Upscales        int
	UpscaleSamples  []int
	Captures        int
	Clears          int
	ReloadAttempts  int
	ReloadFailures  int
}

// Renderer is the accumulation state machine. It is not safe for concurrent
// use; everything runs on the thread owning the GPU context.
type Renderer struct {
	opts     Options
	dev      gpu.Device
	pair     *gpu.PingPong
	programs *hotreload.Library
	pipeline *present.Pipeline
	capturer *capture.Capturer
	input    Input
	clock    Clock
	observer Observer
	log      *zap.Logger

	resolution gpu.Uniforms
	state      State
	samples    int
	start      time.Time

	accumulating bool
	toggleHeld   bool
	clearHeld    bool
	captured     bool

	stats         Stats
	lastReport    time.Time
	reportSamples int
}

// New wires a renderer. programs must hold both roles before Run.
func New(opts Options, dev gpu.Device, pair *gpu.PingPong, programs *hotreload.Library,
	pipeline *present.Pipeline, input Input, logger *zap.Logger,
) *Renderer {
	if opts.Exit == nil {
		opts.Exit = Unbounded{}
	}
	return &Renderer{
		opts:       opts,
		dev:        dev,
		pair:       pair,
		programs:   programs,
		pipeline:   pipeline,
		input:      input,
		clock:      SystemClock{},
		observer:   nopObserver{},
		log:        logger.Named("accumulation"),
		resolution: gpu.Uniforms{Resolution: gpu.CanvasResolution(opts.Width, opts.Height)},
	}
}

// SetCapturer enables the capture path.
func (r *Renderer) SetCapturer(c *capture.Capturer) { r.capturer = c }

// SetClock replaces the wall clock.
func (r *Renderer) SetClock(c Clock) { r.clock = c }

// SetObserver receives session events.
func (r *Renderer) SetObserver(o Observer) { r.observer = o }

// State returns the current state.
func (r *Renderer) State() State { return r.state }

// Samples returns the sample counter.
func (r *Renderer) Samples() int { return r.samples }

// Stats returns a copy of the work counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.UpscaleSamples = append([]int(nil), r.stats.UpscaleSamples...)
	return s
}

// Run accumulates until the exit policy or an abort ends the loop, then
// redisplays the result until abort. A restart re-enters accumulation from a
// clean state. Run returns nil on an orderly exit.
func (r *Renderer) Run(ctx context.Context) error {
	if err := r.programs.Ready(); err != nil {
		return fmt.Errorf("accumulation: %w", err)
	}
	// Drain queued GPU work before returning to teardown.
	defer r.dev.Finish()

	r.accumulating = !r.opts.Interactive || r.opts.StartAccumulating
	for {
		r.beginRun()
		r.log.Info("accumulation started",
			zap.Int("run", r.stats.Runs),
			zap.Stringer("exit", r.opts.Exit),
			zap.Stringer("cadence", r.opts.Cadence),
			zap.Int("phase1_samples", r.opts.PhaseOneSamples))

		if aborted := r.accumulate(ctx); aborted {
			r.terminate("aborted during accumulation")
			return nil
		}
		r.log.Info("accumulation finished",
			zap.Int("samples", r.samples),
			zap.Duration("elapsed", r.clock.Now().Sub(r.start)))

		r.setState(StateIdle)
		if restart := r.idle(ctx); !restart {
			r.terminate("aborted while idle")
			return nil
		}
		r.log.Info("restarting session")
	}
}

func (r *Renderer) beginRun() {
	r.stats.Runs++
	r.pair.Clear()
	r.samples = 0
	r.captured = false
	r.start = r.clock.Now()
	r.lastReport = r.start
	r.reportSamples = 0
	r.programs.ResetSession()
	r.setState(StatePhase1)
}

// accumulate runs the sampling loop and reports whether it was aborted.
func (r *Renderer) accumulate(ctx context.Context) bool {
	for !r.opts.Exit.Done(r.samples, r.clock.Now().Sub(r.start)) {
		if ctx.Err() != nil {
			return true
		}
		sig := r.input.Poll()
		if sig.Abort && r.opts.AllowAbort {
			return true
		}

		if r.opts.Interactive {
			r.pollReload()
			r.handleClear(sig.Clear)
		}

		if r.samples == r.opts.PhaseOneSamples {
			r.upscale()
		}

		if r.samples == 0 && sig.Capture {
			r.capture()
		}

		frame := int32(r.samples)
		if !r.accumulating {
			frame = gpu.FramePreview
		}
		r.accumulateStep(frame)

		if r.opts.Interactive {
			r.handleToggle(sig.ToggleAccumulate)
		}

		if r.opts.Cadence.Due(r.samples, sig.SuppressPresent) {
			r.pipeline.Present(r.pair.WriteTarget(), gpu.ModePresent, r.samples)
			r.stats.Presents++
			r.observer.Presented(r.samples)
		}

		r.pair.Flip()
		r.samples++
		r.sampleCompleted()
	}
	return false
}

// accumulateStep draws one sample into the write target, reading the last
// completed buffer.
func (r *Renderer) accumulateStep(frame int32) {
	r.dev.UseProgram(r.programs.Program(hotreload.RoleAccumulate).Handle)
	r.dev.BindTarget(r.pair.WriteTarget())
	u := r.resolution
	u.Frame = frame
	if frame >= int32(r.opts.PhaseOneSamples) {
		u.Phase = 1
	}
	r.dev.SetUniforms(u)
	r.dev.BindSource(r.pair.ReadSource())
	r.dev.DrawQuad()
	if r.opts.SyncEachSample {
		r.dev.Finish()
	}
	r.stats.AccumulateDraws++
}

// upscale resamples the last completed buffer into the write target at the
// phase two resolution, then flips so the resampled buffer is read next.
func (r *Renderer) upscale() {
	r.setState(StateUpscale)
	if r.opts.Debug {
		r.log.Debug("upscaling", zap.Int("samples", r.samples))
	}
	r.pipeline.Scale(r.pair.WriteTarget(), r.pair.ReadSource(), r.samples)
	r.pair.Flip()
	r.stats.Upscales++
	r.stats.UpscaleSamples = append(r.stats.UpscaleSamples, r.samples)
	r.observer.Upscaled(r.samples)
	r.setState(StatePhase2)
}

func (r *Renderer) capture() {
	if !r.opts.Capture || r.capturer == nil || r.captured {
		return
	}
	r.captured = true
	r.log.Info("saving first frame")
	if _, err := r.capturer.Capture(r.pair.ReadSource()); err != nil {
		r.log.Error("capture failed", zap.Error(err))
		return
	}
	r.stats.Captures++
}

func (r *Renderer) pollReload() {
	attempted, ok, err := r.programs.Poll(r.samples)
	if !attempted {
		return
	}
	r.stats.ReloadAttempts++
	if !ok {
		r.stats.ReloadFailures++
	}
	r.observer.Reloaded(ok, err)
}

// handleClear zeroes the pair and the counter while the clear control is
// held.
func (r *Renderer) handleClear(held bool) {
	if held {
		if !r.clearHeld {
			r.log.Info("clearing accumulation", zap.Int("samples", r.samples))
		}
		r.pair.Clear()
		r.samples = 0
		r.stats.Clears++
		r.setState(StatePhase1)
	}
	r.clearHeld = held
}

func (r *Renderer) handleToggle(held bool) {
	if held && !r.toggleHeld {
		r.accumulating = !r.accumulating
		r.log.Info("accumulate toggled", zap.Bool("accumulating", r.accumulating))
	}
	r.toggleHeld = held
}

// idle redisplays the last completed buffer until abort. It reports whether
// a restart was requested.
func (r *Renderer) idle(ctx context.Context) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		sig := r.input.Poll()
		if sig.Abort {
			return false
		}
		r.pipeline.Present(r.pair.ReadSource(), gpu.ModePresent, r.samples)
		if r.opts.Interactive && sig.Restart {
			return true
		}
	}
}

func (r *Renderer) terminate(reason string) {
	r.setState(StateExit)
	r.log.Info("session terminated", zap.String("reason", reason), zap.Int("samples", r.samples))
}

func (r *Renderer) setState(s State) {
	if r.state != s && r.opts.Debug {
		r.log.Debug("state", zap.Stringer("from", r.state), zap.Stringer("to", s))
	}
	r.state = s
}

func (r *Renderer) sampleCompleted() {
	now := r.clock.Now()
	r.observer.SampleCompleted(Progress{
		Samples:      r.samples,
		State:        r.state,
		Phase:        r.samples >= r.opts.PhaseOneSamples,
		Accumulating: r.accumulating,
		Elapsed:      now.Sub(r.start),
	})

	if !r.opts.Debug {
		return
	}
	if span := now.Sub(r.lastReport); span >= time.Second {
		rate := float64(r.samples-r.reportSamples) / span.Seconds()
		r.log.Debug("throughput", zap.Float64("samples_per_sec", rate), zap.Int("samples", r.samples))
		r.lastReport = now
		r.reportSamples = r.samples
	}
}
