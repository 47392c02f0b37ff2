package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"blossom/accumulation"
	"blossom/capture"
	"blossom/config"
	"blossom/gpu"
	"blossom/hotreload"
	"blossom/monitor"
	"blossom/present"
	"blossom/rendering/opengl"
	"blossom/rendering/opengl/shaders"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run())
}

func run() int {
	settings, err := loadSettings()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	logger, err := newLogger(settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := render(ctx, settings, logger); err != nil {
		logger.Error("session failed", zap.Error(err))
		return 1
	}
	return 0
}

func loadSettings() (config.Settings, error) {
	var (
		path        = flag.String("config", "settings.json", "Settings file")
		width       = flag.Int("width", 0, "Canvas width")
		height      = flag.Int("height", 0, "Canvas height")
		exit        = flag.String("exit", "", "Exit policy (exact, min_time, bounded, unbounded)")
		samples     = flag.Int("samples", 0, "Sample count for the exact policy")
		minSamples  = flag.Int("min-samples", 0, "Minimum samples for time-budgeted policies")
		maxSamples  = flag.Int("max-samples", 0, "Maximum samples for the bounded policy")
		budget      = flag.Duration("time", 0, "Time budget for time-budgeted policies")
		pacing      = flag.String("pacing", "", "Pacing (sync, throughput)")
		interactive = flag.Bool("interactive", true, "Enable live reload and interactive controls")
		doCapture   = flag.Bool("capture", false, "Enable first-frame capture")
		progressive = flag.Bool("progressive", true, "Present progressively instead of every sample")
		reload      = flag.Bool("reload", true, "Build programs from the reload paths instead of the built-in sources")
		accumulate  = flag.Bool("accumulate", false, "Start an interactive session accumulating")
		fullscreen  = flag.Bool("fullscreen", false, "Open a fullscreen window")
		debug       = flag.Bool("debug", false, "Enable GL debug output and diagnostics")
		outDir      = flag.String("out", "", "Capture output directory")
		monitorAddr = flag.String("monitor", "", "Serve progress and metrics on this address")
		logLevel    = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	settings, err := config.Load(*path)
	if err != nil {
		return settings, err
	}

	// Boolean switches with a default only override the file when given.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	explicit := func(name string, v *bool) *bool {
		if set[name] {
			return v
		}
		return nil
	}

	settings = settings.Resolve(config.Flags{
		Width:       *width,
		Height:      *height,
		Exit:        *exit,
		Samples:     *samples,
		MinSamples:  *minSamples,
		MaxSamples:  *maxSamples,
		TimeBudget:  *budget,
		Pacing:      *pacing,
		Interactive: explicit("interactive", interactive),
		Capture:     explicit("capture", doCapture),
		Progressive: explicit("progressive", progressive),
		Reload:      explicit("reload", reload),
		Accumulate:  *accumulate,
		Fullscreen:  *fullscreen,
		Debug:       *debug,
		OutputDir:   *outDir,
		MonitorAddr: *monitorAddr,
		LogLevel:    *logLevel,
	})
	return settings, settings.Validate()
}

func newLogger(s config.Settings) (*zap.Logger, error) {
	logConfig := zap.NewProductionConfig()
	if s.Log.Development {
		logConfig = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(s.LogLevel())
	if err != nil {
		return nil, err
	}
	logConfig.Level = zap.NewAtomicLevelAt(level)
	return logConfig.Build()
}

func render(ctx context.Context, s config.Settings, logger *zap.Logger) error {
	window, err := opengl.NewWindow(opengl.WindowOptions{
		Width:      s.Canvas.Width,
		Height:     s.Canvas.Height,
		AutoSize:   s.Canvas.AutoSize,
		Fullscreen: s.Canvas.Fullscreen,
		VSync:      s.Canvas.VSync,
		Debug:      s.Debug,
	}, logger)
	if err != nil {
		return err
	}
	defer window.Close()
	width, height := window.Size()

	bindings, err := opengl.ParseBindings(s.Keys)
	if err != nil {
		return err
	}

	dev := opengl.NewDevice()
	defer dev.Release()

	pair, err := gpu.NewPingPong(dev, width, height)
	if err != nil {
		return err
	}
	defer pair.Release()

	programs, err := buildPrograms(dev, s, logger)
	if err != nil {
		return err
	}
	defer programs.Release()

	if s.Reload.Enabled && s.Reload.Watch && s.Interactive {
		watcher, err := hotreload.NewWatcher(programs.Paths(), logger)
		if err != nil {
			// Without notifications every poll rebuilds.
			logger.Warn("file watcher unavailable", zap.Error(err))
		} else {
			defer watcher.Close()
			programs.SetWatcher(watcher)
		}
	}

	pipeline := present.NewPipeline(dev, window, programs, width, height)
	renderer := accumulation.New(s.Options(width, height), dev, pair, programs, pipeline,
		opengl.NewInput(window, bindings), logger)

	if s.Capture.Enabled {
		capturer, err := capture.New(dev, programs, capture.DirSink{Dir: s.Capture.OutputDir}, width, height,
			capture.Options{WebP: s.Capture.WebP, WebPScale: s.Capture.WebPScale, Seed: s.Capture.Seed}, logger)
		if err != nil {
			return err
		}
		defer capturer.Release()
		renderer.SetCapturer(capturer)
	}

	if s.Monitor.Addr != "" {
		mon := monitor.New(logger)
		if err := mon.Start(ctx, s.Monitor.Addr); err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			mon.Shutdown(shutdownCtx) //nolint:errcheck
		}()
		renderer.SetObserver(mon)
	}

	err = renderer.Run(ctx)
	stats := renderer.Stats()
	logger.Info("session finished",
		zap.Int("runs", stats.Runs),
		zap.Int("accumulate_draws", stats.AccumulateDraws),
		zap.Int("presents", stats.Presents),
		zap.Int("upscales", stats.Upscales),
		zap.Int("captures", stats.Captures),
		zap.Int("reload_attempts", stats.ReloadAttempts),
		zap.Int("reload_failures", stats.ReloadFailures))
	return err
}

// buildPrograms installs the initial programs. Interactive sessions fall back
// to the built-in programs when a file does not build.
func buildPrograms(dev gpu.Device, s config.Settings, logger *zap.Logger) (*hotreload.Library, error) {
	var paths hotreload.Paths
	if s.Reload.Enabled {
		paths = hotreload.Paths{
			hotreload.RoleAccumulate: s.Reload.DrawPath,
			hotreload.RolePresent:    s.Reload.PresentPath,
		}
	}
	source := hotreload.NewFileSource(s.Reload.Retries, time.Duration(s.Reload.RetryDelay))
	programs := hotreload.NewLibrary(dev, source, paths, logger)
	if s.Reload.Enabled {
		programs.SetInterval(s.Reload.Interval)
	} else {
		programs.SetInterval(0)
	}
	if s.Interactive {
		programs.SetReporter(hotreload.NewConsoleReporter(color.Error))
	}

	defaults := hotreload.Sources{
		hotreload.RoleAccumulate: shaders.DefaultDraw,
		hotreload.RolePresent:    shaders.DefaultPresent,
	}
	if err := programs.Bootstrap(defaults, s.Interactive); err != nil {
		programs.Release()
		return nil, fmt.Errorf("initial program build: %w", err)
	}
	return programs, nil
}
