// Package opengl is the GLFW and OpenGL 4.3 core backend: the window and
// display surface, the gpu.Device implementation and keyboard input.
package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"
)

// WindowOptions configure the window and its context.
type WindowOptions struct {
	Width, Height int
	// AutoSize takes the canvas size from the primary monitor.
	AutoSize   bool
	Fullscreen bool
	VSync      bool
	Debug      bool
	Title      string
}

// Window owns the GLFW window and its GL context. It implements gpu.Surface.
// All methods must be called from the thread that created it.
type Window struct {
	window        *glfw.Window
	width, height int
	log           *zap.Logger
}

// NewWindow initialises GLFW, opens an undecorated window of the canvas size
// and makes its GL 4.3 core context current. The caller must have locked the
// OS thread.
func NewWindow(opts WindowOptions, logger *zap.Logger) (*Window, error) {
	log := logger.Named("opengl")

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	width, height := opts.Width, opts.Height
	monitor := glfw.GetPrimaryMonitor()
	if opts.AutoSize && monitor != nil {
		mode := monitor.GetVideoMode()
		width, height = mode.Width, mode.Height
	}
	if width <= 0 || height <= 0 {
		glfw.Terminate()
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if opts.Debug {
		glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	}

	title := opts.Title
	if title == "" {
		title = "blossom"
	}
	var fullscreen *glfw.Monitor
	if opts.Fullscreen {
		fullscreen = monitor
	}
	window, err := glfw.CreateWindow(width, height, title, fullscreen, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create window: %w", err)
	}
	window.MakeContextCurrent()

	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log.Info("context ready",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("vsync", opts.VSync))

	if opts.Debug {
		enableDebugOutput(log)
	}

	gl.Viewport(0, 0, int32(width), int32(height))
	return &Window{window: window, width: width, height: height, log: log}, nil
}

// Size returns the canvas size.
func (w *Window) Size() (int, int) { return w.width, w.height }

// SwapBuffers shows the back buffer.
func (w *Window) SwapBuffers() { w.window.SwapBuffers() }

// ShouldClose reports whether the window was asked to close.
func (w *Window) ShouldClose() bool { return w.window.ShouldClose() }

// Focused reports whether the window has input focus.
func (w *Window) Focused() bool { return w.window.GetAttrib(glfw.Focused) == glfw.True }

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	w.window.Destroy()
	glfw.Terminate()
}
