// Package present draws accumulated buffers to the display surface through
// the present program.
package present

import (
	"fmt"

	"blossom/gpu"
	"blossom/hotreload"
)

// Cadence decides which samples are presented while accumulating.
type Cadence int

const (
	// Every presents each sample.
	Every Cadence = iota
	// PowerOfTwo presents samples 0, 1, 2, 4, 8, ... only.
	PowerOfTwo
	// Skippable presents each sample unless the operator suppresses it.
	Skippable
)

func (c Cadence) String() string {
	switch c {
	case Every:
		return "every"
	case PowerOfTwo:
		return "power_of_two"
	case Skippable:
		return "skippable"
	}
	return fmt.Sprintf("cadence(%d)", int(c))
}

// Due reports whether sampleCount is presented. suppressed is the level of
// the operator's suppress-present control.
func (c Cadence) Due(sampleCount int, suppressed bool) bool {
	switch c {
	case PowerOfTwo:
		return sampleCount&(sampleCount-1) == 0
	case Skippable:
		return !suppressed
	}
	return true
}

// Pipeline binds the present program against the display surface or, for
// rescaling, against an off-screen buffer.
type Pipeline struct {
	dev        gpu.Device
	surface    gpu.Surface
	programs   *hotreload.Library
	resolution gpu.Uniforms
}

// NewPipeline returns a pipeline for a canvas of the given size.
func NewPipeline(dev gpu.Device, surface gpu.Surface, programs *hotreload.Library, width, height int) *Pipeline {
	return &Pipeline{
		dev:        dev,
		surface:    surface,
		programs:   programs,
		resolution: gpu.Uniforms{Resolution: gpu.CanvasResolution(width, height)},
	}
}

// Present draws source to the display in the given mode and swaps buffers.
func (p *Pipeline) Present(source gpu.ColorBuffer, mode int32, frame int) {
	p.setup(nil, source, mode, frame)
	p.dev.DrawQuad()
	p.surface.SwapBuffers()
}

// Scale resamples source into dest. Nothing is shown on the display.
func (p *Pipeline) Scale(dest, source gpu.ColorBuffer, frame int) {
	p.setup(dest, source, gpu.ModeScale, frame)
	p.dev.DrawQuad()
}

func (p *Pipeline) setup(dest, source gpu.ColorBuffer, mode int32, frame int) {
	p.dev.UseProgram(p.programs.Program(hotreload.RolePresent).Handle)
	p.dev.BindTarget(dest)
	u := p.resolution
	u.Frame = int32(frame)
	u.Mode = mode
	p.dev.SetUniforms(u)
	p.dev.BindSource(source)
}
