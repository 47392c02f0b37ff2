package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Render modes understood by the present program.
const (
	ModePresent int32 = 0
	ModeScale   int32 = 1
)

// Out-of-band frame indices that ask the accumulate program for a single-shot
// image instead of a statistical sample.
const (
	FrameShaded int32 = -2
	FrameRaw    int32 = -1

	// FramePreview renders the live preview variant while accumulation is paused.
	FramePreview = FrameShaded
)

// Uniform names every program may declare. Undeclared uniforms are skipped.
const (
	UniformResolution = "iResolution"
	UniformFrame      = "iFrame"
	UniformMode       = "iMode"
	UniformPhase      = "iPhase"
	UniformChannel0   = "iChannel0"
)

// ErrAllocation is returned when the device cannot allocate a color buffer.
var ErrAllocation = errors.New("gpu: color buffer allocation failed")

// Uniforms is the per-draw uniform block shared by both programs.
type Uniforms struct {
	// Resolution holds width, height, width/height and height/width.
	Resolution mgl32.Vec4
	Frame      int32
	Mode       int32
	Phase      int32
}

// CanvasResolution builds the resolution uniform for a canvas.
func CanvasResolution(width, height int) mgl32.Vec4 {
	w, h := float32(width), float32(height)
	return mgl32.Vec4{w, h, w / h, h / w}
}

// Stage names the step of program construction that failed.
type Stage string

const (
	StageCompile Stage = "compile"
	StageLink    Stage = "link"
)

// CompileError carries the driver info log of a failed program build.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Log)
}
