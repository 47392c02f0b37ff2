// Package gputest provides an in-memory gpu.Device that executes draws on the
// CPU. Programs are matched to kernels by their source text.
package gputest

import (
	"fmt"
	"strings"

	"blossom/gpu"
)

// BadSourceMarker makes CompileProgram fail for any source containing it.
const BadSourceMarker = "#error"

// Kernel computes the output pixel (x, y) of a draw. src is nil when no
// source buffer is bound.
type Kernel func(x, y int, u gpu.Uniforms, src *Buffer) [4]float32

// Buffer is a CPU-backed color buffer with bottom-up rows.
type Buffer struct {
	ID      int
	W, H    int
	Pix     []float32
	Deleted bool
}

func (b *Buffer) Width() int  { return b.W }
func (b *Buffer) Height() int { return b.H }

// At returns the pixel at (x, y), y counted from the bottom row.
func (b *Buffer) At(x, y int) [4]float32 {
	i := (y*b.W + x) * 4
	return [4]float32{b.Pix[i], b.Pix[i+1], b.Pix[i+2], b.Pix[i+3]}
}

// IsZero reports whether every channel of every pixel is zero.
func (b *Buffer) IsZero() bool {
	for _, v := range b.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Program is a fake compiled program.
type Program struct {
	Handle  uint32
	Source  string
	Deleted bool
}

func (p *Program) ID() uint32 { return p.Handle }

// Draw records one DrawQuad call and the state bound at that moment.
type Draw struct {
	Program  *Program
	Target   *Buffer // nil when drawing to the display surface
	Source   *Buffer
	Uniforms gpu.Uniforms
}

// Device implements gpu.Device in memory.
type Device struct {
	// Kernels maps program source to the function evaluated per pixel.
	// Draws with programs that have no kernel leave the target unchanged.
	Kernels map[string]Kernel
	// FailAllocAfter makes NewColorBuffer fail once this many buffers exist.
	// Zero disables the failure.
	FailAllocAfter int

	Buffers  []*Buffer
	Programs []*Program
	Draws    []Draw
	Finishes int
	Clears   int
	// Hazards counts draws whose target was also bound as source.
	Hazards int

	program  *Program
	target   *Buffer
	source   *Buffer
	uniforms gpu.Uniforms
	nextID   uint32
}

// NewDevice returns an empty fake device.
func NewDevice() *Device {
	return &Device{Kernels: make(map[string]Kernel)}
}

func (d *Device) NewColorBuffer(width, height int) (gpu.ColorBuffer, error) {
	if d.FailAllocAfter > 0 && len(d.Buffers) >= d.FailAllocAfter {
		return nil, gpu.ErrAllocation
	}
	b := &Buffer{ID: len(d.Buffers), W: width, H: height, Pix: make([]float32, width*height*4)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) DeleteColorBuffer(buf gpu.ColorBuffer) {
	buf.(*Buffer).Deleted = true
}

func (d *Device) CompileProgram(fragmentSource string) (gpu.ProgramHandle, error) {
	if strings.Contains(fragmentSource, BadSourceMarker) {
		return nil, &gpu.CompileError{Stage: gpu.StageCompile, Log: "0:1: error directive"}
	}
	d.nextID++
	p := &Program{Handle: d.nextID, Source: fragmentSource}
	d.Programs = append(d.Programs, p)
	return p, nil
}

func (d *Device) DeleteProgram(p gpu.ProgramHandle) {
	p.(*Program).Deleted = true
}

func (d *Device) UseProgram(p gpu.ProgramHandle) {
	prog := p.(*Program)
	if prog.Deleted {
		panic(fmt.Sprintf("gputest: use of deleted program %d", prog.Handle))
	}
	d.program = prog
}

func (d *Device) BindTarget(buf gpu.ColorBuffer) {
	if buf == nil {
		d.target = nil
		return
	}
	d.target = buf.(*Buffer)
}

func (d *Device) BindSource(buf gpu.ColorBuffer) {
	if buf == nil {
		d.source = nil
		return
	}
	d.source = buf.(*Buffer)
}

func (d *Device) SetUniforms(u gpu.Uniforms) { d.uniforms = u }

func (d *Device) DrawQuad() {
	if d.program == nil {
		panic("gputest: draw without a program")
	}
	if d.target != nil && d.target == d.source {
		d.Hazards++
	}
	d.Draws = append(d.Draws, Draw{Program: d.program, Target: d.target, Source: d.source, Uniforms: d.uniforms})

	kernel, ok := d.Kernels[d.program.Source]
	if !ok || d.target == nil {
		return
	}
	out := make([]float32, len(d.target.Pix))
	for y := 0; y < d.target.H; y++ {
		for x := 0; x < d.target.W; x++ {
			px := kernel(x, y, d.uniforms, d.source)
			copy(out[(y*d.target.W+x)*4:], px[:])
		}
	}
	d.target.Pix = out
}

func (d *Device) Clear(buf gpu.ColorBuffer) {
	b := buf.(*Buffer)
	for i := range b.Pix {
		b.Pix[i] = 0
	}
	d.Clears++
}

func (d *Device) Finish() { d.Finishes++ }

func (d *Device) ReadPixels(buf gpu.ColorBuffer, dst []float32) error {
	b := buf.(*Buffer)
	if len(dst) < len(b.Pix) {
		return fmt.Errorf("gputest: readback needs %d floats, got %d", len(b.Pix), len(dst))
	}
	copy(dst, b.Pix)
	return nil
}

// DrawsWith returns the draws issued with the program built from source.
func (d *Device) DrawsWith(source string) []Draw {
	var out []Draw
	for _, dr := range d.Draws {
		if dr.Program.Source == source {
			out = append(out, dr)
		}
	}
	return out
}

// Surface counts buffer swaps.
type Surface struct {
	Swaps int
}

func (s *Surface) SwapBuffers() { s.Swaps++ }
