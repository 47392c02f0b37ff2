package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.3-core/gl"

	"blossom/gpu"
	"blossom/rendering/opengl/shaders"
)

// framebuffer is an RGBA32F texture attached to its own framebuffer object.
type framebuffer struct {
	fbo, texture  uint32
	width, height int
}

func (f *framebuffer) Width() int  { return f.width }
func (f *framebuffer) Height() int { return f.height }

// program caches the locations of the shared uniforms. A location of -1
// means the program does not declare it.
type program struct {
	id         uint32
	resolution int32
	frame      int32
	mode       int32
	phase      int32
	channel0   int32
}

func (p *program) ID() uint32 { return p.id }

// Device implements gpu.Device on the current GL context.
type Device struct {
	quadVAO uint32
	current *program
}

// NewDevice prepares the shared draw state. The window's context must be
// current.
func NewDevice() *Device {
	d := &Device{}
	// No VBO needed - vertices come from gl_VertexID.
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.BLEND)
	return d
}

// Release deletes the shared draw state.
func (d *Device) Release() {
	gl.DeleteVertexArrays(1, &d.quadVAO)
}

func (d *Device) NewColorBuffer(width, height int) (gpu.ColorBuffer, error) {
	f := &framebuffer{width: width, height: height}
	gl.GenFramebuffers(1, &f.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)

	gl.GenTextures(1, &f.texture)
	gl.BindTexture(gl.TEXTURE_2D, f.texture)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	// The accumulate program samples between texels and past the edges.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.MIRRORED_REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.MIRRORED_REPEAT)

	gl.FramebufferTexture(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, f.texture, 0)
	drawBuffers := []uint32{gl.COLOR_ATTACHMENT0}
	gl.DrawBuffers(1, &drawBuffers[0])

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		d.DeleteColorBuffer(f)
		return nil, fmt.Errorf("%w: framebuffer status 0x%x", gpu.ErrAllocation, status)
	}
	return f, nil
}

func (d *Device) DeleteColorBuffer(buf gpu.ColorBuffer) {
	f := buf.(*framebuffer)
	gl.DeleteFramebuffers(1, &f.fbo)
	gl.DeleteTextures(1, &f.texture)
	f.fbo, f.texture = 0, 0
}

func (d *Device) CompileProgram(fragmentSource string) (gpu.ProgramHandle, error) {
	id, err := shaders.BuildProgram(fragmentSource)
	if err != nil {
		return nil, err
	}
	return &program{
		id:         id,
		resolution: uniformLocation(id, gpu.UniformResolution),
		frame:      uniformLocation(id, gpu.UniformFrame),
		mode:       uniformLocation(id, gpu.UniformMode),
		phase:      uniformLocation(id, gpu.UniformPhase),
		channel0:   uniformLocation(id, gpu.UniformChannel0),
	}, nil
}

func uniformLocation(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func (d *Device) DeleteProgram(p gpu.ProgramHandle) {
	prog := p.(*program)
	if d.current == prog {
		gl.UseProgram(0)
		d.current = nil
	}
	gl.DeleteProgram(prog.id)
}

func (d *Device) UseProgram(p gpu.ProgramHandle) {
	prog := p.(*program)
	gl.UseProgram(prog.id)
	if prog.channel0 >= 0 {
		gl.Uniform1i(prog.channel0, 0)
	}
	d.current = prog
}

func (d *Device) BindTarget(buf gpu.ColorBuffer) {
	if buf == nil {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return
	}
	f := buf.(*framebuffer)
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.Viewport(0, 0, int32(f.width), int32(f.height))
}

func (d *Device) BindSource(buf gpu.ColorBuffer) {
	gl.ActiveTexture(gl.TEXTURE0)
	if buf == nil {
		gl.BindTexture(gl.TEXTURE_2D, 0)
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, buf.(*framebuffer).texture)
}

func (d *Device) SetUniforms(u gpu.Uniforms) {
	p := d.current
	if p == nil {
		return
	}
	if p.resolution >= 0 {
		gl.Uniform4fv(p.resolution, 1, &u.Resolution[0])
	}
	if p.frame >= 0 {
		gl.Uniform1i(p.frame, u.Frame)
	}
	if p.mode >= 0 {
		gl.Uniform1i(p.mode, u.Mode)
	}
	if p.phase >= 0 {
		gl.Uniform1i(p.phase, u.Phase)
	}
}

func (d *Device) DrawQuad() {
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, shaders.FullscreenVertexCount)
}

func (d *Device) Clear(buf gpu.ColorBuffer) {
	f := buf.(*framebuffer)
	zero := [4]float32{}
	gl.BindFramebuffer(gl.FRAMEBUFFER, f.fbo)
	gl.ClearBufferfv(gl.COLOR, 0, &zero[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
}

func (d *Device) Finish() { gl.Finish() }

func (d *Device) ReadPixels(buf gpu.ColorBuffer, dst []float32) error {
	f := buf.(*framebuffer)
	if need := f.width * f.height * 4; len(dst) < need {
		return fmt.Errorf("readback needs %d floats, got %d", need, len(dst))
	}
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, f.fbo)
	gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(f.width), int32(f.height), gl.RGBA, gl.FLOAT, gl.Ptr(dst))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glReadPixels: error 0x%x", code)
	}
	return nil
}
