package gpu

// ColorBuffer is an off-screen RGBA32F render target. Its size is fixed for
// its lifetime.
type ColorBuffer interface {
	Width() int
	Height() int
}

// ProgramHandle is a compiled and linked GPU program owned by the backend.
type ProgramHandle interface {
	// ID identifies the program for diagnostics.
	ID() uint32
}

// Device is the drawing capability the renderer calls through. Every method
// is issued from the thread that owns the GPU context.
type Device interface {
	NewColorBuffer(width, height int) (ColorBuffer, error)
	DeleteColorBuffer(buf ColorBuffer)

	// CompileProgram builds a full-screen program from fragment source.
	// Failures are returned as *CompileError.
	CompileProgram(fragmentSource string) (ProgramHandle, error)
	DeleteProgram(p ProgramHandle)

	UseProgram(p ProgramHandle)
	// BindTarget selects the render destination. A nil buffer selects the
	// display surface.
	BindTarget(buf ColorBuffer)
	// BindSource binds buf as the program's sampling input on unit 0.
	BindSource(buf ColorBuffer)
	SetUniforms(u Uniforms)
	DrawQuad()

	// Clear zeroes every channel of buf.
	Clear(buf ColorBuffer)
	// Finish blocks until all submitted GPU work has completed.
	Finish()
	// ReadPixels copies buf into dst as bottom-up rows of 4 floats per pixel.
	// dst must hold Width*Height*4 values.
	ReadPixels(buf ColorBuffer, dst []float32) error
}

// Surface is the double-buffered display the present pipeline writes to.
type Surface interface {
	SwapBuffers()
}
