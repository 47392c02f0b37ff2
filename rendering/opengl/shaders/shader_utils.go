package shaders

import (
	"github.com/go-gl/gl/v4.3-core/gl"

	"blossom/gpu"
)

// fullscreenVertexShader emits a triangle strip covering the viewport from
// gl_VertexID alone, so no vertex buffer is bound.
const fullscreenVertexShader = `
#version 430 core

const vec2 positions[4] = vec2[](
    vec2(-1.0, -1.0),
    vec2( 1.0, -1.0),
    vec2(-1.0,  1.0),
    vec2( 1.0,  1.0)
);

void main() {
    gl_Position = vec4(positions[gl_VertexID], 0.0, 1.0);
}
`

// FullscreenVertexCount is the number of strip vertices to draw.
const FullscreenVertexCount = 4

// BuildProgram compiles fragmentSource against the fullscreen vertex shader
// and links them. Failures are *gpu.CompileError carrying the driver log.
func BuildProgram(fragmentSource string) (uint32, error) {
	vert, err := compileShader(fullscreenVertexShader, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vert)

	frag, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(frag)

	return linkProgram(vert, frag)
}

// compileShader compiles a single shader
func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)

	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := infoLog(logLength, func(buf *uint8) { gl.GetShaderInfoLog(shader, logLength, nil, buf) })
		gl.DeleteShader(shader)
		return 0, &gpu.CompileError{Stage: gpu.StageCompile, Log: log}
	}

	return shader, nil
}

// linkProgram links vertex and fragment shaders into a program
func linkProgram(vertShader, fragShader uint32) (uint32, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, vertShader)
	gl.AttachShader(program, fragShader)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := infoLog(logLength, func(buf *uint8) { gl.GetProgramInfoLog(program, logLength, nil, buf) })
		gl.DeleteProgram(program)
		return 0, &gpu.CompileError{Stage: gpu.StageLink, Log: log}
	}

	gl.DetachShader(program, vertShader)
	gl.DetachShader(program, fragShader)
	return program, nil
}

func infoLog(length int32, fetch func(*uint8)) string {
	if length <= 1 {
		return "no info log"
	}
	buf := make([]uint8, length)
	fetch(&buf[0])
	return gl.GoStr(&buf[0])
}
