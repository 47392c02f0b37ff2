package opengl

import (
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"go.uber.org/zap"
)

// pixelPathWarning is raised by some drivers on every synchronous readback.
const pixelPathWarning = "Pixel-path performance warning: Pixel transfer is synchronized with 3D rendering."

func enableDebugOutput(log *zap.Logger) {
	gl.Enable(gl.DEBUG_OUTPUT)
	gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
	gl.DebugMessageCallback(func(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
		if skipDebugMessage(message) {
			return
		}
		fields := []zap.Field{
			zap.Uint32("type", gltype),
			zap.Uint32("severity", severity),
			zap.Uint32("id", id),
			zap.String("message", message),
		}
		if gltype == gl.DEBUG_TYPE_ERROR {
			log.Error("gl error", fields...)
			return
		}
		log.Debug("gl message", fields...)
	}, nil)
}

func skipDebugMessage(message string) bool {
	return message == pixelPathWarning
}
