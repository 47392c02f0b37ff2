package opengl

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blossom/accumulation"
	"blossom/config"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name string
		want glfw.Key
	}{
		{"escape", glfw.KeyEscape},
		{"Right_Control", glfw.KeyRightControl},
		{" enter ", glfw.KeyEnter},
		{"q", glfw.KeyQ},
		{"7", glfw.Key7},
		{"f12", glfw.KeyF12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKey(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
		})
	}

	_, err := ParseKey("hyper")
	assert.ErrorContains(t, err, `unknown key "hyper"`)
}

func TestParseBindingsDefaults(t *testing.T) {
	b, err := ParseBindings(config.Default().Keys)
	require.NoError(t, err)
	assert.Equal(t, Bindings{
		Abort:            glfw.KeyEscape,
		Clear:            glfw.KeyRightControl,
		Restart:          glfw.KeyRightControl,
		ToggleAccumulate: glfw.KeyEnter,
		SuppressPresent:  glfw.KeySpace,
		Capture:          glfw.KeyRightShift,
	}, b)

	keys := config.Default().Keys
	keys.Capture = "nope"
	_, err = ParseBindings(keys)
	assert.ErrorContains(t, err, "keys.capture")
}

func TestSignalsFrom(t *testing.T) {
	b, err := ParseBindings(config.Default().Keys)
	require.NoError(t, err)
	held := func(keys ...glfw.Key) func(glfw.Key) bool {
		return func(k glfw.Key) bool {
			for _, h := range keys {
				if h == k {
					return true
				}
			}
			return false
		}
	}

	all := held(glfw.KeyEscape, glfw.KeyEnter, glfw.KeySpace, glfw.KeyRightControl, glfw.KeyRightShift)
	assert.Equal(t, accumulation.Signals{
		Abort: true, Clear: true, Restart: true, ToggleAccumulate: true, SuppressPresent: true, Capture: true,
	}, signalsFrom(all, true, false, b))

	unfocused := signalsFrom(all, false, false, b)
	assert.False(t, unfocused.Abort)
	assert.False(t, unfocused.ToggleAccumulate)
	assert.False(t, unfocused.SuppressPresent)
	assert.True(t, unfocused.Clear)
	assert.True(t, unfocused.Capture)

	closing := signalsFrom(held(), false, true, b)
	assert.Equal(t, accumulation.Signals{Abort: true}, closing)
}
