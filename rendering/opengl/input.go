package opengl

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"

	"blossom/accumulation"
	"blossom/config"
)

// Bindings assigns a key to every control.
type Bindings struct {
	Abort            glfw.Key
	Clear            glfw.Key
	Restart          glfw.Key
	ToggleAccumulate glfw.Key
	SuppressPresent  glfw.Key
	Capture          glfw.Key
}

// ParseBindings resolves configured key names.
func ParseBindings(keys config.KeySettings) (Bindings, error) {
	var b Bindings
	for _, e := range []struct {
		name string
		dst  *glfw.Key
		key  string
	}{
		{"abort", &b.Abort, keys.Abort},
		{"clear", &b.Clear, keys.Clear},
		{"restart", &b.Restart, keys.Restart},
		{"toggleAccumulate", &b.ToggleAccumulate, keys.ToggleAccumulate},
		{"suppressPresent", &b.SuppressPresent, keys.SuppressPresent},
		{"capture", &b.Capture, keys.Capture},
	} {
		k, err := ParseKey(e.key)
		if err != nil {
			return b, fmt.Errorf("keys.%s: %w", e.name, err)
		}
		*e.dst = k
	}
	return b, nil
}

// Input pumps window events and samples the bound keys. It implements
// accumulation.Input.
type Input struct {
	window   *Window
	bindings Bindings
}

// NewInput polls keys of w.
func NewInput(w *Window, b Bindings) *Input {
	return &Input{window: w, bindings: b}
}

func (in *Input) Poll() accumulation.Signals {
	glfw.PollEvents()
	win := in.window.window
	pressed := func(k glfw.Key) bool { return win.GetKey(k) == glfw.Press }
	return signalsFrom(pressed, in.window.Focused(), win.ShouldClose(), in.bindings)
}

// signalsFrom maps key levels to signals. Abort, toggle and suppress only
// count while the window has focus; a close request always aborts.
func signalsFrom(pressed func(glfw.Key) bool, focused, closing bool, b Bindings) accumulation.Signals {
	return accumulation.Signals{
		Abort:            closing || (focused && pressed(b.Abort)),
		Clear:            pressed(b.Clear),
		Restart:          pressed(b.Restart),
		ToggleAccumulate: focused && pressed(b.ToggleAccumulate),
		SuppressPresent:  focused && pressed(b.SuppressPresent),
		Capture:          pressed(b.Capture),
	}
}
