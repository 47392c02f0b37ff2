package opengl

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var keyNames = map[string]glfw.Key{
	"escape":        glfw.KeyEscape,
	"enter":         glfw.KeyEnter,
	"space":         glfw.KeySpace,
	"tab":           glfw.KeyTab,
	"backspace":     glfw.KeyBackspace,
	"left_control":  glfw.KeyLeftControl,
	"right_control": glfw.KeyRightControl,
	"left_shift":    glfw.KeyLeftShift,
	"right_shift":   glfw.KeyRightShift,
	"left_alt":      glfw.KeyLeftAlt,
	"right_alt":     glfw.KeyRightAlt,
	"f1":            glfw.KeyF1,
	"f2":            glfw.KeyF2,
	"f3":            glfw.KeyF3,
	"f4":            glfw.KeyF4,
	"f5":            glfw.KeyF5,
	"f6":            glfw.KeyF6,
	"f7":            glfw.KeyF7,
	"f8":            glfw.KeyF8,
	"f9":            glfw.KeyF9,
	"f10":           glfw.KeyF10,
	"f11":           glfw.KeyF11,
	"f12":           glfw.KeyF12,
}

func init() {
	for c := 'a'; c <= 'z'; c++ {
		keyNames[string(c)] = glfw.KeyA + glfw.Key(c-'a')
	}
	for c := '0'; c <= '9'; c++ {
		keyNames[string(c)] = glfw.Key0 + glfw.Key(c-'0')
	}
}

// ParseKey maps a binding name such as "right_control" to its key.
func ParseKey(name string) (glfw.Key, error) {
	k, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return glfw.KeyUnknown, fmt.Errorf("unknown key %q (known: %s)", name, strings.Join(KeyNames(), ", "))
	}
	return k, nil
}

// KeyNames lists every accepted binding name.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for n := range keyNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
