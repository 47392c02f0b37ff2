package shaders

import _ "embed"

// Built-in programs used when no source file is configured, or when a file
// fails its first build in a live-reload session.
var (
	//go:embed draw.frag
	DefaultDraw string

	//go:embed present.frag
	DefaultPresent string
)
