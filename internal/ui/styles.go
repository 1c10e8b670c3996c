package ui

import "fmt"

// ANSI256 colour codes.
const (
	colorAccent = 74  // blue
	colorMuted  = 245 // medium gray
	colorOK     = 114 // green
	colorWarn   = 179 // amber
	colorError  = 203 // red
)

// Palette renders text with or without colour.
type Palette struct {
	Color bool
}

// NewPalette returns a palette that colours only when enabled is true.
func NewPalette(enabled bool) Palette { return Palette{Color: enabled} }

func (p Palette) paint(code int, s string) string {
	if !p.Color {
		return s
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", code, s)
}

// Accent returns s in the accent (blue) colour.
func (p Palette) Accent(s string) string { return p.paint(colorAccent, s) }

// Muted returns s in the muted (gray) colour.
func (p Palette) Muted(s string) string { return p.paint(colorMuted, s) }

// State colours a connection state name: green when connected, amber while
// connecting or retrying, red when disconnected.
func (p Palette) State(name string) string {
	switch name {
	case "connected":
		return p.paint(colorOK, name)
	case "connecting", "retrying":
		return p.paint(colorWarn, name)
	case "disconnected":
		return p.paint(colorError, name)
	default:
		return name
	}
}
