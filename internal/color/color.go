// Package color wraps text in ANSI escape sequences for console output.
//
//nolint:revive // package name conflicts with standard library
package color

// ANSI color codes
const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m"
	greenCode  = "\033[32m"
	yellowCode = "\033[33m"
	redCode    = "\033[31m"
	cyanCode   = "\033[36m"
	boldCode   = "\033[1m"
)

// Color wraps text with an ANSI escape sequence.
type Color func(text string) string

// NewColor creates a Color for the given ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		return ansiCode + text + resetCode
	}
}

// Predefined colors
var (
	Gray   = NewColor(grayCode)
	Green  = NewColor(greenCode)
	Yellow = NewColor(yellowCode)
	Red    = NewColor(redCode)
	Cyan   = NewColor(cyanCode)
	Bold   = NewColor(boldCode)
)

// Plain returns text unchanged.
func Plain(text string) string {
	return text
}

// Palette selects the colors used for console status markers.
type Palette struct {
	Success Color
	Failure Color
	Warning Color
	Detail  Color
	Heading Color
}

// NewPalette returns a colored palette when enabled is true, otherwise one
// that leaves text untouched.
func NewPalette(enabled bool) Palette {
	if !enabled {
		return Palette{Success: Plain, Failure: Plain, Warning: Plain, Detail: Plain, Heading: Plain}
	}
	return Palette{Success: Green, Failure: Red, Warning: Yellow, Detail: Gray, Heading: Cyan}
}
