package terminal

import (
	"os"
	"strings"
)

// colorTerminals are TERM values, or prefixes before '-', that render ANSI
// colors.
var colorTerminals = []string{
	"xterm",
	"screen",
	"tmux",
	"rxvt",
	"vt100",
	"ansi",
	"linux",
	"cygwin",
	"putty",
}

// ColorDetector reports whether the console renders ANSI colors.
type ColorDetector interface {
	SupportsColor() bool
}

// DefaultColorDetector checks TERM and, on Windows consoles, enables virtual
// terminal processing.
type DefaultColorDetector struct {
	enableVT func() bool
}

// NewColorDetector creates a ColorDetector.
func NewColorDetector() ColorDetector {
	return &DefaultColorDetector{enableVT: enableVirtualTerminal}
}

// SupportsColor implements ColorDetector.
func (d *DefaultColorDetector) SupportsColor() bool {
	if termSupportsColor(os.Getenv("TERM")) {
		return true
	}
	// Windows consoles leave TERM unset.
	return d.enableVT != nil && d.enableVT()
}

func termSupportsColor(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == "dumb" {
		return false
	}
	for _, prefix := range colorTerminals {
		if value == prefix || strings.HasPrefix(value, prefix+"-") {
			return true
		}
	}
	return false
}
