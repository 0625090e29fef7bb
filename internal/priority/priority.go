// Package priority parses and validates the scheduling priority requested for
// an elevated process and maps it to the operating system's priority classes.
package priority

import (
	"errors"
	"fmt"
	"strconv"
)

// Level is one of the six supported scheduling priorities.
type Level int

// Supported levels. The numeric values are the ones accepted on the command
// line and in the console form.
const (
	Idle        Level = 1
	BelowNormal Level = 2
	Normal      Level = 3
	AboveNormal Level = 4
	High        Level = 5
	Realtime    Level = 6
)

// Default is used when no priority is requested.
const Default = Normal

// maxDigits bounds the accepted input before conversion so that oversized
// digit strings fail validation instead of overflowing.
const maxDigits = 10

// Errors
var (
	ErrEmpty        = errors.New("priority value is empty")
	ErrNotNumeric   = errors.New("priority value must contain only digits")
	ErrOutOfRange   = errors.New("priority value must be between 1 and 6")
	errUnknownClass = errors.New("unknown priority class")
)

type levelInfo struct {
	name  string
	class uint32
}

var levels = map[Level]levelInfo{
	Idle:        {name: "IDLE", class: 0x00000040},
	BelowNormal: {name: "BELOW_NORMAL", class: 0x00004000},
	Normal:      {name: "NORMAL", class: 0x00000020},
	AboveNormal: {name: "ABOVE_NORMAL", class: 0x00008000},
	High:        {name: "HIGH", class: 0x00000080},
	Realtime:    {name: "REALTIME", class: 0x00000100},
}

// Parse converts a digit string into a Level. Values outside 1-6 are
// rejected, never clamped.
func Parse(s string) (Level, error) {
	if s == "" {
		return 0, ErrEmpty
	}
	if len(s) > maxDigits {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrNotNumeric, s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, s)
	}
	level := Level(n)
	if err := level.Validate(); err != nil {
		return 0, err
	}
	return level, nil
}

// Validate reports whether l is one of the supported levels.
func (l Level) Validate() error {
	if _, ok := levels[l]; !ok {
		return fmt.Errorf("%w: %d", ErrOutOfRange, int(l))
	}
	return nil
}

// Class returns the process creation priority class for l, or 0 when l is
// not valid.
func (l Level) Class() uint32 {
	return levels[l].class
}

// String returns the upper-case level name, e.g. "ABOVE_NORMAL".
func (l Level) String() string {
	if info, ok := levels[l]; ok {
		return info.name
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Describe returns the banner form "N - NAME".
func (l Level) Describe() string {
	return fmt.Sprintf("%d - %s", int(l), l.String())
}

// levelForClass maps a priority class back to its Level.
func levelForClass(class uint32) (Level, error) {
	for level, info := range levels {
		if info.class == class {
			return level, nil
		}
	}
	return 0, fmt.Errorf("%w: 0x%X", errUnknownClass, class)
}

// All returns every supported level in ascending order.
func All() []Level {
	return []Level{Idle, BelowNormal, Normal, AboveNormal, High, Realtime}
}
