package cli

import (
	"fmt"
	"strings"

	"github.com/isseis/go-ti-runner/internal/priority"
)

// Accepted priority flag prefixes. Matching is case-sensitive.
var priorityPrefixes = []string{"/priority:", "-priority:"}

// Usage is printed for argument errors.
const Usage = `Usage: tirun <path> [/priority:N | -priority:N]

  <path>         executable to start as TrustedInstaller (.exe .bat .cmd .com)
  /priority:N    1 idle, 2 below normal, 3 normal, 4 above normal, 5 high, 6 realtime

Run without arguments on a terminal to enter paths interactively.`

// Invocation is a parsed command line.
type Invocation struct {
	// Path is the raw path as typed. It is validated later.
	Path  string
	Level priority.Level
}

// Parse splits args (without the program name) into a path and a priority.
// Every priority flag is validated before the path is looked at; when the
// flag repeats, the last one wins. Anything else after the path is an error.
func Parse(args []string, defaultLevel priority.Level) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, ErrNoArguments
	}

	inv := Invocation{Path: args[0], Level: defaultLevel}
	for _, arg := range args[1:] {
		value, ok := priorityValue(arg)
		if !ok {
			return Invocation{}, fmt.Errorf("%w '%s'. Supported parameters: /priority:N or -priority:N", ErrUnknownParameter, arg)
		}
		level, err := priority.Parse(value)
		if err != nil {
			return Invocation{}, fmt.Errorf("%w: %w", ErrInvalidPriority, err)
		}
		inv.Level = level
	}
	return inv, nil
}

func priorityValue(arg string) (string, bool) {
	for _, prefix := range priorityPrefixes {
		if value, ok := strings.CutPrefix(arg, prefix); ok {
			return value, true
		}
	}
	return "", false
}
