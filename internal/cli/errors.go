// Package cli parses the command line: an executable path followed by an
// optional priority flag.
package cli

import "errors"

// Error definitions
var (
	ErrNoArguments      = errors.New("no executable path given")
	ErrUnknownParameter = errors.New("unknown parameter")
	ErrInvalidPriority  = errors.New("invalid priority format. Use numbers 1-6")
)
