// Package terminal detects whether the process talks to a human at an
// interactive console and whether that console renders ANSI colors.
package terminal

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars mark unattended runs.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"JENKINS_URL",
	"BUILD_NUMBER",
	"GITLAB_CI",
	"APPVEYOR",
	"BUILDKITE",
	"TF_BUILD",
}

// DetectorOptions forces the interactive decision.
type DetectorOptions struct {
	ForceInteractive    bool
	ForceNonInteractive bool
}

// InteractiveDetector decides whether the process is attached to a console.
type InteractiveDetector interface {
	IsInteractive() bool
	IsTerminal() bool
	IsInputTerminal() bool
	IsCIEnvironment() bool
}

// DefaultInteractiveDetector implements InteractiveDetector with x/term.
type DefaultInteractiveDetector struct {
	options DetectorOptions
}

// NewInteractiveDetector creates an InteractiveDetector.
func NewInteractiveDetector(options DetectorOptions) InteractiveDetector {
	return &DefaultInteractiveDetector{options: options}
}

// IsInteractive applies the forcing options first, then CI detection, then
// terminal detection.
func (d *DefaultInteractiveDetector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if d.IsCIEnvironment() {
		return false
	}
	return d.IsTerminal()
}

// IsTerminal reports whether stdout and stderr are both consoles.
func (d *DefaultInteractiveDetector) IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// IsInputTerminal reports whether stdin is a console.
func (d *DefaultInteractiveDetector) IsInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsCIEnvironment reports whether a CI system variable is set. CI=false,
// CI=0 and CI=no do not count.
func (d *DefaultInteractiveDetector) IsCIEnvironment() bool {
	for _, name := range ciEnvVars {
		value := os.Getenv(name)
		if value == "" {
			continue
		}
		if name == "CI" {
			switch strings.ToLower(strings.TrimSpace(value)) {
			case "false", "0", "no":
				continue
			}
		}
		return true
	}
	return false
}
