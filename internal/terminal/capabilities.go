package terminal

import (
	"os"
	"strings"
)

// Options overrides automatic detection. They come from the [console]
// section of the configuration file.
type Options struct {
	ForceInteractive    bool
	ForceNonInteractive bool
	ForceColor          bool
	DisableColor        bool
}

// Capabilities reports what the attached console can do.
type Capabilities interface {
	// IsInteractive reports whether log output goes to a human.
	IsInteractive() bool
	// AcceptsInput reports whether the console form can prompt on stdin.
	AcceptsInput() bool
	SupportsColor() bool
	HasExplicitUserPreference() bool
}

// DefaultCapabilities combines interactive detection, color detection and
// the user's color preference.
type DefaultCapabilities struct {
	detector   InteractiveDetector
	colors     ColorDetector
	preference *UserPreference
}

// NewCapabilities creates Capabilities for the current process.
func NewCapabilities(options Options) Capabilities {
	return &DefaultCapabilities{
		detector: NewInteractiveDetector(DetectorOptions{
			ForceInteractive:    options.ForceInteractive,
			ForceNonInteractive: options.ForceNonInteractive,
		}),
		colors: NewColorDetector(),
		preference: NewUserPreference(PreferenceOptions{
			ForceColor:   options.ForceColor,
			DisableColor: options.DisableColor,
		}),
	}
}

// IsInteractive implements Capabilities.
func (c *DefaultCapabilities) IsInteractive() bool {
	return c.detector.IsInteractive()
}

// AcceptsInput implements Capabilities.
func (c *DefaultCapabilities) AcceptsInput() bool {
	return c.detector.IsInteractive() && c.detector.IsInputTerminal()
}

// SupportsColor resolves color support in this order: explicit preference
// (options, CLICOLOR_FORCE, NO_COLOR), then interactive color-capable
// console, then CLICOLOR.
func (c *DefaultCapabilities) SupportsColor() bool {
	if c.preference.HasExplicitPreference() {
		return c.preference.SupportsColor()
	}
	if !c.IsInteractive() || !c.colors.SupportsColor() {
		return false
	}
	if cliColor := os.Getenv("CLICOLOR"); cliColor != "" {
		return isTruthy(cliColor)
	}
	return true
}

// HasExplicitUserPreference implements Capabilities.
func (c *DefaultCapabilities) HasExplicitUserPreference() bool {
	return c.preference.HasExplicitPreference()
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
