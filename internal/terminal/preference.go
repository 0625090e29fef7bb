package terminal

import "os"

// PreferenceOptions carries explicit color choices.
type PreferenceOptions struct {
	ForceColor   bool
	DisableColor bool
}

// UserPreference resolves the user's explicit color choice.
type UserPreference struct {
	options PreferenceOptions
}

// NewUserPreference creates a UserPreference.
func NewUserPreference(options PreferenceOptions) *UserPreference {
	return &UserPreference{options: options}
}

// SupportsColor returns the explicit choice. Without one it returns false.
func (p *UserPreference) SupportsColor() bool {
	if p.options.ForceColor {
		return true
	}
	if p.options.DisableColor {
		return false
	}
	if isTruthy(os.Getenv("CLICOLOR_FORCE")) {
		return true
	}
	// NO_COLOR counts even when empty.
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return false
}

// HasExplicitPreference reports whether options or the environment state a
// color choice. CLICOLOR alone is not explicit; it only applies to consoles.
func (p *UserPreference) HasExplicitPreference() bool {
	if p.options.ForceColor || p.options.DisableColor {
		return true
	}
	if isTruthy(os.Getenv("CLICOLOR_FORCE")) {
		return true
	}
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
