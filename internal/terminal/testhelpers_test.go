package terminal

import (
	"os"
	"testing"
)

// setupCleanEnv clears every variable the package reads and then sets only
// the given ones.
func setupCleanEnv(t *testing.T, envVars map[string]string) {
	t.Helper()

	names := append([]string{"NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE", "TERM"}, ciEnvVars...)
	for _, name := range names {
		// t.Setenv registers the restore; Unsetenv makes LookupEnv miss.
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	for name, value := range envVars {
		t.Setenv(name, value)
	}
}

type stubDetector struct {
	interactive bool
	input       bool
}

func (s stubDetector) IsInteractive() bool   { return s.interactive }
func (s stubDetector) IsTerminal() bool      { return s.interactive }
func (s stubDetector) IsInputTerminal() bool { return s.input }
func (s stubDetector) IsCIEnvironment() bool { return false }

type stubColors bool

func (s stubColors) SupportsColor() bool { return bool(s) }
