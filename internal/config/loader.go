package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/isseis/go-ti-runner/internal/safefileio"
)

// Loader finds and reads the settings file.
type Loader struct {
	readFile   func(string) ([]byte, error)
	lookupEnv  func(string) (string, bool)
	executable func() (string, error)
}

// NewLoader creates a Loader backed by the os package.
func NewLoader() *Loader {
	return &Loader{
		readFile:   safefileio.ReadFile,
		lookupEnv:  os.LookupEnv,
		executable: os.Executable,
	}
}

// Load returns the effective configuration and the file it came from. An
// explicit TIRUN_CONFIG must exist; the file next to the executable is
// optional. Environment overrides are applied last.
func (l *Loader) Load() (*Config, string, error) {
	path, explicit := l.locate()

	cfg := Default()
	source := ""
	if path != "" {
		content, err := l.readFile(path)
		switch {
		case err == nil:
			parsed, err := Parse(content)
			if err != nil {
				return nil, path, fmt.Errorf("%s: %w", path, err)
			}
			cfg, source = parsed, path
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return nil, path, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(l.lookupEnv); err != nil {
		return nil, source, fmt.Errorf("invalid environment override: %w", err)
	}
	return cfg, source, nil
}

func (l *Loader) locate() (path string, explicit bool) {
	if p, ok := l.lookupEnv(EnvConfigPath); ok && p != "" {
		return p, true
	}
	exe, err := l.executable()
	if err != nil {
		return "", false
	}
	return filepath.Join(filepath.Dir(exe), DefaultFileName), false
}
