// Package config loads the optional tirun.toml settings file. Security
// allow-lists are compiled into the binary and cannot be set here.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/isseis/go-ti-runner/internal/priority"
	"github.com/pelletier/go-toml/v2"
)

// Environment variables
const (
	EnvConfigPath = "TIRUN_CONFIG"
	EnvLogLevel   = "TIRUN_LOG_LEVEL"
	EnvLogDir     = "TIRUN_LOG_DIR"
)

// DefaultFileName is looked up next to the executable.
const DefaultFileName = "tirun.toml"

// Errors
var (
	ErrInvalidLogLevel        = errors.New("invalid log level")
	ErrConflictingInteractive = errors.New("force_interactive and force_non_interactive are mutually exclusive")
	ErrConflictingColor       = errors.New("force_color and disable_color are mutually exclusive")
	ErrInvalidDefaultPriority = errors.New("invalid default_priority")
)

// Config is the settings file content.
type Config struct {
	Logging LoggingConfig `toml:"logging"`
	Console ConsoleConfig `toml:"console"`
	Launch  LaunchConfig  `toml:"launch"`
}

// LoggingConfig is the [logging] section.
type LoggingConfig struct {
	Level string `toml:"level"`
	// Dir receives one JSON log file per run. Empty disables file logging.
	Dir string `toml:"dir"`
}

// ConsoleConfig is the [console] section.
type ConsoleConfig struct {
	ForceInteractive    bool `toml:"force_interactive"`
	ForceNonInteractive bool `toml:"force_non_interactive"`
	ForceColor          bool `toml:"force_color"`
	DisableColor        bool `toml:"disable_color"`
}

// LaunchConfig is the [launch] section.
type LaunchConfig struct {
	DefaultPriority int `toml:"default_priority"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Launch:  LaunchConfig{DefaultPriority: int(priority.Default)},
	}
}

// Parse decodes content over the defaults. Unknown keys are errors.
func Parse(content []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("failed to parse config: unknown keys:\n%s", strict.String())
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides logging settings from TIRUN_LOG_LEVEL and TIRUN_LOG_DIR.
func (c *Config) ApplyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv(EnvLogDir); ok {
		c.Logging.Dir = v
	}
	return c.Validate()
}

// Validate checks field values and combinations.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Console.ForceInteractive && c.Console.ForceNonInteractive {
		return ErrConflictingInteractive
	}
	if c.Console.ForceColor && c.Console.DisableColor {
		return ErrConflictingColor
	}
	if err := priority.Level(c.Launch.DefaultPriority).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDefaultPriority, err)
	}
	return nil
}

// LogLevel returns the parsed logging level.
func (c *Config) LogLevel() slog.Level {
	level, _ := ParseLogLevel(c.Logging.Level)
	return level
}

// DefaultPriority returns the launch priority used without /priority.
func (c *Config) DefaultPriority() priority.Level {
	return priority.Level(c.Launch.DefaultPriority)
}

// ParseLogLevel accepts debug, info, warn and error, case-insensitively.
// An empty string means info.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}
