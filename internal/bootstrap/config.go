package bootstrap

import (
	"github.com/isseis/go-ti-runner/internal/config"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/terminal"
)

// ConfigSource loads the effective configuration.
type ConfigSource interface {
	Load() (*config.Config, string, error)
}

// LoadConfig loads the settings file and environment overrides. Failures
// are reported as a PreExecutionError.
func LoadConfig(source ConfigSource, runID string) (*config.Config, string, error) {
	cfg, path, err := source.Load()
	if err != nil {
		return nil, path, &logging.PreExecutionError{
			Type:      logging.ErrorTypeConfigParsing,
			Message:   "Failed to load configuration",
			Component: "config",
			RunID:     runID,
			Err:       err,
		}
	}
	return cfg, path, nil
}

// LoggerConfigFrom maps the settings file onto LoggerConfig.
func LoggerConfigFrom(cfg *config.Config, runID string) LoggerConfig {
	return LoggerConfig{
		Level:  cfg.LogLevel(),
		LogDir: cfg.Logging.Dir,
		RunID:  runID,
		Console: terminal.Options{
			ForceInteractive:    cfg.Console.ForceInteractive,
			ForceNonInteractive: cfg.Console.ForceNonInteractive,
			ForceColor:          cfg.Console.ForceColor,
			DisableColor:        cfg.Console.DisableColor,
		},
	}
}
