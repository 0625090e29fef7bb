package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/terminal"
)

// schemaVersion is bumped when JSON log attributes change incompatibly.
const schemaVersion = 1

// LoggerConfig holds all configuration for logger setup
type LoggerConfig struct {
	Level   slog.Level
	LogDir  string
	RunID   string
	Console terminal.Options
	// Capabilities overrides detection built from Console.
	Capabilities terminal.Capabilities
	// ConsoleWriter receives non-interactive text logs. Defaults to stdout.
	ConsoleWriter io.Writer
	// InteractiveWriter receives interactive status lines. Defaults to stderr.
	InteractiveWriter io.Writer
	// Now is used for the log file name. Defaults to time.Now.
	Now func() time.Time
}

// Logging is the result of logger setup.
type Logging struct {
	Logger       *slog.Logger
	Capabilities terminal.Capabilities
	// LogPath is the JSON log file, empty when file logging is disabled.
	LogPath string
	closers []io.Closer
}

// Close flushes and closes the log file.
func (l *Logging) Close() error {
	var errs []error
	for _, c := range l.closers {
		errs = append(errs, c.Close())
	}
	l.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the handler chain: a colored console handler for
// interactive terminals, a text handler otherwise, and an optional JSON file
// handler, all behind a RedactingHandler.
func NewLogger(config LoggerConfig) (*Logging, error) {
	capabilities := config.Capabilities
	if capabilities == nil {
		capabilities = terminal.NewCapabilities(config.Console)
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	result := &Logging{Capabilities: capabilities}

	var fileHandler slog.Handler
	if config.LogDir != "" {
		if err := logging.ValidateLogDir(config.LogDir); err != nil {
			return nil, fmt.Errorf("invalid log directory: %w", err)
		}
		facts := CollectHostFacts()
		logF, err := logging.OpenLogFile(config.LogDir, facts.Hostname, config.RunID, now())
		if err != nil {
			return nil, err
		}
		result.LogPath = logF.Name()
		result.closers = append(result.closers, logF)

		gitCommit, buildVersion := logging.GetBuildInfo()
		fileHandler = slog.NewJSONHandler(logF, &slog.HandlerOptions{
			Level: config.Level,
		}).WithAttrs([]slog.Attr{
			slog.String("hostname", facts.Hostname),
			slog.Int("pid", os.Getpid()),
			slog.Int("schema_version", schemaVersion),
			slog.String("run_id", config.RunID),
			slog.String("git_commit", gitCommit),
			slog.String("build_version", buildVersion),
			slog.Group("os",
				slog.String("platform", facts.Platform),
				slog.String("platform_version", facts.PlatformVersion),
				slog.String("kernel_version", facts.KernelVersion),
			),
		})
	}

	var handlers []slog.Handler

	interactiveWriter := config.InteractiveWriter
	if interactiveWriter == nil {
		interactiveWriter = os.Stderr
	}
	consoleHandler, err := logging.NewConsoleHandler(logging.ConsoleHandlerOptions{
		Level:        config.Level,
		Writer:       interactiveWriter,
		Capabilities: capabilities,
		LogFile:      result.LogPath,
	})
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("failed to create console handler: %w", err)
	}
	handlers = append(handlers, consoleHandler)

	consoleWriter := config.ConsoleWriter
	if consoleWriter == nil {
		consoleWriter = os.Stdout
	}
	textHandler, err := logging.NewConditionalTextHandler(logging.ConditionalTextHandlerOptions{
		TextHandlerOptions: &slog.HandlerOptions{Level: config.Level},
		Writer:             consoleWriter,
		Capabilities:       capabilities,
	})
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("failed to create conditional text handler: %w", err)
	}
	handlers = append(handlers, textHandler)

	if fileHandler != nil {
		handlers = append(handlers, fileHandler)
	}

	multi, err := logging.NewMultiHandler(handlers...)
	if err != nil {
		_ = result.Close()
		return nil, fmt.Errorf("failed to create multi handler: %w", err)
	}
	result.Logger = slog.New(logging.NewRedactingHandler(multi))
	return result, nil
}

// SetupLoggerWithConfig builds the logger and installs it as the slog
// default. It must be called once during startup, before any logging.
func SetupLoggerWithConfig(config LoggerConfig) (*Logging, error) {
	l, err := NewLogger(config)
	if err != nil {
		return nil, &logging.PreExecutionError{
			Type:      logging.ErrorTypeLogFileOpen,
			Message:   "Failed to setup logger",
			Component: "logging",
			RunID:     config.RunID,
			Err:       err,
		}
	}
	slog.SetDefault(l.Logger)

	slog.Debug("Logger initialized",
		"log_level", config.Level.String(),
		"log_dir", config.LogDir,
		"log_file", l.LogPath,
		"run_id", config.RunID,
		"interactive_mode", l.Capabilities.IsInteractive(),
		"color_support", l.Capabilities.SupportsColor())
	return l, nil
}
