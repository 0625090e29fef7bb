// Package main is the tirun command. It starts an executable as
// TrustedInstaller, either from the command line or from an interactive form
// when run without arguments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/isseis/go-ti-runner/internal/bootstrap"
	"github.com/isseis/go-ti-runner/internal/cli"
	"github.com/isseis/go-ti-runner/internal/config"
	"github.com/isseis/go-ti-runner/internal/console"
	"github.com/isseis/go-ti-runner/internal/elevation"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/pathguard"
	"github.com/isseis/go-ti-runner/internal/session"
	"github.com/isseis/go-ti-runner/internal/terminal"
	"github.com/isseis/go-ti-runner/internal/winsec"
)

// errRequestFailed marks failures that the session transcript has already
// reported to the user.
var errRequestFailed = errors.New("request failed")

// app holds everything run needs from the process environment.
type app struct {
	runID  string
	args   []string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	config bootstrap.ConfigSource
	api    winsec.API
	guard  elevation.PathValidator
	// capabilities overrides terminal detection when set.
	capabilities terminal.Capabilities
	supported    bool
	exit         elevation.ExitFunc
}

func main() {
	// Generate run ID early for error handling
	runID := logging.GenerateRunID()

	a := &app{
		runID:     runID,
		args:      os.Args[1:],
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		config:    config.NewLoader(),
		api:       winsec.NewSystemAPI(),
		guard:     pathguard.New(pathguard.NewSystem()),
		supported: runtime.GOOS == "windows",
		exit:      os.Exit,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := a.run(ctx)
	stop()
	os.Exit(a.report(err))
}

// report prints err and returns the process exit code.
func (a *app) report(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, errRequestFailed) {
		return 1
	}

	var preExecErr *logging.PreExecutionError
	if !errors.As(err, &preExecErr) {
		preExecErr = &logging.PreExecutionError{
			Type:      logging.ErrorTypeSystemError,
			Message:   err.Error(),
			Component: "main",
		}
	}
	msg := preExecErr.Message
	if preExecErr.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, preExecErr.Err)
	}
	logging.HandlePreExecutionError(preExecErr.Type, msg, preExecErr.Component, a.runID)
	if preExecErr.Type == logging.ErrorTypeInvalidArguments {
		_, _ = fmt.Fprintln(a.stderr, cli.Usage)
	}
	return 1
}

func (a *app) run(ctx context.Context) error {
	cfg, cfgPath, err := bootstrap.LoadConfig(a.config, a.runID)
	if err != nil {
		return err
	}

	loggerConfig := bootstrap.LoggerConfigFrom(cfg, a.runID)
	loggerConfig.Capabilities = a.capabilities
	loggerConfig.ConsoleWriter = a.stdout
	loggerConfig.InteractiveWriter = a.stderr
	logs, err := bootstrap.SetupLoggerWithConfig(loggerConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := logs.Close(); err != nil {
			_, _ = fmt.Fprintf(a.stderr, "Warning: failed to close log file: %v\n", err)
		}
	}()
	if cfgPath != "" {
		slog.Debug("Configuration loaded", "config_file", cfgPath)
	}

	// Arguments are checked before anything touches the path or the OS.
	var inv cli.Invocation
	if len(a.args) > 0 {
		inv, err = cli.Parse(a.args, cfg.DefaultPriority())
		if err != nil {
			return a.preExecError(logging.ErrorTypeInvalidArguments, "Invalid arguments", "cli", err)
		}
	} else if !logs.Capabilities.AcceptsInput() {
		return a.preExecError(logging.ErrorTypeInvalidArguments, "No executable path given and no interactive terminal", "cli", nil)
	}

	if !a.supported {
		return a.preExecError(logging.ErrorTypeUnsupportedPlatform, "tirun requires Windows", "main", winsec.ErrPlatformNotSupported)
	}

	launcher := elevation.NewLauncher(a.api,
		elevation.WithLogger(slog.Default()),
		elevation.WithPathValidator(a.guard),
		elevation.WithExitFunc(a.exit),
	)
	defer func() {
		slog.Debug("Launch metrics", launcher.Metrics().LogAttrs()...)
	}()
	runner := session.NewRunner(a.guard, launcher, a.stdout, slog.Default())

	if len(a.args) == 0 {
		form := console.NewForm(a.stdin, a.stdout, runner, console.FormOptions{
			DefaultLevel: cfg.DefaultPriority(),
			Color:        logs.Capabilities.SupportsColor(),
		})
		stats, err := form.Run(ctx)
		slog.Debug("Console form closed", "succeeded", stats.Succeeded, "failed", stats.Failed)
		if errors.Is(err, context.Canceled) {
			return a.preExecError(logging.ErrorTypeUserInterrupted, "Interrupted", "console", nil)
		}
		if err != nil {
			return a.preExecError(logging.ErrorTypeSystemError, "Failed to read input", "console", err)
		}
		return nil
	}

	if _, err := runner.Run(ctx, inv.Path, inv.Level); err != nil {
		if errors.Is(err, context.Canceled) {
			return a.preExecError(logging.ErrorTypeUserInterrupted, "Interrupted", "main", nil)
		}
		return fmt.Errorf("%w: %w", errRequestFailed, err)
	}
	return nil
}

func (a *app) preExecError(errorType logging.ErrorType, msg, component string, err error) error {
	return &logging.PreExecutionError{
		Type:      errorType,
		Message:   msg,
		Component: component,
		RunID:     a.runID,
		Err:       err,
	}
}
