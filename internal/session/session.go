// Package session runs one elevation request and reports progress as the
// text lines shared by the command line and the console form.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/isseis/go-ti-runner/internal/elevation"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/priority"
)

// Separator frames the transcript of one request.
const Separator = "========================================="

// PathHint follows a path rejection.
const PathHint = "Make sure the file is a valid executable and the path contains no dangerous characters"

// PathValidator canonicalizes and validates an executable path.
type PathValidator interface {
	Validate(path string) (string, error)
}

// Launcher starts an executable with a TrustedInstaller token.
type Launcher interface {
	Launch(ctx context.Context, path string, level priority.Level) (elevation.Result, error)
}

// Runner validates a request and hands it to the launcher.
type Runner struct {
	guard    PathValidator
	launcher Launcher
	out      io.Writer
	logger   *slog.Logger
}

// NewRunner creates a Runner writing its transcript to out.
func NewRunner(guard PathValidator, launcher Launcher, out io.Writer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{guard: guard, launcher: launcher, out: out, logger: logger}
}

// Run validates rawPath and level, prints the banner and launches. The
// returned error is the validation or elevation failure; it has already
// been reported on the transcript.
func (r *Runner) Run(ctx context.Context, rawPath string, level priority.Level) (elevation.Result, error) {
	canonical, err := r.guard.Validate(rawPath)
	if err != nil {
		r.println(logging.ErrorMessage(err.Error()))
		r.println(PathHint)
		r.logger.Debug("Path rejected", "path", rawPath, "error", err)
		return elevation.Result{}, err
	}
	if err := level.Validate(); err != nil {
		r.println(logging.ErrorMessage("invalid priority value: " + err.Error()))
		return elevation.Result{}, err
	}

	r.println(Separator)
	r.println("Running: " + canonical)
	r.println("Priority: " + level.Describe())
	r.println("")
	r.println(logging.SuccessLine("Acquiring TrustedInstaller token..."))

	result, err := r.launcher.Launch(ctx, canonical, level)
	if err != nil {
		r.println(logging.FailureLine(failureMessage(err)))
	} else {
		r.println(logging.SuccessLine(fmt.Sprintf("Process started as TrustedInstaller! (PID %d)", result.PID)))
	}
	r.println(Separator)
	return result, err
}

func failureMessage(err error) string {
	if code := elevation.ErrorCode(err); code != 0 {
		return logging.ErrorMessageWithCode("Failed to start process", code)
	}
	return logging.ErrorMessage("Failed to start process: " + err.Error())
}

func (r *Runner) println(line string) {
	_, _ = fmt.Fprintln(r.out, line)
}
