package elevation

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/isseis/go-ti-runner/internal/pathguard"
	"github.com/isseis/go-ti-runner/internal/priority"
	"github.com/isseis/go-ti-runner/internal/winsec"
	"github.com/oklog/ulid/v2"
)

// InteractiveDesktop is the window station and desktop of the logged-on user.
const InteractiveDesktop = `winsta0\default`

// PathValidator canonicalizes and validates an executable path.
type PathValidator interface {
	Validate(path string) (string, error)
}

// Result describes a launched process.
type Result struct {
	AttemptID string
	Path      string
	Level     priority.Level
	PID       uint32
	Duration  time.Duration
}

// Launcher starts executables with a TrustedInstaller token.
type Launcher struct {
	api        winsec.API
	guard      PathValidator
	privileges *PrivilegeSwitch
	logger     *slog.Logger
	exit       ExitFunc
	metrics    *Metrics
	forge      *TokenForge
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) {
		l.logger = logger
	}
}

// WithPathValidator replaces the default path guard.
func WithPathValidator(guard PathValidator) Option {
	return func(l *Launcher) {
		l.guard = guard
	}
}

// WithExitFunc replaces os.Exit for emergency shutdowns.
func WithExitFunc(exit ExitFunc) Option {
	return func(l *Launcher) {
		l.exit = exit
	}
}

// NewLauncher creates a Launcher backed by api.
func NewLauncher(api winsec.API, opts ...Option) *Launcher {
	l := &Launcher{
		api:     api,
		logger:  slog.Default(),
		metrics: &Metrics{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.guard == nil {
		l.guard = pathguard.New(pathguard.NewSystem())
	}
	l.privileges = NewPrivilegeSwitch(api, l.logger)
	l.forge = NewTokenForge(api, l.logger, l.exit)
	return l
}

// Metrics returns the launch metrics.
func (l *Launcher) Metrics() *Metrics {
	return l.metrics
}

// Launch validates path and level again, mints a TrustedInstaller token and
// starts path on the interactive desktop in a new console.
func (l *Launcher) Launch(ctx context.Context, path string, level priority.Level) (Result, error) {
	start := time.Now()
	result := Result{AttemptID: ulid.Make().String(), Level: level}
	logger := l.logger.With("attempt_id", result.AttemptID)

	pid, canonical, err := l.launch(ctx, logger, path, level)
	result.Path = canonical
	result.Duration = time.Since(start)
	if err != nil {
		l.metrics.RecordLaunchFailure(err)
		logger.Error("Elevated launch failed", "path", path, "error", err)
		return result, err
	}

	result.PID = pid
	l.metrics.RecordLaunchSuccess(result.Duration)
	logger.Info("Elevated process started",
		"path", canonical,
		"priority", level.String(),
		"pid", pid,
		"duration_ms", result.Duration.Milliseconds())
	return result, nil
}

func (l *Launcher) launch(ctx context.Context, logger *slog.Logger, path string, level priority.Level) (uint32, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	canonical, err := l.guard.Validate(path)
	if err != nil {
		return 0, "", err
	}
	if err := level.Validate(); err != nil {
		return 0, canonical, err
	}

	l.checkAdministrator(logger)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := l.privileges.Enable(ImpersonatePrivilege, false); err != nil {
		return 0, canonical, err
	}

	token, err := l.forge.Mint()
	if err != nil {
		return 0, canonical, err
	}
	defer closeLogged(logger, &token, "elevated token")

	info, err := l.api.CreateProcessWithToken(token.Get(), winsec.ProcessRequest{
		CommandLine:   commandLine(canonical),
		Desktop:       InteractiveDesktop,
		CreationFlags: level.Class() | winsec.CreateNewConsole,
	})
	if err != nil {
		return 0, canonical, &Error{Stage: StageCreateProcess, Target: canonical, Err: err}
	}

	process := winsec.Own(info.Process, l.api.CloseHandle)
	thread := winsec.Own(info.Thread, l.api.CloseHandle)
	closeLogged(logger, &process, "child process handle")
	closeLogged(logger, &thread, "child thread handle")

	return info.PID, canonical, nil
}

// checkAdministrator warns when the caller is not an elevated administrator.
// The attempt continues and fails later with the OS error code.
func (l *Launcher) checkAdministrator(logger *slog.Logger) {
	elevated, err := l.api.IsElevatedAdministrator()
	if err != nil {
		logger.Debug("Unable to determine administrator status", "error", err)
		return
	}
	if !elevated {
		logger.Warn("Not running as an elevated administrator; elevation is expected to fail")
	}
}

// commandLine quotes path when it contains whitespace. Validated paths never
// contain double quotes.
func commandLine(path string) string {
	if strings.ContainsAny(path, " \t") {
		return `"` + path + `"`
	}
	return path
}
