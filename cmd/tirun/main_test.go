//go:build !windows

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isseis/go-ti-runner/internal/cli"
	"github.com/isseis/go-ti-runner/internal/config"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/pathguard"
	"github.com/isseis/go-ti-runner/internal/priority"
	"github.com/isseis/go-ti-runner/internal/winsec"
	fake "github.com/isseis/go-ti-runner/internal/winsec/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCapabilities struct {
	interactive bool
}

func (s stubCapabilities) IsInteractive() bool             { return s.interactive }
func (s stubCapabilities) AcceptsInput() bool              { return s.interactive }
func (s stubCapabilities) SupportsColor() bool             { return false }
func (s stubCapabilities) HasExplicitUserPreference() bool { return false }

type stubSource struct {
	cfg *config.Config
	err error
}

func (s stubSource) Load() (*config.Config, string, error) { return s.cfg, "", s.err }

type testApp struct {
	*app
	api    *fake.FakeAPI
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	exits  []int
}

func newTestApp(t *testing.T, args ...string) *testApp {
	t.Helper()
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })

	ta := &testApp{
		api:    fake.NewFakeAPI(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	ta.app = &app{
		runID:        "test-run",
		args:         args,
		stdin:        strings.NewReader(""),
		stdout:       ta.stdout,
		stderr:       ta.stderr,
		config:       stubSource{cfg: config.Default()},
		api:          ta.api,
		guard:        pathguard.New(pathguard.NewSystem()),
		capabilities: stubCapabilities{},
		supported:    true,
		exit:         func(code int) { ta.exits = append(ta.exits, code) },
	}
	return ta
}

// writeExecutable creates a file the portable guard accepts. The Windows
// guard also requires version resources, so these tests run elsewhere.
func writeExecutable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.exe")
	require.NoError(t, os.WriteFile(path, []byte("MZ"), 0o600))
	return path
}

func TestRun_LaunchesWithPriority(t *testing.T) {
	exe := writeExecutable(t)
	ta := newTestApp(t, exe, "/priority:5")

	err := ta.run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, ta.report(err))

	require.Len(t, ta.api.ProcessRequests, 1)
	assert.Equal(t, priority.High.Class()|winsec.CreateNewConsole, ta.api.ProcessRequests[0].CreationFlags)
	assert.Contains(t, ta.stdout.String(), "Priority: 5 - HIGH")
	assert.Contains(t, ta.stdout.String(), "[+] Process started as TrustedInstaller! (PID 4242)")
	assert.Empty(t, ta.exits)
}

func TestRun_DefaultPriorityFromConfig(t *testing.T) {
	exe := writeExecutable(t)
	ta := newTestApp(t, exe)
	cfg := config.Default()
	cfg.Launch.DefaultPriority = int(priority.Idle)
	ta.config = stubSource{cfg: cfg}

	require.NoError(t, ta.run(context.Background()))
	require.Len(t, ta.api.ProcessRequests, 1)
	assert.Equal(t, priority.Idle.Class()|winsec.CreateNewConsole, ta.api.ProcessRequests[0].CreationFlags)
}

func TestRun_InvalidPriorityRejectedBeforePath(t *testing.T) {
	ta := newTestApp(t, `..\evil.exe`, "/priority:abc")

	err := ta.run(context.Background())
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeInvalidArguments, preErr.Type)
	assert.ErrorIs(t, err, cli.ErrInvalidPriority)
	assert.Empty(t, ta.api.Calls)
	assert.Empty(t, ta.stdout.String(), "no path validation output")

	assert.Equal(t, 1, ta.report(err))
	assert.Contains(t, ta.stderr.String(), cli.Usage)
}

func TestRun_TraversalRejectedBeforeAnyPrivilegeCall(t *testing.T) {
	ta := newTestApp(t, `..\evil.exe`)

	err := ta.run(context.Background())
	assert.ErrorIs(t, err, errRequestFailed)
	assert.ErrorIs(t, err, pathguard.ErrTraversal)
	assert.Empty(t, ta.api.Calls)
	assert.Contains(t, ta.stdout.String(), "Error: path '..\\evil.exe' rejected")
	assert.Equal(t, 1, ta.report(err))
	assert.Empty(t, ta.stderr.String())
}

func TestRun_ScriptExtensionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.ps1")
	require.NoError(t, os.WriteFile(path, []byte("Write-Host"), 0o600))
	ta := newTestApp(t, path)

	err := ta.run(context.Background())
	assert.ErrorIs(t, err, pathguard.ErrExtensionNotAllowed)
	assert.Empty(t, ta.api.Calls)
}

func TestRun_ElevationFailure(t *testing.T) {
	exe := writeExecutable(t)
	ta := newTestApp(t, exe)
	ta.api.Fail[fake.OpLogonServiceUser] = nil

	err := ta.run(context.Background())
	assert.ErrorIs(t, err, errRequestFailed)
	assert.Contains(t, ta.stdout.String(), "[-] Error: Failed to start process")
	assert.Equal(t, 1, ta.report(err))
}

func TestRun_NoArgumentsWithoutTerminal(t *testing.T) {
	ta := newTestApp(t)

	err := ta.run(context.Background())
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeInvalidArguments, preErr.Type)
	assert.Empty(t, ta.api.Calls)
}

func TestRun_NoArgumentsOpensForm(t *testing.T) {
	exe := writeExecutable(t)
	ta := newTestApp(t)
	ta.capabilities = stubCapabilities{interactive: true}
	ta.stdin = strings.NewReader(exe + "\n6\n\n")

	require.NoError(t, ta.run(context.Background()))
	require.Len(t, ta.api.ProcessRequests, 1)
	assert.Equal(t, priority.Realtime.Class()|winsec.CreateNewConsole, ta.api.ProcessRequests[0].CreationFlags)
	assert.Contains(t, ta.stdout.String(), "Ready to run executables as TrustedInstaller.")
}

func TestRun_UnsupportedPlatform(t *testing.T) {
	ta := newTestApp(t, "notepad")
	ta.supported = false

	err := ta.run(context.Background())
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeUnsupportedPlatform, preErr.Type)
	assert.ErrorIs(t, err, winsec.ErrPlatformNotSupported)
}

func TestRun_ConfigFailure(t *testing.T) {
	ta := newTestApp(t, "notepad")
	ta.config = stubSource{err: config.ErrInvalidLogLevel}

	err := ta.run(context.Background())
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeConfigParsing, preErr.Type)
	assert.Equal(t, 1, ta.report(err))
}

func TestRun_Interrupted(t *testing.T) {
	exe := writeExecutable(t)
	ta := newTestApp(t, exe)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ta.run(ctx)
	var preErr *logging.PreExecutionError
	require.ErrorAs(t, err, &preErr)
	assert.Equal(t, logging.ErrorTypeUserInterrupted, preErr.Type)
	assert.Empty(t, ta.api.ProcessRequests)
}

func TestReport_SystemError(t *testing.T) {
	ta := newTestApp(t)
	assert.Equal(t, 1, ta.report(errors.New("boom")))
	assert.Equal(t, 0, ta.report(nil))
}
