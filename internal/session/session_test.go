package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"syscall"
	"testing"

	"github.com/isseis/go-ti-runner/internal/elevation"
	"github.com/isseis/go-ti-runner/internal/pathguard"
	"github.com/isseis/go-ti-runner/internal/priority"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGuard struct {
	canonical string
	err       error
}

func (g stubGuard) Validate(string) (string, error) {
	return g.canonical, g.err
}

type stubLauncher struct {
	result elevation.Result
	err    error
	calls  []launchCall
}

type launchCall struct {
	path  string
	level priority.Level
}

func (l *stubLauncher) Launch(_ context.Context, path string, level priority.Level) (elevation.Result, error) {
	l.calls = append(l.calls, launchCall{path: path, level: level})
	return l.result, l.err
}

func newTestRunner(guard PathValidator, launcher Launcher) (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	return NewRunner(guard, launcher, &out, slog.New(slog.NewTextHandler(io.Discard, nil))), &out
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
}

func TestRunner_Success(t *testing.T) {
	launcher := &stubLauncher{result: elevation.Result{PID: 4242}}
	r, out := newTestRunner(stubGuard{canonical: `C:\Windows\System32\notepad.exe`}, launcher)

	result, err := r.Run(context.Background(), "notepad", priority.High)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), result.PID)

	require.Len(t, launcher.calls, 1)
	assert.Equal(t, launchCall{path: `C:\Windows\System32\notepad.exe`, level: priority.High}, launcher.calls[0])

	assert.Equal(t, []string{
		Separator,
		`Running: C:\Windows\System32\notepad.exe`,
		"Priority: 5 - HIGH",
		"",
		"[+] Acquiring TrustedInstaller token...",
		"[+] Process started as TrustedInstaller! (PID 4242)",
		Separator,
	}, lines(out))
}

func TestRunner_PathRejected(t *testing.T) {
	launcher := &stubLauncher{}
	rejection := &pathguard.RejectionError{Stage: pathguard.StageRawCheck, Path: `..\evil.exe`, Err: pathguard.ErrTraversal}
	r, out := newTestRunner(stubGuard{err: rejection}, launcher)

	_, err := r.Run(context.Background(), `..\evil.exe`, priority.Normal)
	assert.ErrorIs(t, err, pathguard.ErrTraversal)
	assert.Empty(t, launcher.calls)
	assert.Equal(t, []string{
		"Error: path '..\\evil.exe' rejected at raw_check: path contains a directory traversal sequence",
		PathHint,
	}, lines(out))
}

func TestRunner_InvalidLevel(t *testing.T) {
	launcher := &stubLauncher{}
	r, out := newTestRunner(stubGuard{canonical: `C:\x.exe`}, launcher)

	_, err := r.Run(context.Background(), `C:\x.exe`, priority.Level(7))
	assert.ErrorIs(t, err, priority.ErrOutOfRange)
	assert.Empty(t, launcher.calls)
	assert.True(t, strings.HasPrefix(out.String(), "Error: invalid priority value"))
}

func TestRunner_LaunchFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "with os code",
			err:  &elevation.Error{Stage: elevation.StageCreateProcess, Target: `C:\x.exe`, Err: syscall.Errno(5)},
			want: "[-] Error: Failed to start process (Error Code: 5)",
		},
		{
			name: "without os code",
			err:  elevation.ErrProcessNotFound,
			want: "[-] Error: Failed to start process: " + elevation.ErrProcessNotFound.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			launcher := &stubLauncher{err: tt.err}
			r, out := newTestRunner(stubGuard{canonical: `C:\x.exe`}, launcher)

			_, err := r.Run(context.Background(), `C:\x.exe`, priority.Normal)
			assert.True(t, errors.Is(err, tt.err))

			got := lines(out)
			require.GreaterOrEqual(t, len(got), 2)
			assert.Equal(t, tt.want, got[len(got)-2])
			assert.Equal(t, Separator, got[len(got)-1])
		})
	}
}
