package elevation

import (
	"context"
	"syscall"
	"testing"

	"github.com/isseis/go-ti-runner/internal/pathguard"
	"github.com/isseis/go-ti-runner/internal/priority"
	fake "github.com/isseis/go-ti-runner/internal/winsec/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGuard accepts every path and returns it unchanged unless err is set.
type stubGuard struct {
	err   error
	calls []string
}

func (g *stubGuard) Validate(path string) (string, error) {
	g.calls = append(g.calls, path)
	if g.err != nil {
		return "", g.err
	}
	return path, nil
}

func newTestLauncher(api *fake.FakeAPI, guard PathValidator) (*Launcher, *exitRecorder) {
	rec := &exitRecorder{}
	return NewLauncher(api,
		WithLogger(discardLogger()),
		WithPathValidator(guard),
		WithExitFunc(rec.exit),
	), rec
}

func TestLauncher_Launch(t *testing.T) {
	tests := []struct {
		name        string
		api         func() *fake.FakeAPI
		path        string
		level       priority.Level
		wantCmdLine string
		wantFlags   uint32
	}{
		{
			name:        "direct tcb normal priority",
			api:         fake.NewFakeAPI,
			path:        `C:\Windows\System32\notepad.exe`,
			level:       priority.Normal,
			wantCmdLine: `C:\Windows\System32\notepad.exe`,
			wantFlags:   0x20 | 0x10,
		},
		{
			name:        "impersonation fallback high priority",
			api:         fake.NewFakeAPIWithoutTCB,
			path:        `C:\Program Files\Tool\tool.exe`,
			level:       priority.High,
			wantCmdLine: `"C:\Program Files\Tool\tool.exe"`,
			wantFlags:   0x80 | 0x10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := tt.api()
			launcher, rec := newTestLauncher(api, &stubGuard{})

			result, err := launcher.Launch(context.Background(), tt.path, tt.level)
			require.NoError(t, err)

			assert.Equal(t, api.PID, result.PID)
			assert.Equal(t, tt.path, result.Path)
			assert.Equal(t, tt.level, result.Level)
			assert.Len(t, result.AttemptID, 26)

			require.Len(t, api.ProcessRequests, 1)
			req := api.ProcessRequests[0]
			assert.Equal(t, tt.wantCmdLine, req.CommandLine)
			assert.Equal(t, `winsta0\default`, req.Desktop)
			assert.Equal(t, tt.wantFlags, req.CreationFlags)

			assert.Equal(t, fake.ImpersonatePrivilegeValue, api.AdjustCalls[0].Value)
			assert.False(t, api.AdjustCalls[0].Thread)

			assertBalanced(t, api, 0)
			assert.Empty(t, rec.codes)

			snapshot := launcher.Metrics().GetSnapshot()
			assert.Equal(t, int64(1), snapshot.LaunchSuccesses)
			assert.Equal(t, 1.0, snapshot.SuccessRate)
		})
	}
}

func TestLauncher_Launch_RevalidatesPath(t *testing.T) {
	api := fake.NewFakeAPI()
	guard := &stubGuard{err: &pathguard.RejectionError{
		Stage: pathguard.StageRawCheck,
		Path:  `..\evil.exe`,
		Err:   pathguard.ErrTraversal,
	}}
	launcher, _ := newTestLauncher(api, guard)

	_, err := launcher.Launch(context.Background(), `..\evil.exe`, priority.Normal)
	assert.ErrorIs(t, err, pathguard.ErrTraversal)
	assert.Equal(t, []string{`..\evil.exe`}, guard.calls)
	assert.Empty(t, api.Calls, "no OS call before validation passes")

	snapshot := launcher.Metrics().GetSnapshot()
	assert.Equal(t, int64(1), snapshot.LaunchFailures)
	assert.Contains(t, snapshot.LastError, "traversal")
}

func TestLauncher_Launch_RejectsInvalidPriority(t *testing.T) {
	for _, level := range []priority.Level{0, 7, -1} {
		api := fake.NewFakeAPI()
		launcher, _ := newTestLauncher(api, &stubGuard{})

		_, err := launcher.Launch(context.Background(), `C:\x.exe`, level)
		assert.ErrorIs(t, err, priority.ErrOutOfRange)
		assert.Empty(t, api.Calls)
	}
}

func TestLauncher_Launch_CancelledContext(t *testing.T) {
	api := fake.NewFakeAPI()
	guard := &stubGuard{}
	launcher, _ := newTestLauncher(api, guard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := launcher.Launch(ctx, `C:\x.exe`, priority.Normal)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, guard.calls)
	assert.Empty(t, api.Calls)
}

func TestLauncher_Launch_CreateProcessFailure(t *testing.T) {
	api := fake.NewFakeAPI()
	api.Fail[fake.OpCreateProcessWithToken] = syscall.Errno(1314) // ERROR_PRIVILEGE_NOT_HELD
	launcher, rec := newTestLauncher(api, &stubGuard{})

	_, err := launcher.Launch(context.Background(), `C:\x.exe`, priority.Idle)
	require.Error(t, err)

	var elevErr *Error
	require.ErrorAs(t, err, &elevErr)
	assert.Equal(t, StageCreateProcess, elevErr.Stage)
	assert.Equal(t, uint32(1314), ErrorCode(err))
	assert.Contains(t, err.Error(), "(Error Code: 1314)")

	// The minted token is closed even though process creation failed.
	assertBalanced(t, api, 0)
	assert.Empty(t, rec.codes)
}

func TestLauncher_Launch_ImpersonatePrivilegeFailure(t *testing.T) {
	api := fake.NewFakeAPI()
	delete(api.ProcessPrivileges, fake.ImpersonatePrivilegeValue)
	launcher, _ := newTestLauncher(api, &stubGuard{})

	_, err := launcher.Launch(context.Background(), `C:\x.exe`, priority.Normal)
	require.Error(t, err)
	assert.Equal(t, fake.StatusPrivilegeNotHeld, ErrorCode(err))
	assert.False(t, api.Called(fake.OpStringToSID))
	assertBalanced(t, api, 0)
}

func TestLauncher_Launch_NotElevatedStillAttempts(t *testing.T) {
	api := fake.NewFakeAPI()
	api.Elevated = false
	launcher, _ := newTestLauncher(api, &stubGuard{})

	_, err := launcher.Launch(context.Background(), `C:\x.exe`, priority.Normal)
	require.NoError(t, err)
	assert.True(t, api.Called(fake.OpIsElevatedAdministrator))
}

func TestLauncher_DefaultGuard(t *testing.T) {
	api := fake.NewFakeAPI()
	launcher := NewLauncher(api, WithLogger(discardLogger()))

	_, err := launcher.Launch(context.Background(), "tool.ps1|x", priority.Normal)
	assert.ErrorIs(t, err, pathguard.ErrForbiddenCharacter)
	assert.Empty(t, api.Calls)
}

func TestMetrics(t *testing.T) {
	m := &Metrics{}
	m.RecordLaunchSuccess(10)
	m.RecordLaunchSuccess(30)
	m.RecordLaunchFailure(assert.AnError)

	s := m.GetSnapshot()
	assert.Equal(t, int64(3), s.LaunchAttempts)
	assert.Equal(t, int64(2), s.LaunchSuccesses)
	assert.Equal(t, int64(1), s.LaunchFailures)
	assert.Equal(t, int64(20), int64(s.AverageLaunchTime))
	assert.Equal(t, int64(30), int64(s.MaxLaunchTime))
	assert.InDelta(t, 2.0/3.0, s.SuccessRate, 1e-9)
	assert.Equal(t, assert.AnError.Error(), s.LastError)
	assert.NotEmpty(t, m.LogAttrs())
}
