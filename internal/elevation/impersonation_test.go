package elevation

import (
	"testing"

	"github.com/isseis/go-ti-runner/internal/winsec"
	fake "github.com/isseis/go-ti-runner/internal/winsec/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpersonationBridge_BorrowSystemIdentity(t *testing.T) {
	api := fake.NewFakeAPI()
	bridge := NewImpersonationBridge(api, discardLogger())

	revert, err := bridge.BorrowSystemIdentity()
	require.NoError(t, err)
	require.NotNil(t, revert)

	assert.True(t, api.Impersonating())
	// Snapshot, process and token handles are closed; only the
	// impersonation itself is outstanding.
	assert.Len(t, api.Outstanding(), 1)

	require.NoError(t, revert())
	require.NoError(t, revert())
	assert.Equal(t, 1, api.CallsTo(fake.OpRevertToSelf))
	assert.False(t, api.Impersonating())
	assert.Empty(t, api.Outstanding())
}

func TestImpersonationBridge_MatchesNameCaseInsensitively(t *testing.T) {
	api := fake.NewFakeAPI()
	api.Processes = []winsec.ProcessEntry{
		{PID: 4, Name: "System"},
		{PID: 900, Name: "WINLOGON.EXE"},
	}
	bridge := NewImpersonationBridge(api, discardLogger())

	revert, err := bridge.BorrowSystemIdentity()
	require.NoError(t, err)
	require.NoError(t, revert())
}

func TestImpersonationBridge_ProcessNotFound(t *testing.T) {
	api := fake.NewFakeAPI()
	api.Processes = []winsec.ProcessEntry{{PID: 4, Name: "System"}, {PID: 8, Name: "winlogon.exe.bak"}}
	bridge := NewImpersonationBridge(api, discardLogger())

	revert, err := bridge.BorrowSystemIdentity()
	assert.Nil(t, revert)
	assert.ErrorIs(t, err, ErrProcessNotFound)
	assert.False(t, api.Called(fake.OpOpenProcess))
	assert.Empty(t, api.Outstanding())
}
