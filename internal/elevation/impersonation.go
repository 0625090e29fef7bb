package elevation

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/isseis/go-ti-runner/internal/winsec"
)

// systemLogonProcess always runs as SYSTEM in every interactive session.
const systemLogonProcess = "winlogon.exe"

const borrowTokenAccess = winsec.TokenQuery | winsec.TokenDuplicate | winsec.TokenImpersonate

// ImpersonationBridge lets the current thread run as SYSTEM by borrowing the
// token of the system logon process.
type ImpersonationBridge struct {
	api    winsec.API
	logger *slog.Logger
}

// NewImpersonationBridge creates an ImpersonationBridge.
func NewImpersonationBridge(api winsec.API, logger *slog.Logger) *ImpersonationBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImpersonationBridge{api: api, logger: logger}
}

// BorrowSystemIdentity impersonates the system logon process on the calling
// thread. The caller must be locked to its OS thread and must call revert
// exactly once when done; further calls return the first result.
func (b *ImpersonationBridge) BorrowSystemIdentity() (revert func() error, err error) {
	pid, err := b.findProcess(systemLogonProcess)
	if err != nil {
		return nil, &Error{Stage: StageImpersonation, Target: systemLogonProcess, Err: err}
	}

	process, err := b.api.OpenProcess(pid, winsec.ProcessQueryInformation)
	if err != nil {
		return nil, &Error{Stage: StageImpersonation, Target: systemLogonProcess, Err: err}
	}
	processOwner := winsec.Own(process, b.api.CloseHandle)
	defer closeLogged(b.logger, &processOwner, "process handle")

	token, err := b.api.OpenProcessToken(process, borrowTokenAccess)
	if err != nil {
		return nil, &Error{Stage: StageImpersonation, Target: systemLogonProcess, Err: err}
	}
	tokenOwner := winsec.Own(token, b.api.CloseHandle)
	defer closeLogged(b.logger, &tokenOwner, "process token")

	if err := b.api.ImpersonateLoggedOnUser(token); err != nil {
		return nil, &Error{Stage: StageImpersonation, Target: systemLogonProcess, Err: err}
	}

	b.logger.Debug("Impersonating system logon process", "pid", pid)
	return sync.OnceValue(b.api.RevertToSelf), nil
}

func (b *ImpersonationBridge) findProcess(name string) (uint32, error) {
	snapshot, err := b.api.CreateProcessSnapshot()
	if err != nil {
		return 0, err
	}
	owner := winsec.Own(snapshot, b.api.CloseHandle)
	defer closeLogged(b.logger, &owner, "process snapshot")

	entry, err := b.api.FirstProcess(snapshot)
	for err == nil {
		if strings.EqualFold(entry.Name, name) {
			return entry.PID, nil
		}
		entry, err = b.api.NextProcess(snapshot)
	}
	if errors.Is(err, winsec.ErrNoMoreProcesses) {
		return 0, ErrProcessNotFound
	}
	return 0, err
}

// closeLogged releases o and logs a failure instead of returning it.
func closeLogged[T comparable](logger *slog.Logger, o *winsec.Owned[T], what string) {
	if err := o.Close(); err != nil {
		logger.Warn("Failed to release resource", "resource", what, "error", err)
	}
}
