package elevation

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/isseis/go-ti-runner/internal/winsec"
)

// TrustedInstallerSID is the service SID of the TrustedInstaller service.
const TrustedInstallerSID = "S-1-5-80-956008885-3418522649-1831038044-1853292631-2271478464"

// maxTokenGroupsSize rejects group buffers no real token produces.
const maxTokenGroupsSize = 256 * 1024

const (
	serviceLogonUser   = "SYSTEM"
	serviceLogonDomain = "NT AUTHORITY"
)

// TokenForge produces a primary token for a SYSTEM service logon whose group
// set contains the TrustedInstaller SID.
type TokenForge struct {
	api        winsec.API
	privileges *PrivilegeSwitch
	bridge     *ImpersonationBridge
	logger     *slog.Logger
	exit       ExitFunc
}

// NewTokenForge creates a TokenForge. A nil exit defaults to os.Exit.
func NewTokenForge(api winsec.API, logger *slog.Logger, exit ExitFunc) *TokenForge {
	if logger == nil {
		logger = slog.Default()
	}
	if exit == nil {
		exit = os.Exit
	}
	return &TokenForge{
		api:        api,
		privileges: NewPrivilegeSwitch(api, logger),
		bridge:     NewImpersonationBridge(api, logger),
		logger:     logger,
		exit:       exit,
	}
}

// Mint returns a new token owned by the caller. Every intermediate resource
// is released before Mint returns, whether it succeeds or not.
func (f *TokenForge) Mint() (winsec.Owned[winsec.Handle], error) {
	// Impersonation is per thread.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	revert, err := f.acquireTCB()
	if err != nil {
		return winsec.Owned[winsec.Handle]{}, err
	}

	sidValue, err := f.api.StringToSID(TrustedInstallerSID)
	if err != nil {
		f.endImpersonation(revert, "sid conversion failure")
		return winsec.Owned[winsec.Handle]{}, &Error{Stage: StageSID, Target: TrustedInstallerSID, Err: err}
	}
	sid := winsec.Own(sidValue, f.api.FreeSID)

	// Revert before freeing the SID.
	defer func() {
		f.endImpersonation(revert, "token minting")
		closeLogged(f.logger, &sid, "sid")
	}()

	return f.logon(sid.Get(), revert != nil)
}

// acquireTCB enables the TCB privilege. When the process token lacks it, the
// thread borrows the system identity and enables it there; the returned
// revert is then non-nil and must be passed to endImpersonation.
func (f *TokenForge) acquireTCB() (revert func() error, err error) {
	directErr := f.privileges.Enable(TCBPrivilege, false)
	if directErr == nil {
		return nil, nil
	}
	f.logger.Debug("TCB privilege unavailable on process token, borrowing system identity",
		"error", directErr)

	if err := f.privileges.Enable(DebugPrivilege, false); err != nil {
		return nil, err
	}

	revert, err = f.bridge.BorrowSystemIdentity()
	if err != nil {
		return nil, err
	}

	if err := f.privileges.Enable(TCBPrivilege, true); err != nil {
		f.endImpersonation(revert, "thread privilege failure")
		return nil, err
	}
	return revert, nil
}

// logon builds the modified group set from the current token and performs
// the service logon. The group buffer is freed before the queried token is
// closed.
func (f *TokenForge) logon(sid winsec.SID, impersonating bool) (winsec.Owned[winsec.Handle], error) {
	var none winsec.Owned[winsec.Handle]

	var (
		current winsec.Handle
		err     error
	)
	if impersonating {
		current, err = f.api.OpenCurrentThreadToken(winsec.TokenQuery)
	} else {
		current, err = f.api.OpenCurrentProcessToken(winsec.TokenQuery)
	}
	if err != nil {
		return none, &Error{Stage: StageTokenGroups, Target: "current token", Err: err}
	}
	currentOwner := winsec.Own(current, f.api.CloseHandle)
	defer closeLogged(f.logger, &currentOwner, "queried token")

	groups, size, err := f.queryGroups(current)
	if err != nil {
		return none, err
	}
	defer closeLogged(f.logger, &groups, "token groups")

	if err := f.api.OverwriteLastGroup(groups.Get(), size, sid, winsec.GroupOwner|winsec.GroupEnabled); err != nil {
		return none, &Error{Stage: StageTokenGroups, Target: "current token", Err: err}
	}

	token, err := f.api.LogonServiceUser(serviceLogonUser, serviceLogonDomain, groups.Get())
	if err != nil {
		return none, &Error{Stage: StageLogon, Target: serviceLogonDomain + `\` + serviceLogonUser, Err: err}
	}

	f.logger.Debug("Service logon succeeded", "impersonated", impersonating)
	return winsec.Own(token, f.api.CloseHandle), nil
}

// queryGroups reads the TokenGroups of token into a buffer owned by the
// caller, using the size reported by a first query. The buffer size is
// returned with it.
func (f *TokenForge) queryGroups(token winsec.Handle) (winsec.Owned[winsec.Buffer], uint32, error) {
	var none winsec.Owned[winsec.Buffer]

	size, err := f.api.TokenGroupsSize(token)
	if err != nil {
		return none, 0, &Error{Stage: StageTokenGroups, Target: "current token", Err: err}
	}
	if size == 0 || size > maxTokenGroupsSize {
		return none, 0, &Error{
			Stage:  StageTokenGroups,
			Target: "current token",
			Err:    fmt.Errorf("%w: %d bytes", ErrImplausibleGroupSize, size),
		}
	}

	buf, err := f.api.AllocBuffer(size)
	if err != nil {
		return none, 0, &Error{Stage: StageTokenGroups, Target: "current token", Err: err}
	}
	groups := winsec.Own(buf, f.api.FreeBuffer)

	if err := f.api.QueryTokenGroups(token, buf, size); err != nil {
		closeLogged(f.logger, &groups, "token groups")
		return none, 0, &Error{Stage: StageTokenGroups, Target: "current token", Err: err}
	}
	return groups.Take(), size, nil
}

// endImpersonation reverts the thread to its own token. A revert failure
// leaves the thread running as SYSTEM and triggers an emergency shutdown.
func (f *TokenForge) endImpersonation(revert func() error, shutdownContext string) {
	if revert == nil {
		return
	}
	if err := revert(); err != nil {
		emergencyShutdown(f.logger, f.exit, fmt.Errorf("%w: %w", ErrRevertFailed, err), shutdownContext)
	}
}
