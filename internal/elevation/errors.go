// Package elevation acquires a TrustedInstaller token and launches a process
// with it.
package elevation

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/isseis/go-ti-runner/internal/winsec"
)

// Standard errors
var (
	ErrPrivilegeNotAllowed  = errors.New("privilege is not in the allow-list")
	ErrProcessNotFound      = errors.New("process not found")
	ErrImplausibleGroupSize = errors.New("implausible token group size")
	ErrRevertFailed         = errors.New("failed to revert impersonation")
)

// Stage identifies the step of an elevation attempt that failed.
type Stage string

// Elevation stages
const (
	StagePrivilege     Stage = "enable_privilege"
	StageImpersonation Stage = "impersonate_system"
	StageSID           Stage = "convert_sid"
	StageTokenGroups   Stage = "query_token_groups"
	StageLogon         Stage = "service_logon"
	StageCreateProcess Stage = "create_process"
)

// Error describes a failed elevation step. Target names the privilege,
// process or executable the step operated on.
type Error struct {
	Stage  Stage
	Target string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("elevation stage '%s' failed for '%s': %v", e.Stage, e.Target, e.Err)
	if code := ErrorCode(e.Err); code != 0 {
		msg += fmt.Sprintf(" (Error Code: %d)", code)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode extracts the Win32 error or NTSTATUS code carried by err, or 0.
func ErrorCode(err error) uint32 {
	var status *winsec.StatusError
	if errors.As(err, &status) {
		return status.Status
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
