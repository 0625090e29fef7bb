package elevation

import (
	"fmt"
	"log/slog"

	"github.com/isseis/go-ti-runner/internal/winsec"
)

// Privilege is the name of a Windows privilege.
type Privilege string

// Privileges that may be enabled.
const (
	TCBPrivilege         Privilege = "SeTcbPrivilege"
	DebugPrivilege       Privilege = "SeDebugPrivilege"
	ImpersonatePrivilege Privilege = "SeImpersonatePrivilege"
)

// allowedPrivileges is compiled in and never configurable.
var allowedPrivileges = map[Privilege]uint32{
	TCBPrivilege:         7,
	DebugPrivilege:       20,
	ImpersonatePrivilege: 29,
}

// PrivilegeSwitch enables allow-listed privileges on the process or thread
// token. It never disables a privilege.
type PrivilegeSwitch struct {
	api    winsec.API
	logger *slog.Logger
}

// NewPrivilegeSwitch creates a PrivilegeSwitch.
func NewPrivilegeSwitch(api winsec.API, logger *slog.Logger) *PrivilegeSwitch {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrivilegeSwitch{api: api, logger: logger}
}

// Enable turns on name for the current thread's token when thread is true,
// otherwise for the process token.
func (s *PrivilegeSwitch) Enable(name Privilege, thread bool) error {
	if !Allowed(name) {
		return fmt.Errorf("%w: %q", ErrPrivilegeNotAllowed, string(name))
	}
	value := allowedPrivileges[name]

	scope := "process"
	if thread {
		scope = "thread"
	}

	if err := s.api.AdjustPrivilege(value, thread); err != nil {
		return &Error{Stage: StagePrivilege, Target: string(name), Err: err}
	}

	s.logger.Debug("Privilege enabled", "privilege", string(name), "scope", scope)
	return nil
}

// Allowed reports whether name is in the allow-list.
func Allowed(name Privilege) bool {
	_, ok := allowedPrivileges[name]
	return ok
}
