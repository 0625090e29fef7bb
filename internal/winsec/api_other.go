//go:build !windows

package winsec

type unsupportedAPI struct{}

// NewSystemAPI returns an API whose every primitive fails with
// ErrPlatformNotSupported.
func NewSystemAPI() API {
	return unsupportedAPI{}
}

func (unsupportedAPI) AdjustPrivilege(uint32, bool) error { return ErrPlatformNotSupported }

func (unsupportedAPI) CreateProcessSnapshot() (Handle, error) { return 0, ErrPlatformNotSupported }

func (unsupportedAPI) FirstProcess(Handle) (ProcessEntry, error) {
	return ProcessEntry{}, ErrPlatformNotSupported
}

func (unsupportedAPI) NextProcess(Handle) (ProcessEntry, error) {
	return ProcessEntry{}, ErrPlatformNotSupported
}

func (unsupportedAPI) OpenProcess(uint32, uint32) (Handle, error) { return 0, ErrPlatformNotSupported }

func (unsupportedAPI) OpenProcessToken(Handle, uint32) (Handle, error) {
	return 0, ErrPlatformNotSupported
}

func (unsupportedAPI) OpenCurrentProcessToken(uint32) (Handle, error) {
	return 0, ErrPlatformNotSupported
}

func (unsupportedAPI) OpenCurrentThreadToken(uint32) (Handle, error) {
	return 0, ErrPlatformNotSupported
}

func (unsupportedAPI) ImpersonateLoggedOnUser(Handle) error { return ErrPlatformNotSupported }

func (unsupportedAPI) RevertToSelf() error { return ErrPlatformNotSupported }

func (unsupportedAPI) StringToSID(string) (SID, error) { return 0, ErrPlatformNotSupported }

func (unsupportedAPI) FreeSID(SID) error { return ErrPlatformNotSupported }

func (unsupportedAPI) TokenGroupsSize(Handle) (uint32, error) { return 0, ErrPlatformNotSupported }

func (unsupportedAPI) AllocBuffer(uint32) (Buffer, error) { return 0, ErrPlatformNotSupported }

func (unsupportedAPI) FreeBuffer(Buffer) error { return ErrPlatformNotSupported }

func (unsupportedAPI) QueryTokenGroups(Handle, Buffer, uint32) error {
	return ErrPlatformNotSupported
}

func (unsupportedAPI) OverwriteLastGroup(Buffer, uint32, SID, uint32) error {
	return ErrPlatformNotSupported
}

func (unsupportedAPI) LogonServiceUser(string, string, Buffer) (Handle, error) {
	return 0, ErrPlatformNotSupported
}

func (unsupportedAPI) CreateProcessWithToken(Handle, ProcessRequest) (ProcessInfo, error) {
	return ProcessInfo{}, ErrPlatformNotSupported
}

func (unsupportedAPI) CloseHandle(Handle) error { return ErrPlatformNotSupported }

func (unsupportedAPI) IsElevatedAdministrator() (bool, error) { return false, ErrPlatformNotSupported }
