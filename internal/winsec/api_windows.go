//go:build windows

package winsec

import (
	"errors"
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	logon32LogonService     = 5
	logon32ProviderWinNT50  = 3
	localAllocZeroInitFixed = 0x0040 // LPTR
)

var (
	modntdll    = windows.NewLazySystemDLL("ntdll.dll")
	modadvapi32 = windows.NewLazySystemDLL("advapi32.dll")

	rtlAdjustPrivilege      = &binding{proc: modntdll.NewProc("RtlAdjustPrivilege")}
	logonUserExExW          = &binding{proc: modadvapi32.NewProc("LogonUserExExW")}
	createProcessWithTokenW = &binding{proc: modadvapi32.NewProc("CreateProcessWithTokenW")}
	impersonateLoggedOnUser = &binding{proc: modadvapi32.NewProc("ImpersonateLoggedOnUser")}
)

// binding is a dynamically resolved entry point. Resolution happens once per
// process; the outcome, success or failure, is fixed afterwards.
type binding struct {
	proc *windows.LazyProc
	once sync.Once
	err  error
}

func (b *binding) resolve() error {
	b.once.Do(func() {
		if err := b.proc.Find(); err != nil {
			b.err = fmt.Errorf("%w: %s: %v", ErrBindingUnavailable, b.proc.Name, err)
		}
	})
	return b.err
}

// callBool invokes a BOOL-returning function and converts a FALSE result
// into the thread's last error.
func (b *binding) callBool(args ...uintptr) error {
	if err := b.resolve(); err != nil {
		return err
	}
	r1, _, lastErr := b.proc.Call(args...)
	if r1 == 0 {
		return lastError(lastErr)
	}
	return nil
}

// callStatus invokes an NTSTATUS-returning function.
func (b *binding) callStatus(args ...uintptr) error {
	if err := b.resolve(); err != nil {
		return err
	}
	r1, _, _ := b.proc.Call(args...)
	if status := uint32(r1); int32(status) < 0 {
		return &StatusError{Status: status}
	}
	return nil
}

func lastError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) && errno == 0 {
		return syscall.EINVAL
	}
	return err
}

func boolArg(b bool) uintptr {
	if b {
		return 1
	}
	return 0
}

type systemAPI struct{}

// NewSystemAPI returns the API backed by the running Windows system.
func NewSystemAPI() API {
	return systemAPI{}
}

func (systemAPI) AdjustPrivilege(value uint32, thread bool) error {
	var previous byte
	return rtlAdjustPrivilege.callStatus(
		uintptr(value),
		1,
		boolArg(thread),
		uintptr(unsafe.Pointer(&previous)),
	)
}

func (systemAPI) CreateProcessSnapshot() (Handle, error) {
	h, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (systemAPI) FirstProcess(snapshot Handle) (ProcessEntry, error) {
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32First(windows.Handle(snapshot), &entry); err != nil {
		return ProcessEntry{}, snapshotError(err)
	}
	return toProcessEntry(&entry), nil
}

func (systemAPI) NextProcess(snapshot Handle) (ProcessEntry, error) {
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))
	if err := windows.Process32Next(windows.Handle(snapshot), &entry); err != nil {
		return ProcessEntry{}, snapshotError(err)
	}
	return toProcessEntry(&entry), nil
}

func snapshotError(err error) error {
	if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return ErrNoMoreProcesses
	}
	return err
}

func toProcessEntry(entry *windows.ProcessEntry32) ProcessEntry {
	return ProcessEntry{
		PID:  entry.ProcessID,
		Name: windows.UTF16ToString(entry.ExeFile[:]),
	}
}

func (systemAPI) OpenProcess(pid uint32, access uint32) (Handle, error) {
	h, err := windows.OpenProcess(access, false, pid)
	if err != nil {
		return 0, err
	}
	return Handle(h), nil
}

func (systemAPI) OpenProcessToken(process Handle, access uint32) (Handle, error) {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.Handle(process), access, &token); err != nil {
		return 0, err
	}
	return Handle(token), nil
}

func (systemAPI) OpenCurrentProcessToken(access uint32) (Handle, error) {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), access, &token); err != nil {
		return 0, err
	}
	return Handle(token), nil
}

func (systemAPI) OpenCurrentThreadToken(access uint32) (Handle, error) {
	var token windows.Token
	if err := windows.OpenThreadToken(windows.CurrentThread(), access, false, &token); err != nil {
		return 0, err
	}
	return Handle(token), nil
}

func (systemAPI) ImpersonateLoggedOnUser(token Handle) error {
	return impersonateLoggedOnUser.callBool(uintptr(token))
}

func (systemAPI) RevertToSelf() error {
	return windows.RevertToSelf()
}

func (systemAPI) StringToSID(sid string) (SID, error) {
	p, err := windows.UTF16PtrFromString(sid)
	if err != nil {
		return 0, err
	}
	var out *windows.SID
	if err := windows.ConvertStringSidToSid(p, &out); err != nil {
		return 0, err
	}
	return SID(unsafe.Pointer(out)), nil
}

// FreeSID releases a SID returned by StringToSID. ConvertStringSidToSid
// allocates with LocalAlloc, so LocalFree is the matching release.
func (systemAPI) FreeSID(sid SID) error {
	_, err := windows.LocalFree(windows.Handle(sid))
	return err
}

func (systemAPI) TokenGroupsSize(token Handle) (uint32, error) {
	var size uint32
	err := windows.GetTokenInformation(windows.Token(token), windows.TokenGroups, nil, 0, &size)
	if err != nil && !errors.Is(err, windows.ERROR_INSUFFICIENT_BUFFER) {
		return 0, err
	}
	return size, nil
}

func (systemAPI) AllocBuffer(size uint32) (Buffer, error) {
	ptr, err := windows.LocalAlloc(localAllocZeroInitFixed, size)
	if err != nil {
		return 0, err
	}
	return Buffer(ptr), nil
}

func (systemAPI) FreeBuffer(buf Buffer) error {
	_, err := windows.LocalFree(windows.Handle(buf))
	return err
}

func (systemAPI) QueryTokenGroups(token Handle, buf Buffer, size uint32) error {
	var returned uint32
	return windows.GetTokenInformation(
		windows.Token(token),
		windows.TokenGroups,
		(*byte)(pointerAt(uintptr(buf))),
		size,
		&returned,
	)
}

func (systemAPI) OverwriteLastGroup(buf Buffer, size uint32, sid SID, attributes uint32) error {
	if uint64(size) < TokenGroupsBytes(0) {
		return fmt.Errorf("%w: buffer holds %d bytes", ErrGroupCountExceedsBuffer, size)
	}
	groups := (*windows.Tokengroups)(pointerAt(uintptr(buf)))
	if err := CheckGroupCount(groups.GroupCount, size); err != nil {
		return err
	}
	entries := groups.AllGroups()
	last := &entries[len(entries)-1]
	last.Sid = (*windows.SID)(pointerAt(uintptr(sid)))
	last.Attributes = attributes
	return nil
}

// pointerAt turns the address of LocalAlloc'd memory back into a pointer.
// The memory lives outside the Go heap, so the collector never moves it.
func pointerAt(addr uintptr) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&addr))
}

func (systemAPI) LogonServiceUser(user, domain string, groups Buffer) (Handle, error) {
	userPtr, err := windows.UTF16PtrFromString(user)
	if err != nil {
		return 0, err
	}
	domainPtr, err := windows.UTF16PtrFromString(domain)
	if err != nil {
		return 0, err
	}

	var token windows.Handle
	err = logonUserExExW.callBool(
		uintptr(unsafe.Pointer(userPtr)),
		uintptr(unsafe.Pointer(domainPtr)),
		0, // no password
		logon32LogonService,
		logon32ProviderWinNT50,
		uintptr(groups),
		uintptr(unsafe.Pointer(&token)),
		0, 0, 0, 0,
	)
	if err != nil {
		return 0, err
	}
	return Handle(token), nil
}

func (systemAPI) CreateProcessWithToken(token Handle, req ProcessRequest) (ProcessInfo, error) {
	// CreateProcessWithTokenW may write to the command line buffer.
	cmdline, err := windows.UTF16FromString(req.CommandLine)
	if err != nil {
		return ProcessInfo{}, err
	}
	desktop, err := windows.UTF16PtrFromString(req.Desktop)
	if err != nil {
		return ProcessInfo{}, err
	}

	si := windows.StartupInfo{Desktop: desktop}
	si.Cb = uint32(unsafe.Sizeof(si))
	var pi windows.ProcessInformation

	err = createProcessWithTokenW.callBool(
		uintptr(token),
		0, // logon flags
		0, // application name taken from the command line
		uintptr(unsafe.Pointer(&cmdline[0])),
		uintptr(req.CreationFlags),
		0, // inherit environment
		0, // inherit current directory
		uintptr(unsafe.Pointer(&si)),
		uintptr(unsafe.Pointer(&pi)),
	)
	if err != nil {
		return ProcessInfo{}, err
	}
	return ProcessInfo{
		Process: Handle(pi.Process),
		Thread:  Handle(pi.Thread),
		PID:     pi.ProcessId,
	}, nil
}

func (systemAPI) CloseHandle(h Handle) error {
	return windows.CloseHandle(windows.Handle(h))
}

func (systemAPI) IsElevatedAdministrator() (bool, error) {
	admins, err := windows.CreateWellKnownSid(windows.WinBuiltinAdministratorsSid)
	if err != nil {
		return false, err
	}
	member, err := windows.Token(0).IsMember(admins)
	if err != nil {
		return false, err
	}
	if !member {
		return false, nil
	}
	return windows.GetCurrentProcessToken().IsElevated(), nil
}
