// Package winsec binds the Windows security and process primitives used to
// mint a TrustedInstaller token and start a process with it.
//
// The primitives are exposed through the API interface so that the elevation
// logic can run against an instrumented fake in tests. Handles, SIDs and
// buffers are opaque values; their ownership is tracked with Owned.
package winsec

// Handle is an opaque kernel object handle (process, thread, token, snapshot).
type Handle uintptr

// SID is an opaque pointer to an OS-allocated security identifier.
type SID uintptr

// Buffer is an opaque pointer to OS-allocated memory.
type Buffer uintptr

// Access rights and flags used by the elevation sequence. The values match
// the Windows SDK headers.
const (
	ProcessQueryInformation uint32 = 0x0400

	TokenDuplicate   uint32 = 0x0002
	TokenImpersonate uint32 = 0x0004
	TokenQuery       uint32 = 0x0008

	GroupEnabled uint32 = 0x00000004
	GroupOwner   uint32 = 0x00000008

	CreateNewConsole uint32 = 0x00000010
)

// ProcessEntry is one row of a process snapshot.
type ProcessEntry struct {
	PID  uint32
	Name string
}

// ProcessRequest describes a process to create with a token.
type ProcessRequest struct {
	// CommandLine is passed verbatim; the application name is left empty.
	CommandLine   string
	Desktop       string
	CreationFlags uint32
}

// ProcessInfo holds the handles returned by process creation. The caller
// owns both handles.
type ProcessInfo struct {
	Process Handle
	Thread  Handle
	PID     uint32
}

// API is the set of OS primitives the elevation engine depends on.
//
// Every method that returns a Handle, SID or Buffer transfers ownership of it
// to the caller, who must release it with CloseHandle, FreeSID or FreeBuffer
// respectively.
type API interface {
	// AdjustPrivilege enables the privilege identified by value on the
	// thread token (thread == true) or the process token. It never disables.
	AdjustPrivilege(value uint32, thread bool) error

	CreateProcessSnapshot() (Handle, error)
	// FirstProcess and NextProcess walk a snapshot. The end of the walk is
	// reported as ErrNoMoreProcesses.
	FirstProcess(snapshot Handle) (ProcessEntry, error)
	NextProcess(snapshot Handle) (ProcessEntry, error)

	OpenProcess(pid uint32, access uint32) (Handle, error)
	OpenProcessToken(process Handle, access uint32) (Handle, error)
	OpenCurrentProcessToken(access uint32) (Handle, error)
	OpenCurrentThreadToken(access uint32) (Handle, error)

	// ImpersonateLoggedOnUser makes the calling OS thread impersonate token.
	// A successful call must be paired with RevertToSelf.
	ImpersonateLoggedOnUser(token Handle) error
	RevertToSelf() error

	StringToSID(sid string) (SID, error)
	FreeSID(sid SID) error

	// TokenGroupsSize returns the buffer size needed for the token's group
	// list (the first half of the size-then-fetch pattern).
	TokenGroupsSize(token Handle) (uint32, error)
	AllocBuffer(size uint32) (Buffer, error)
	FreeBuffer(buf Buffer) error
	QueryTokenGroups(token Handle, buf Buffer, size uint32) error
	// OverwriteLastGroup replaces the SID and attributes of the last entry
	// of the group list held in the size bytes at buf. It fails with
	// ErrEmptyTokenGroups when the list has no entries and with
	// ErrGroupCountExceedsBuffer when the reported count does not fit.
	OverwriteLastGroup(buf Buffer, size uint32, sid SID, attributes uint32) error

	// LogonServiceUser performs a service logon for user@domain stamping
	// the given group list onto the new token.
	LogonServiceUser(user, domain string, groups Buffer) (Handle, error)

	CreateProcessWithToken(token Handle, req ProcessRequest) (ProcessInfo, error)

	CloseHandle(h Handle) error

	// IsElevatedAdministrator reports whether the calling process belongs to
	// the local Administrators group and runs with an elevated token.
	IsElevatedAdministrator() (bool, error)
}
