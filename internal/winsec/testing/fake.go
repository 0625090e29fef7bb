// Package testing provides an instrumented fake of winsec.API.
//
// The fake hands out unique handle values, records every call, and tracks
// which resources are still outstanding so that tests can assert that each
// acquisition is matched by exactly one release.
package testing

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/isseis/go-ti-runner/internal/winsec"
)

// Op names a winsec.API method.
type Op string

// Operations recorded by FakeAPI.
const (
	OpAdjustPrivilege         Op = "AdjustPrivilege"
	OpCreateProcessSnapshot   Op = "CreateProcessSnapshot"
	OpFirstProcess            Op = "FirstProcess"
	OpNextProcess             Op = "NextProcess"
	OpOpenProcess             Op = "OpenProcess"
	OpOpenProcessToken        Op = "OpenProcessToken"
	OpOpenCurrentProcessToken Op = "OpenCurrentProcessToken"
	OpOpenCurrentThreadToken  Op = "OpenCurrentThreadToken"
	OpImpersonateLoggedOnUser Op = "ImpersonateLoggedOnUser"
	OpRevertToSelf            Op = "RevertToSelf"
	OpStringToSID             Op = "StringToSID"
	OpFreeSID                 Op = "FreeSID"
	OpTokenGroupsSize         Op = "TokenGroupsSize"
	OpAllocBuffer             Op = "AllocBuffer"
	OpFreeBuffer              Op = "FreeBuffer"
	OpQueryTokenGroups        Op = "QueryTokenGroups"
	OpOverwriteLastGroup      Op = "OverwriteLastGroup"
	OpLogonServiceUser        Op = "LogonServiceUser"
	OpCreateProcessWithToken  Op = "CreateProcessWithToken"
	OpCloseHandle             Op = "CloseHandle"
	OpIsElevatedAdministrator Op = "IsElevatedAdministrator"
)

// Privilege values as passed to AdjustPrivilege.
const (
	TCBPrivilegeValue         uint32 = 7
	DebugPrivilegeValue       uint32 = 20
	ImpersonatePrivilegeValue uint32 = 29
)

// StatusPrivilegeNotHeld is returned when a privilege is not held.
const StatusPrivilegeNotHeld uint32 = 0xC0000061

// ErrInjected is the default error returned for operations listed in Fail.
var ErrInjected = errors.New("injected failure")

// AdjustCall records one AdjustPrivilege invocation.
type AdjustCall struct {
	Value  uint32
	Thread bool
	// Impersonating reports whether the calling thread was impersonating
	// when the call was made.
	Impersonating bool
}

// LogonCall records one LogonServiceUser invocation.
type LogonCall struct {
	User   string
	Domain string
	Groups winsec.Buffer
}

// GroupOverwrite records one OverwriteLastGroup invocation.
type GroupOverwrite struct {
	Size       uint32
	SID        winsec.SID
	Attributes uint32
}

type resourceKind string

const (
	kindHandle        resourceKind = "handle"
	kindSID           resourceKind = "sid"
	kindBuffer        resourceKind = "buffer"
	kindImpersonation resourceKind = "impersonation"
)

type resource struct {
	kind  resourceKind
	value uintptr
}

// FakeAPI is an in-memory winsec.API.
type FakeAPI struct {
	mu sync.Mutex

	// Fail makes the listed operations fail with the mapped error.
	Fail map[Op]error
	// Processes is returned by every snapshot walk.
	Processes []winsec.ProcessEntry
	// ProcessPrivileges lists privilege values that can be enabled on the
	// process token. Thread-token requests succeed only while impersonating.
	ProcessPrivileges map[uint32]bool
	// GroupsSize is reported by TokenGroupsSize.
	GroupsSize uint32
	// GroupCount is the number of entries in the queried group list.
	GroupCount uint32
	// Elevated is reported by IsElevatedAdministrator.
	Elevated bool
	// PID is assigned to created processes.
	PID uint32

	Calls           []Op
	AdjustCalls     []AdjustCall
	LogonCalls      []LogonCall
	GroupOverwrites []GroupOverwrite
	ProcessRequests []winsec.ProcessRequest
	StringSIDs      []string

	nextValue      uintptr
	live           map[resource]Op
	acquired       int
	released       int
	doubleReleases int
	snapshots      map[winsec.Handle]int
}

// NewFakeAPI returns a fake where every privilege can be enabled directly,
// winlogon.exe is running and the process token has twelve groups.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Fail: make(map[Op]error),
		Processes: []winsec.ProcessEntry{
			{PID: 0, Name: "[System Process]"},
			{PID: 4, Name: "System"},
			{PID: 612, Name: "WinLogon.exe"},
			{PID: 700, Name: "lsass.exe"},
		},
		ProcessPrivileges: map[uint32]bool{
			TCBPrivilegeValue:         true,
			DebugPrivilegeValue:       true,
			ImpersonatePrivilegeValue: true,
		},
		GroupsSize: 512,
		GroupCount: 12,
		Elevated:   true,
		PID:        4242,
		nextValue:  0x100,
		live:       make(map[resource]Op),
		snapshots:  make(map[winsec.Handle]int),
	}
}

// NewFakeAPIWithoutTCB returns a fake whose process token lacks the TCB
// privilege, forcing the impersonation fallback.
func NewFakeAPIWithoutTCB() *FakeAPI {
	f := NewFakeAPI()
	delete(f.ProcessPrivileges, TCBPrivilegeValue)
	return f
}

// Acquired returns the number of resources handed out.
func (f *FakeAPI) Acquired() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acquired
}

// Released returns the number of successful releases.
func (f *FakeAPI) Released() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.released
}

// DoubleReleases returns the number of releases of unknown or already
// released resources.
func (f *FakeAPI) DoubleReleases() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doubleReleases
}

// Outstanding describes every resource that has not been released.
func (f *FakeAPI) Outstanding() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.live))
	for r, op := range f.live {
		out = append(out, fmt.Sprintf("%s 0x%x from %s", r.kind, r.value, op))
	}
	return out
}

// Impersonating reports whether the fake thread is impersonating.
func (f *FakeAPI) Impersonating() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isImpersonating()
}

// Called reports whether op was invoked at least once.
func (f *FakeAPI) Called(op Op) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if c == op {
			return true
		}
	}
	return false
}

// CallsTo returns how many times op was invoked.
func (f *FakeAPI) CallsTo(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *FakeAPI) isImpersonating() bool {
	for r := range f.live {
		if r.kind == kindImpersonation {
			return true
		}
	}
	return false
}

// begin records the call and returns the injected failure, if any.
func (f *FakeAPI) begin(op Op) error {
	f.Calls = append(f.Calls, op)
	if err, ok := f.Fail[op]; ok {
		if err == nil {
			return ErrInjected
		}
		return err
	}
	return nil
}

func (f *FakeAPI) acquire(kind resourceKind, op Op) uintptr {
	f.nextValue += 4
	f.live[resource{kind: kind, value: f.nextValue}] = op
	f.acquired++
	return f.nextValue
}

func (f *FakeAPI) release(kind resourceKind, value uintptr) error {
	key := resource{kind: kind, value: value}
	if _, ok := f.live[key]; !ok {
		f.doubleReleases++
		return fmt.Errorf("release of unknown %s 0x%x", kind, value)
	}
	delete(f.live, key)
	f.released++
	return nil
}

// AdjustPrivilege implements winsec.API.
func (f *FakeAPI) AdjustPrivilege(value uint32, thread bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	impersonating := f.isImpersonating()
	f.AdjustCalls = append(f.AdjustCalls, AdjustCall{Value: value, Thread: thread, Impersonating: impersonating})
	if err := f.begin(OpAdjustPrivilege); err != nil {
		return err
	}
	if thread {
		if !impersonating {
			return &winsec.StatusError{Status: 0xC000007C} // STATUS_NO_TOKEN
		}
		return nil
	}
	if !f.ProcessPrivileges[value] {
		return &winsec.StatusError{Status: StatusPrivilegeNotHeld}
	}
	return nil
}

// CreateProcessSnapshot implements winsec.API.
func (f *FakeAPI) CreateProcessSnapshot() (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCreateProcessSnapshot); err != nil {
		return 0, err
	}
	h := winsec.Handle(f.acquire(kindHandle, OpCreateProcessSnapshot))
	f.snapshots[h] = 0
	return h, nil
}

// FirstProcess implements winsec.API.
func (f *FakeAPI) FirstProcess(snapshot winsec.Handle) (winsec.ProcessEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpFirstProcess); err != nil {
		return winsec.ProcessEntry{}, err
	}
	f.snapshots[snapshot] = 0
	return f.walk(snapshot)
}

// NextProcess implements winsec.API.
func (f *FakeAPI) NextProcess(snapshot winsec.Handle) (winsec.ProcessEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpNextProcess); err != nil {
		return winsec.ProcessEntry{}, err
	}
	return f.walk(snapshot)
}

func (f *FakeAPI) walk(snapshot winsec.Handle) (winsec.ProcessEntry, error) {
	pos, ok := f.snapshots[snapshot]
	if !ok {
		return winsec.ProcessEntry{}, fmt.Errorf("unknown snapshot 0x%x", uintptr(snapshot))
	}
	if pos >= len(f.Processes) {
		return winsec.ProcessEntry{}, winsec.ErrNoMoreProcesses
	}
	f.snapshots[snapshot] = pos + 1
	return f.Processes[pos], nil
}

// OpenProcess implements winsec.API.
func (f *FakeAPI) OpenProcess(pid uint32, _ uint32) (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpOpenProcess); err != nil {
		return 0, err
	}
	for _, p := range f.Processes {
		if p.PID == pid {
			return winsec.Handle(f.acquire(kindHandle, OpOpenProcess)), nil
		}
	}
	return 0, fmt.Errorf("no process with pid %d", pid)
}

// OpenProcessToken implements winsec.API.
func (f *FakeAPI) OpenProcessToken(process winsec.Handle, _ uint32) (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpOpenProcessToken); err != nil {
		return 0, err
	}
	if _, ok := f.live[resource{kind: kindHandle, value: uintptr(process)}]; !ok {
		return 0, fmt.Errorf("process handle 0x%x is not open", uintptr(process))
	}
	return winsec.Handle(f.acquire(kindHandle, OpOpenProcessToken)), nil
}

// OpenCurrentProcessToken implements winsec.API.
func (f *FakeAPI) OpenCurrentProcessToken(_ uint32) (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpOpenCurrentProcessToken); err != nil {
		return 0, err
	}
	return winsec.Handle(f.acquire(kindHandle, OpOpenCurrentProcessToken)), nil
}

// OpenCurrentThreadToken implements winsec.API.
func (f *FakeAPI) OpenCurrentThreadToken(_ uint32) (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpOpenCurrentThreadToken); err != nil {
		return 0, err
	}
	if !f.isImpersonating() {
		return 0, errors.New("thread has no token")
	}
	return winsec.Handle(f.acquire(kindHandle, OpOpenCurrentThreadToken)), nil
}

// ImpersonateLoggedOnUser implements winsec.API.
func (f *FakeAPI) ImpersonateLoggedOnUser(token winsec.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpImpersonateLoggedOnUser); err != nil {
		return err
	}
	if _, ok := f.live[resource{kind: kindHandle, value: uintptr(token)}]; !ok {
		return fmt.Errorf("token handle 0x%x is not open", uintptr(token))
	}
	if f.isImpersonating() {
		return errors.New("thread is already impersonating")
	}
	f.acquire(kindImpersonation, OpImpersonateLoggedOnUser)
	return nil
}

// RevertToSelf implements winsec.API.
func (f *FakeAPI) RevertToSelf() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpRevertToSelf); err != nil {
		return err
	}
	for r := range f.live {
		if r.kind == kindImpersonation {
			return f.release(kindImpersonation, r.value)
		}
	}
	return nil
}

// StringToSID implements winsec.API.
func (f *FakeAPI) StringToSID(sid string) (winsec.SID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.StringSIDs = append(f.StringSIDs, sid)
	if err := f.begin(OpStringToSID); err != nil {
		return 0, err
	}
	if !strings.HasPrefix(sid, "S-1-") {
		return 0, fmt.Errorf("malformed SID %q", sid)
	}
	return winsec.SID(f.acquire(kindSID, OpStringToSID)), nil
}

// FreeSID implements winsec.API.
func (f *FakeAPI) FreeSID(sid winsec.SID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpFreeSID); err != nil {
		return err
	}
	return f.release(kindSID, uintptr(sid))
}

// TokenGroupsSize implements winsec.API.
func (f *FakeAPI) TokenGroupsSize(_ winsec.Handle) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpTokenGroupsSize); err != nil {
		return 0, err
	}
	return f.GroupsSize, nil
}

// AllocBuffer implements winsec.API.
func (f *FakeAPI) AllocBuffer(_ uint32) (winsec.Buffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpAllocBuffer); err != nil {
		return 0, err
	}
	return winsec.Buffer(f.acquire(kindBuffer, OpAllocBuffer)), nil
}

// FreeBuffer implements winsec.API.
func (f *FakeAPI) FreeBuffer(buf winsec.Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpFreeBuffer); err != nil {
		return err
	}
	return f.release(kindBuffer, uintptr(buf))
}

// QueryTokenGroups implements winsec.API.
func (f *FakeAPI) QueryTokenGroups(_ winsec.Handle, _ winsec.Buffer, _ uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begin(OpQueryTokenGroups)
}

// OverwriteLastGroup implements winsec.API.
func (f *FakeAPI) OverwriteLastGroup(_ winsec.Buffer, size uint32, sid winsec.SID, attributes uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpOverwriteLastGroup); err != nil {
		return err
	}
	if err := winsec.CheckGroupCount(f.GroupCount, size); err != nil {
		return err
	}
	f.GroupOverwrites = append(f.GroupOverwrites, GroupOverwrite{Size: size, SID: sid, Attributes: attributes})
	return nil
}

// LogonServiceUser implements winsec.API.
func (f *FakeAPI) LogonServiceUser(user, domain string, groups winsec.Buffer) (winsec.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogonCalls = append(f.LogonCalls, LogonCall{User: user, Domain: domain, Groups: groups})
	if err := f.begin(OpLogonServiceUser); err != nil {
		return 0, err
	}
	return winsec.Handle(f.acquire(kindHandle, OpLogonServiceUser)), nil
}

// CreateProcessWithToken implements winsec.API.
func (f *FakeAPI) CreateProcessWithToken(_ winsec.Handle, req winsec.ProcessRequest) (winsec.ProcessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ProcessRequests = append(f.ProcessRequests, req)
	if err := f.begin(OpCreateProcessWithToken); err != nil {
		return winsec.ProcessInfo{}, err
	}
	return winsec.ProcessInfo{
		Process: winsec.Handle(f.acquire(kindHandle, OpCreateProcessWithToken)),
		Thread:  winsec.Handle(f.acquire(kindHandle, OpCreateProcessWithToken)),
		PID:     f.PID,
	}, nil
}

// CloseHandle implements winsec.API.
func (f *FakeAPI) CloseHandle(h winsec.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpCloseHandle); err != nil {
		return err
	}
	delete(f.snapshots, h)
	return f.release(kindHandle, uintptr(h))
}

// IsElevatedAdministrator implements winsec.API.
func (f *FakeAPI) IsElevatedAdministrator() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(OpIsElevatedAdministrator); err != nil {
		return false, err
	}
	return f.Elevated, nil
}

var _ winsec.API = (*FakeAPI)(nil)
