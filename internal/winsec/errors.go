package winsec

import (
	"errors"
	"fmt"
)

// Standard errors
var (
	// ErrPlatformNotSupported is returned by every primitive on platforms
	// other than Windows.
	ErrPlatformNotSupported = errors.New("operation requires Windows")

	// ErrBindingUnavailable is returned when a dynamically resolved entry
	// point could not be found in its system DLL.
	ErrBindingUnavailable = errors.New("OS entry point unavailable")

	// ErrNoMoreProcesses marks the end of a process snapshot walk.
	ErrNoMoreProcesses = errors.New("no more processes in snapshot")

	// ErrEmptyTokenGroups is returned when a token group list has no entry
	// that could be overwritten.
	ErrEmptyTokenGroups = errors.New("token group list is empty")

	// ErrGroupCountExceedsBuffer is returned when a group list reports more
	// entries than its buffer can hold.
	ErrGroupCountExceedsBuffer = errors.New("token group count exceeds buffer")
)

// StatusError carries a failing NTSTATUS value.
type StatusError struct {
	Status uint32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("NTSTATUS 0x%08X", e.Status)
}
