//go:build windows

package pathguard

import (
	"golang.org/x/sys/windows"
)

type windowsSystem struct {
	osSystem
}

// NewSystem returns the System backed by the Win32 file APIs.
func NewSystem() System {
	return windowsSystem{}
}

func (windowsSystem) FullPath(path string) (string, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", err
	}
	buf := make([]uint16, windows.MAX_PATH+1)
	for {
		n, err := windows.GetFullPathName(p, uint32(len(buf)), &buf[0], nil)
		if err != nil {
			return "", err
		}
		if n < uint32(len(buf)) {
			return windows.UTF16ToString(buf[:n]), nil
		}
		// n is the required size including the terminator.
		buf = make([]uint16, n)
	}
}

func (windowsSystem) OpenShared(path string) error {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0)
	if err != nil {
		return err
	}
	return windows.CloseHandle(h)
}

func (windowsSystem) ProbeVersion(path string) error {
	_, err := windows.GetFileVersionInfoSize(path, nil)
	return err
}
