//go:build !windows

package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
)

type portableSystem struct {
	osSystem
}

// NewSystem returns the System backed by the os package. Without version
// resources to probe, ProbeVersion accepts any non-empty regular file.
func NewSystem() System {
	return portableSystem{}
}

func (portableSystem) FullPath(path string) (string, error) {
	return filepath.Abs(path)
}

func (portableSystem) OpenShared(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func (portableSystem) ProbeVersion(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("%s: no version resource", path)
	}
	return nil
}
