package pathguard

import (
	"io/fs"
	"os"
)

// System is the read-only view of the operating system used by Guard.
type System interface {
	Getwd() (string, error)
	LookupEnv(key string) (string, bool)
	// FullPath returns the absolute form of path as the OS resolves it.
	FullPath(path string) (string, error)
	Stat(path string) (fs.FileInfo, error)
	// OpenShared opens path for reading while allowing other readers, then
	// closes it.
	OpenShared(path string) error
	// ProbeVersion checks that file version metadata can be read.
	ProbeVersion(path string) error
}

// osSystem holds the portable part of the default System.
type osSystem struct{}

func (osSystem) Getwd() (string, error) {
	return os.Getwd()
}

func (osSystem) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

func (osSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}
