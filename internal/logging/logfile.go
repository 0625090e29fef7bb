package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/isseis/go-ti-runner/internal/safefileio"
)

// Common errors
var (
	ErrEmptyLogDirectory = errors.New("log directory cannot be empty")
	ErrLogDirNotDir      = errors.New("log path is not a directory")
)

const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600
)

// GenerateRunID returns a new UUID v4 identifying one process run.
func GenerateRunID() string {
	return uuid.New().String()
}

// LogFileName returns the per-run JSON log name "<host>_<timestamp>_<runid>.json".
func LogFileName(hostname string, at time.Time, runID string) string {
	if hostname == "" {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s.json", hostname, at.UTC().Format("20060102T150405Z"), runID)
}

// ValidateLogDir creates dir when missing and checks that it is a writable
// directory.
func ValidateLogDir(dir string) error {
	if dir == "" {
		return ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access log directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrLogDirNotDir, dir)
	}

	probe, err := os.CreateTemp(dir, ".write_test_*")
	if err != nil {
		return fmt.Errorf("cannot write to log directory %s: %w", dir, err)
	}
	name := probe.Name()
	if err := probe.Close(); err != nil {
		return fmt.Errorf("failed to close test file: %w", err)
	}
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("failed to remove test file: %w", err)
	}
	return nil
}

// OpenLogFile creates a new log file named by LogFileName inside dir. An
// existing file or symbolic link with the same name is never reused.
func OpenLogFile(dir, hostname, runID string, at time.Time) (*os.File, error) {
	path := filepath.Join(dir, LogFileName(hostname, at, runID))
	f, err := safefileio.CreateFile(path, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

// GetBuildInfo returns the VCS revision and module version embedded by the
// Go toolchain.
func GetBuildInfo() (gitCommit, buildVersion string) {
	gitCommit, buildVersion = "unknown", "dev"
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return gitCommit, buildVersion
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		buildVersion = v
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			gitCommit = s.Value
		}
	}
	return gitCommit, buildVersion
}
