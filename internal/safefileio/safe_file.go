package safefileio

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// MaxFileSize is the default limit for ReadFile.
const MaxFileSize = 1 << 20

// ReadFile reads a regular file of at most MaxFileSize bytes.
func ReadFile(filePath string) ([]byte, error) {
	return ReadFileLimit(filePath, MaxFileSize)
}

// ReadFileLimit reads a regular file of at most limit bytes. The path must
// not be a symbolic link, and the opened file must be the one checked.
func ReadFileLimit(filePath string, limit int64) ([]byte, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	before, err := os.Lstat(absPath)
	if err != nil {
		return nil, err
	}
	if before.Mode()&fs.ModeSymlink != 0 {
		return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
	}

	// #nosec G304 - absPath was checked with Lstat and is re-verified below
	file, err := os.Open(absPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	after, err := validateFile(file, absPath)
	if err != nil {
		return nil, err
	}
	if !os.SameFile(before, after) {
		return nil, fmt.Errorf("%w: %s", ErrFileChanged, absPath)
	}
	if after.Size() > limit {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, absPath)
	}

	content, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(content)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, absPath)
	}
	return content, nil
}

// CreateFile creates a new file for writing. It fails when the path exists,
// including as a symbolic link, or when its directory is a symbolic link.
func CreateFile(filePath string, perm os.FileMode) (*os.File, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}
	if err := checkDirectory(filepath.Dir(absPath)); err != nil {
		return nil, err
	}

	// O_EXCL refuses existing entries, symbolic links included.
	// #nosec G304 - the directory was checked above
	file, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, absPath)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func checkDirectory(dir string) error {
	info, err := os.Lstat(dir)
	if err != nil {
		return err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("%w: %s", ErrIsSymlink, dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: not a directory: %s", ErrInvalidFilePath, dir)
	}
	return nil
}

// validateFile checks if the file is a regular file and returns its FileInfo
func validateFile(file *os.File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: not a regular file: %s", ErrInvalidFilePath, filePath)
	}
	return fileInfo, nil
}
