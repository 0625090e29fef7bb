// Package safefileio reads and creates small files without following
// symbolic links, so a replaced config or log path cannot redirect I/O.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path is a symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrFileTooLarge indicates that the file is too large.
	ErrFileTooLarge = errors.New("file too large")

	// ErrFileExists indicates that the file already exists.
	ErrFileExists = errors.New("file exists")

	// ErrFileChanged indicates that the path was swapped between check and open.
	ErrFileChanged = errors.New("file changed while opening")
)
