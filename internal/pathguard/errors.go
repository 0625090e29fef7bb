package pathguard

import (
	"errors"
	"fmt"
)

// Rejection causes
var (
	ErrEmptyPath           = errors.New("path is empty")
	ErrPathTooLong         = errors.New("path exceeds maximum length")
	ErrTraversal           = errors.New("path contains a directory traversal sequence")
	ErrForbiddenCharacter  = errors.New("path contains a forbidden character")
	ErrCanonicalization    = errors.New("path cannot be canonicalized")
	ErrNotFound            = errors.New("executable not found")
	ErrNotAFile            = errors.New("path is not a regular file")
	ErrExtensionNotAllowed = errors.New("file extension is not allowed")
	ErrUnreadable          = errors.New("file cannot be opened for reading")
	ErrNoVersionInfo       = errors.New("file version information cannot be read")
)

// Stage names the validation step that rejected a path.
type Stage string

// Validation stages in the order they run.
const (
	StageLength         Stage = "length"
	StageRawCheck       Stage = "raw_check"
	StageNormalize      Stage = "normalize"
	StageCanonicalize   Stage = "canonicalize"
	StageCanonicalCheck Stage = "canonical_check"
	StageResolve        Stage = "resolve"
	StageExtension      Stage = "extension"
	StageAccess         Stage = "access"
)

// RejectionError reports why a path was rejected.
type RejectionError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("path '%s' rejected at %s: %v", e.Path, e.Stage, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func reject(stage Stage, path string, err error) error {
	return &RejectionError{Stage: stage, Path: path, Err: err}
}
