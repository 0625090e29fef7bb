// Package pathguard validates the executable path handed to the elevated
// launcher. A path that passes is absolute, canonical, free of traversal
// sequences and shell metacharacters, has an allowed extension and refers to
// a readable file.
package pathguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"
)

// MaxPathLength is the limit in UTF-16 code units, MAX_PATH minus the
// terminator.
const MaxPathLength = 259

const forbiddenCharacters = `<>"|?*`

// defaultExtension is appended to bare names during the PATH search.
const defaultExtension = ".exe"

var traversalSequences = []string{"../", `..\`, "/..", `\..`}

var allowedExtensions = map[string]struct{}{
	".exe": {},
	".bat": {},
	".cmd": {},
	".com": {},
}

// Guard validates executable paths.
type Guard struct {
	sys       System
	separator byte
}

// New creates a Guard using sys for every filesystem and environment query.
func New(sys System) *Guard {
	return &Guard{sys: sys, separator: os.PathSeparator}
}

// Validate returns the canonical form of path or a *RejectionError. It only
// reads from the filesystem, and Validate(Validate(p)) yields the same path.
func (g *Guard) Validate(path string) (string, error) {
	if path == "" {
		return "", reject(StageLength, path, ErrEmptyPath)
	}
	if utf16Len(path) > MaxPathLength {
		return "", reject(StageLength, path, ErrPathTooLong)
	}
	if err := checkContent(path); err != nil {
		return "", reject(StageRawCheck, path, err)
	}

	normalized, err := g.normalize(path)
	if err != nil {
		return "", reject(StageNormalize, path, err)
	}
	canonical, err := g.canonicalize(normalized)
	if err != nil {
		return "", err
	}
	return g.validateCanonical(canonical, true)
}

// validateCanonical runs every check after canonicalization. When the path
// does not exist and search is set, the filename is looked up in PATH and
// the hit is validated once more without searching.
func (g *Guard) validateCanonical(canonical string, search bool) (string, error) {
	if err := checkContent(canonical); err != nil {
		return "", reject(StageCanonicalCheck, canonical, err)
	}

	info, err := g.sys.Stat(canonical)
	if err != nil {
		if !search {
			return "", reject(StageResolve, canonical, fmt.Errorf("%w: %w", ErrNotFound, err))
		}
		found, searchErr := g.searchPath(canonical)
		if searchErr != nil {
			return "", searchErr
		}
		return g.validateCanonical(found, false)
	}
	if info.IsDir() {
		return "", reject(StageResolve, canonical, ErrNotAFile)
	}

	if !HasAllowedExtension(canonical) {
		return "", reject(StageExtension, canonical, ErrExtensionNotAllowed)
	}

	if err := g.sys.OpenShared(canonical); err != nil {
		return "", reject(StageAccess, canonical, fmt.Errorf("%w: %w", ErrUnreadable, err))
	}
	if err := g.sys.ProbeVersion(canonical); err != nil {
		return "", reject(StageAccess, canonical, fmt.Errorf("%w: %w", ErrNoVersionInfo, err))
	}
	return canonical, nil
}

// normalize trims whitespace, converts forward slashes to the platform
// separator, collapses repeated separators and makes the path absolute
// relative to the working directory.
func (g *Guard) normalize(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", ErrEmptyPath
	}
	if g.separator != '/' {
		p = strings.ReplaceAll(p, "/", string(g.separator))
	}
	p = collapseSeparators(p, g.separator)

	if !g.rooted(p) {
		wd, err := g.sys.Getwd()
		if err != nil {
			return "", err
		}
		p = strings.TrimRight(wd, string(g.separator)) + string(g.separator) + p
	}
	return p, nil
}

func (g *Guard) rooted(p string) bool {
	return filepath.IsAbs(p) || filepath.VolumeName(p) != "" || p[0] == g.separator
}

func (g *Guard) canonicalize(path string) (string, error) {
	canonical, err := g.sys.FullPath(path)
	if err != nil {
		return "", reject(StageCanonicalize, path, fmt.Errorf("%w: %w", ErrCanonicalization, err))
	}
	if canonical == "" {
		return "", reject(StageCanonicalize, path, ErrCanonicalization)
	}
	if utf16Len(canonical) > MaxPathLength {
		return "", reject(StageCanonicalize, canonical, ErrPathTooLong)
	}
	return canonical, nil
}

// searchPath looks for the filename of missing in each PATH directory.
func (g *Guard) searchPath(missing string) (string, error) {
	name := filepath.Base(missing)
	if filepath.Ext(name) == "" {
		name += defaultExtension
	}

	pathEnv, _ := g.sys.LookupEnv("PATH")
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := g.sys.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		return g.canonicalize(candidate)
	}
	return "", reject(StageResolve, missing, fmt.Errorf("%w: %w", ErrNotFound, fs.ErrNotExist))
}

// HasAllowedExtension reports whether path ends in .exe, .bat, .cmd or .com,
// ignoring case.
func HasAllowedExtension(path string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func checkContent(path string) error {
	for _, seq := range traversalSequences {
		if strings.Contains(path, seq) {
			return ErrTraversal
		}
	}
	if i := strings.IndexAny(path, forbiddenCharacters); i >= 0 {
		return fmt.Errorf("%w: %q", ErrForbiddenCharacter, path[i])
	}
	return nil
}

func collapseSeparators(p string, sep byte) string {
	var b strings.Builder
	b.Grow(len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == sep && i > 0 && p[i-1] == sep {
			continue
		}
		b.WriteByte(p[i])
	}
	return b.String()
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// IsRejection reports whether err is a path rejection.
func IsRejection(err error) bool {
	var rejection *RejectionError
	return errors.As(err, &rejection)
}
