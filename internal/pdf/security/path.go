// Package security confines file access to the configured directories.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines paths to a single root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir. The directory does not
// have to exist yet.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}
	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory
func (v *PathValidator) Root() string {
	return v.root
}

// Resolve turns a user supplied path into an absolute path inside the root.
// Relative paths are taken relative to the root.
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ValidatePath checks that path, after resolving symlinks, lies inside the root
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	abs = filepath.Clean(abs)

	root := v.root
	if real, err := filepath.EvalSymlinks(root); err == nil {
		root = real
	}
	real := abs
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		real = r
	} else if dir, err := filepath.EvalSymlinks(filepath.Dir(abs)); err == nil {
		// the file itself may not exist yet
		real = filepath.Join(dir, filepath.Base(abs))
	}

	if !within(abs, v.root) && !within(abs, root) {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	if !within(real, root) && !within(real, v.root) {
		return fmt.Errorf("path resolves outside configured directory: %s", path)
	}
	return nil
}

// EnsureRoot creates the root directory if it is missing
func (v *PathValidator) EnsureRoot() error {
	if err := os.MkdirAll(v.root, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", v.root, err)
	}
	return nil
}

func within(path, dir string) bool {
	if path == dir {
		return true
	}
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}
	return strings.HasPrefix(path, dir)
}
