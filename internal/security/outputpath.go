// Package security validates user-supplied output paths before anything is
// written to them.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// canonical returns the absolute, symlink-resolved form of path. Paths that
// do not exist yet are resolved through their nearest existing ancestor, so
// a symlinked parent cannot smuggle a new file outside its directory.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rest, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rest), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// WithinDirectory reports an error unless path resolves to a location inside
// dir.
func WithinDirectory(path, dir string) error {
	target, err := canonical(path)
	if err != nil {
		return err
	}
	base, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	base, err = filepath.EvalSymlinks(base)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(base, target)
	if err != nil {
		return fmt.Errorf("path is outside %s: %w", dir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// WithinAnyDirectory accepts path if it lies inside at least one of dirs.
func WithinAnyDirectory(path string, dirs []string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range dirs {
		if WithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("%s must be within one of %v", path, dirs)
}

// ValidateOutputPath checks a file the tool is about to create: it must be
// inside the working directory or the temp directory, and when ext is not
// empty it must carry that extension (compared case-insensitively).
func ValidateOutputPath(path, ext string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("output path is empty")
	}
	if ext != "" && !strings.EqualFold(filepath.Ext(path), ext) {
		return fmt.Errorf("output path %s must have %s extension", path, ext)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	return WithinAnyDirectory(path, []string{cwd, os.TempDir()})
}
