// Package fsutil abstracts the few filesystem calls the pipeline makes so
// loaders and writers can be tested without touching disk.
package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing/fstest"
)

// FileSystem is the file access used by the GPX and CSV stages.
type FileSystem interface {
	Open(name string) (io.ReadCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	Exists(name string) bool
}

// OSFileSystem implements FileSystem on the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (io.ReadCloser, error) { return os.Open(name) }

func (OSFileSystem) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }

func (OSFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}

func (OSFileSystem) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// MemoryFileSystem keeps files in memory. Paths are cleaned, so "a/../b.gpx"
// and "b.gpx" name the same file. The zero value is not usable; call
// NewMemoryFileSystem.
type MemoryFileSystem struct {
	mu       sync.RWMutex
	files    fstest.MapFS
	readOnly map[string]bool
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files:    fstest.MapFS{},
		readOnly: map[string]bool{},
	}
}

// key maps name onto the slash-separated relative form MapFS expects.
func key(name string) string {
	k := filepath.ToSlash(filepath.Clean(name))
	k = strings.TrimPrefix(k, "/")
	if k == "" {
		return "."
	}
	return k
}

// SetReadOnly makes later writes to name fail with fs.ErrPermission.
func (m *MemoryFileSystem) SetReadOnly(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readOnly[key(name)] = true
}

func (m *MemoryFileSystem) Open(name string) (io.ReadCloser, error) {
	data, err := m.ReadFile(name)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: errors.Unwrap(err)}
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[key(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), f.Data...), nil
}

func (m *MemoryFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(name)
	if m.readOnly[k] {
		return &fs.PathError{Op: "write", Path: name, Err: fs.ErrPermission}
	}
	m.files[k] = &fstest.MapFile{Data: append([]byte(nil), data...), Mode: perm}
	return nil
}

func (m *MemoryFileSystem) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.files[key(name)]
	return ok
}

// FS returns a read-only snapshot usable with io/fs helpers such as fs.Glob.
func (m *MemoryFileSystem) FS() fs.FS {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(fstest.MapFS, len(m.files))
	for k, f := range m.files {
		c := *f
		snap[k] = &c
	}
	return snap
}
