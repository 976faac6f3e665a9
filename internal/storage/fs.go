package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/notewiki/internal/apperr"
)

// File implements Provider backed by one file on the local file system.
type File struct {
	path string // absolute
}

// NewFile creates a provider for path. The file does not have to exist yet.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: empty path: %w", apperr.ErrIO)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: %s is a directory: %w", abs, apperr.ErrIO)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute path of the backing file.
func (f *File) Path() string {
	return f.path
}

// Read returns the raw bytes of the file. A missing file is reported with
// both apperr.ErrIO and os.ErrNotExist in the chain.
func (f *File) Read() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("storage: read %s: %w: %w", f.path, apperr.ErrIO, os.ErrNotExist)
		}
		return nil, fmt.Errorf("storage: read %s: %w: %v", f.path, apperr.ErrIO, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename.
func (f *File) Write(content []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w: %v", apperr.ErrIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".notewiki-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w: %v", apperr.ErrIO, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w: %v", apperr.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w: %v", apperr.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w: %v", apperr.ErrIO, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod: %w: %v", apperr.ErrIO, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("storage: rename: %w: %v", apperr.ErrIO, err)
	}
	success = true
	return nil
}
