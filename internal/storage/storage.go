// Package storage keeps uploaded document originals on disk so they can be
// re-served for download after ingestion. Filenames are the natural key:
// re-uploading the same filename overwrites the prior original.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists uploaded originals under a single directory.
type Store struct {
	dir string
}

// New creates the uploads directory if needed and returns a Store over it.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create uploads dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the uploads directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the uploaded content under filename, overwriting any prior
// upload with the same name, and returns the on-disk path.
func (s *Store) Save(filename string, r io.Reader) (string, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", filename, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("storage: write %s: %w", filename, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("storage: close %s: %w", filename, err)
	}
	return path, nil
}

// Path returns the on-disk path for filename, or an error if no such
// original is stored.
func (s *Store) Path(filename string) (string, error) {
	path, err := s.safePath(filename)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("storage: %s: %w", filename, err)
	}
	return path, nil
}

// Open opens the stored original for reading.
func (s *Store) Open(filename string) (*os.File, error) {
	path, err := s.Path(filename)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", filename, err)
	}
	return f, nil
}

// Remove deletes the stored original. Removing a filename that was never
// stored is not an error.
func (s *Store) Remove(filename string) error {
	path, err := s.safePath(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", filename, err)
	}
	return nil
}

// safePath joins filename onto the uploads dir, rejecting names that would
// escape it.
func (s *Store) safePath(filename string) (string, error) {
	base := filepath.Base(filepath.Clean(filename))
	if base == "" || base == "." || base == ".." || strings.ContainsAny(base, `/\`) {
		return "", fmt.Errorf("storage: invalid filename %q", filename)
	}
	return filepath.Join(s.dir, base), nil
}
