// Package storage keeps uploaded files on the local filesystem under a
// single uploads directory, keyed by generated filename.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a stored file does not exist.
var ErrNotFound = errors.New("file not found")

// Store manages files inside a single directory.
type Store struct {
	dir string
}

// New creates the uploads directory if needed and returns a store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes data under a generated filename with the given extension and
// returns the filename.
func (s *Store) Save(data []byte, ext string) (string, error) {
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Path returns the absolute path of a stored file, or ErrNotFound.
// Filenames containing path separators are rejected so callers cannot
// escape the uploads directory.
func (s *Store) Path(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." ||
		strings.ContainsAny(filename, `/\`) || filename != filepath.Base(filename) {
		return "", fmt.Errorf("%q: %w", filename, ErrNotFound)
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%q: %w", filename, ErrNotFound)
		}
		return "", fmt.Errorf("checking file: %w", err)
	}
	return path, nil
}

// Remove deletes a stored file. Missing files return ErrNotFound.
func (s *Store) Remove(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}
