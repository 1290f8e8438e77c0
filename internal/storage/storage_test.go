package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestSaveAndPath(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Save([]byte("payload"), ".jpg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(name, ".jpg") {
		t.Errorf("expected .jpg suffix, got %q", name)
	}

	path, err := s.Path(name)
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestPathUnknownFile(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Path("nope.jpg")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{
		"",
		"../secret",
		"..\\secret",
		"a/b.jpg",
		"..",
	} {
		if _, err := s.Path(name); !errors.Is(err, ErrNotFound) {
			t.Errorf("%q: expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)

	name, err := s.Save([]byte("x"), ".jpg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Remove(name); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Path(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected file gone, got %v", err)
	}
	if err := s.Remove(name); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}
