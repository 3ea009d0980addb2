// Package photos stores uploaded store photos.
package photos

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound is returned by Open for names that were never saved.
var ErrNotFound = errors.New("photo not found")

// Storage persists photo files by name.
type Storage interface {
	Save(ctx context.Context, name string, data []byte, contentType string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

// FileStorage keeps photos in a directory on local disk.
// Safe for concurrent use.
type FileStorage struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStorage creates the directory if needed.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("photo directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create photo directory: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Save writes data under name.
func (s *FileStorage) Save(ctx context.Context, name string, data []byte, _ string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("photo data cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0644); err != nil {
		return fmt.Errorf("failed to write photo file: %w", err)
	}
	return nil
}

// Open reads the photo stored under name.
func (s *FileStorage) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", name, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the photo stored under name. Missing files are ignored.
func (s *FileStorage) Delete(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo %s: %w", name, err)
	}
	return nil
}

// checkName rejects names that could escape the storage root.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("photo name cannot be empty")
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid photo name %q", name)
	}
	return nil
}
