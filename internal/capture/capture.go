// Package capture persists screen captures to a scratch directory and
// removes them again on orderly shutdown.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store writes capture files into a scratch directory and tracks every path
// it produces so Cleanup can remove them all.
type Store struct {
	mu    sync.Mutex
	dir   string
	files []string
	seq   int
}

// NewStore creates a store rooted at dir. The directory is created on first
// save, not here.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save encodes img as PNG under a unique name and returns the absolute
// path. The file is tracked for Cleanup.
func (s *Store) Save(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nil image")
	}

	s.mu.Lock()
	s.seq++
	name := fmt.Sprintf("screenshot_%s_%04d.png", time.Now().Format("20060102_150405"), s.seq)
	s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create capture file: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode capture: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close capture file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.mu.Lock()
	s.files = append(s.files, abs)
	s.mu.Unlock()
	return abs, nil
}

// Cleanup removes every file this store produced. Missing files are not an
// error.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	files := s.files
	s.files = nil
	s.mu.Unlock()

	var firstErr error
	for _, path := range files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
