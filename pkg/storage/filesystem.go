package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Archive keeps rendered roster exports on disk so signed download
// links can be served after the original request completed.
type Archive struct {
	dir string
}

// NewArchive ensures the archive directory exists and returns a handle.
func NewArchive(dir string) (*Archive, error) {
	if dir == "" {
		dir = "./exports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Put writes a rendered export under the archive directory.
func (a *Archive) Put(name string, data []byte) error {
	if err := os.WriteFile(a.resolve(name), data, 0o644); err != nil {
		return fmt.Errorf("write archived export: %w", err)
	}
	return nil
}

// Get reads a previously archived export back into memory.
func (a *Archive) Get(name string) ([]byte, error) {
	file, err := os.Open(a.resolve(name))
	if err != nil {
		return nil, fmt.Errorf("open archived export: %w", err)
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read archived export: %w", err)
	}
	return data, nil
}

// Remove deletes an archived export if present.
func (a *Archive) Remove(name string) error {
	if err := os.Remove(a.resolve(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove archived export: %w", err)
	}
	return nil
}

// Sweep removes exports older than the TTL and returns their names.
func (a *Archive) Sweep(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	removed := make([]string, 0)
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("sweep archive: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("sweep archive: %w", err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("sweep archive: %w", err)
		}
		removed = append(removed, entry.Name())
	}
	return removed, nil
}

// resolve flattens any path segments so tokens cannot escape the archive.
func (a *Archive) resolve(name string) string {
	return filepath.Join(a.dir, filepath.Base(name))
}
