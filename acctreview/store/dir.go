// Package store provides BlobStore implementations for the payload cache.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/scottbrown/account-review/acctreview"
)

// Dir stores blobs as files below a root directory. Keys are slash separated
// relative paths.
type Dir struct {
	root string
}

// NewDir creates a Dir rooted at root. The directory is created on first write.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Root returns the directory holding the blobs.
func (d *Dir) Root() string {
	return d.root
}

// Path returns the file path for key.
func (d *Dir) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(d.root, clean), nil
}

// Get reads the blob for key.
func (d *Dir) Get(_ context.Context, key string) ([]byte, error) {
	p, err := d.Path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, acctreview.ErrNotFound)
	}
	return data, err
}

// Put writes the blob for key, creating parent directories as needed.
func (d *Dir) Put(_ context.Context, key string, data []byte) error {
	p, err := d.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

// Exists reports whether a blob is stored for key.
func (d *Dir) Exists(_ context.Context, key string) (bool, error) {
	p, err := d.Path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// RemovePrefix deletes every blob below prefix.
func (d *Dir) RemovePrefix(_ context.Context, prefix string) error {
	p, err := d.Path(prefix)
	if err != nil {
		return err
	}
	return os.RemoveAll(p)
}
