// Package imagecache keeps downloaded images on disk so repeated runs over
// the same URLs skip the network.
package imagecache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	httputil "github.com/jmylchreest/prism/internal/util/http"
)

// Cache stores fetched images under a directory, keyed by URL.
type Cache struct {
	dir   string
	fetch httputil.FetchOptions
}

// New returns a cache rooted at dir. The directory is created on first use.
func New(dir string, fetch httputil.FetchOptions) *Cache {
	return &Cache{dir: dir, fetch: fetch}
}

// DefaultDir returns the default cache directory, prism/images under the
// user cache directory.
func DefaultDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine cache directory: %w", err)
		}
		return filepath.Join(home, ".cache", "prism", "images"), nil
	}
	return filepath.Join(cacheDir, "prism", "images"), nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where url is cached: a hash of the URL plus its extension.
func (c *Cache) Path(url string) string {
	hash := sha256.Sum256([]byte(url))
	name := fmt.Sprintf("%x", hash[:16])

	ext := filepath.Ext(url)
	if idx := strings.IndexAny(ext, "?#"); idx != -1 {
		ext = ext[:idx]
	}
	if ext == "" || len(ext) > 5 || strings.ContainsRune(ext, '/') {
		ext = ".img"
	}
	return filepath.Join(c.dir, name+strings.ToLower(ext))
}

// Fetch returns the image at url, from the cache when present.
func (c *Cache) Fetch(ctx context.Context, url string) ([]byte, error) {
	path := c.Path(url)

	data, err := os.ReadFile(path) // #nosec G304 - Path derived from a hash inside the cache directory
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read cached image: %w", err)
	}

	data, err = httputil.Fetch(ctx, url, c.fetch)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	// Readers never observe a partially written file.
	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return nil, fmt.Errorf("failed to write cached image: %w", err)
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := multierr.Combine(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write cached image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("failed to write cached image: %w", err)
	}

	return data, nil
}
