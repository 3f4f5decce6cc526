// Package image provides utilities for loading images and flattening them
// into pixel sequences for quantization.
package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/jmylchreest/prism/internal/security"
	httputil "github.com/jmylchreest/prism/internal/util/http"
	"github.com/jmylchreest/prism/internal/util/imagecache"
)

// MaxPixels bounds the decoded area of any image. Headers are checked before
// the pixel data is decoded.
const MaxPixels = 256 << 20

// ErrTooLarge is returned for images whose header declares more than
// MaxPixels pixels.
var ErrTooLarge = errors.New("image too large")

// formats maps file extensions to the decoder registered for them.
var formats = map[string]string{
	".gif":  "gif",
	".jpeg": "jpeg",
	".jpg":  "jpeg",
	".png":  "png",
	".webp": "webp",
}

// Loader handles loading images from various sources.
type Loader interface {
	// Load loads an image from the given path.
	Load(ctx context.Context, path string) (image.Image, error)
}

// FileLoader loads images from the local filesystem.
type FileLoader struct{}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load decodes the image file at path.
func (l *FileLoader) Load(_ context.Context, path string) (image.Image, error) {
	f, err := openImageFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decode(f)
}

// Decode decodes an in-memory image in any registered format.
func Decode(data []byte) (image.Image, error) {
	return decode(bytes.NewReader(data))
}

// decode checks the header of r against MaxPixels, then decodes it in full.
func decode(r io.ReadSeeker) (image.Image, error) {
	format, err := probe(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind image: %w", err)
	}
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}
	return img, nil
}

// probe reads only the image header and returns the detected format.
func probe(r io.Reader) (string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", fmt.Errorf("unsupported or invalid image format: %w", err)
	}
	if cfg.Width < 1 || cfg.Height < 1 {
		return "", fmt.Errorf("%s image has no pixels (%dx%d)", format, cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %s image is %dx%d, limit is %d pixels", ErrTooLarge, format, cfg.Width, cfg.Height, MaxPixels)
	}
	return format, nil
}

func openImageFile(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("image path cannot be empty")
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("image file not found: %s", path)
	case err != nil:
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	case info.IsDir():
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, err := os.Open(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	return f, nil
}

// SmartLoader loads images from local files and HTTP(S) URLs. URLs go through
// the download cache when one is attached.
type SmartLoader struct {
	files *FileLoader
	fetch httputil.FetchOptions
	cache *imagecache.Cache
}

// NewSmartLoader creates a new SmartLoader instance.
func NewSmartLoader() *SmartLoader {
	return &SmartLoader{files: NewFileLoader()}
}

// WithCache serves URLs from c, downloading only on a miss.
func (l *SmartLoader) WithCache(c *imagecache.Cache) *SmartLoader {
	l.cache = c
	return l
}

// Load loads an image from either a local file path or HTTP(S) URL.
func (l *SmartLoader) Load(ctx context.Context, path string) (image.Image, error) {
	if !IsURL(path) {
		return l.files.Load(ctx, path)
	}
	if err := security.ValidateFetchURL(path); err != nil {
		return nil, err
	}

	fetch := func(ctx context.Context, url string) ([]byte, error) {
		return httputil.Fetch(ctx, url, l.fetch)
	}
	if l.cache != nil {
		fetch = l.cache.Fetch
	}
	data, err := fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image from URL: %w", err)
	}
	return Decode(data)
}

// IsURL reports whether path is an HTTP(S) URL.
func IsURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// SupportedImageExtensions returns the recognised image file extensions in
// sorted order.
func SupportedImageExtensions() []string {
	return slices.Sorted(maps.Keys(formats))
}

// IsImageFile reports whether path has a supported image extension, ignoring
// case.
func IsImageFile(path string) bool {
	_, ok := formats[strings.ToLower(filepath.Ext(path))]
	return ok
}

// ScanDirectoryForImages lists the image files directly inside dir in lexical
// order. Symlinks are followed; subdirectories and unreadable entries are
// skipped.
func ScanDirectoryForImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var found []string
	for _, e := range entries {
		if !IsImageFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			continue
		}
		found = append(found, path)
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no supported image files found in directory: %s", dir)
	}
	return found, nil
}

// ValidateImagePath checks that path is a URL, a directory, or a local file
// whose header decodes within MaxPixels. URLs are not fetched here.
func ValidateImagePath(path string) error {
	if IsURL(path) {
		return nil
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}

	f, err := openImageFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = probe(f)
	return err
}
