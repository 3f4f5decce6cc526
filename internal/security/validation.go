// Package security validates names and URLs taken from user input or
// downloaded content, and bounds how much data prism reads from them.
package security

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// ErrSizeLimit is returned by a LimitedReader whose source holds more than
// its budget.
var ErrSizeLimit = errors.New("size limit exceeded")

// ValidateFetchURL accepts only absolute http(s) URLs with a host.
func ValidateFetchURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("empty URL")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("only http:// and https:// URLs are allowed (got %q)", u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("URL must have a hostname: %s", raw)
	}
	return nil
}

// ValidateOutputName checks that name, joined onto baseDir, names a path
// strictly inside baseDir.
func ValidateOutputName(name, baseDir string) error {
	switch {
	case name == "":
		return fmt.Errorf("empty output name")
	case filepath.IsAbs(name):
		return fmt.Errorf("output name must be relative: %s", name)
	}

	rel, err := filepath.Rel(baseDir, filepath.Join(baseDir, name))
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output name would escape output directory: %s", name)
	}
	return nil
}

// ValidateMemberName checks a slash-separated archive member name. Absolute
// names and names that climb above the archive root are rejected.
func ValidateMemberName(name string) error {
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("archive member escapes archive root: %s", name)
	}
	return nil
}

// LimitedReader reads at most Remaining bytes from R. A source that still has
// data once the budget is spent fails with ErrSizeLimit rather than being
// silently truncated; a source of exactly the budget reads to io.EOF.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

// Read implements io.Reader.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if l.Remaining <= 0 {
		var probe [1]byte
		n, err := l.R.Read(probe[:])
		switch {
		case n > 0:
			return 0, ErrSizeLimit
		case err != nil:
			return 0, err
		}
		return 0, nil
	}

	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// NewLimitedReader returns a LimitedReader over r with a budget of maxBytes.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{R: r, Remaining: maxBytes}
}
