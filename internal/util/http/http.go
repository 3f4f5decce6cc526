// Package http downloads remote images with a bounded size and timeout.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jmylchreest/prism/internal/security"
	"github.com/jmylchreest/prism/internal/version"
)

const (
	// UserAgentName is the application name used in the User-Agent header.
	UserAgentName = "prism"

	// DefaultTimeout bounds a whole download, body included.
	DefaultTimeout = 10 * time.Second

	// DefaultMaxBytes caps the size of a downloaded body.
	DefaultMaxBytes = 64 << 20

	acceptImages = "image/avif,image/webp,image/png,image/jpeg,image/gif,*/*;q=0.5"
)

// FetchOptions configures Fetch. The zero value uses the defaults.
type FetchOptions struct {
	Timeout  time.Duration
	MaxBytes int64

	// Headers are added to the request after the defaults and may replace
	// them.
	Headers map[string]string
}

func (o FetchOptions) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

func (o FetchOptions) maxBytes() int64 {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return DefaultMaxBytes
}

// StatusError reports a response other than 200 OK.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// Fetch downloads url and returns its body. Bodies larger than the limit
// fail with security.ErrSizeLimit, before reading when the server declares
// the length up front.
func Fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgentName+"/"+version.Short())
	req.Header.Set("Accept", acceptImages)
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	limit := opts.maxBytes()
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: %s declares %d bytes, limit is %d", security.ErrSizeLimit, url, resp.ContentLength, limit)
	}

	data, err := io.ReadAll(security.NewLimitedReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
