package imagecache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	httputil "github.com/jmylchreest/prism/internal/util/http"
)

func TestFetchCachesDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("image bytes"))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "images")
	c := New(dir, httputil.FetchOptions{})
	url := srv.URL + "/wall.png"

	for i := range 3 {
		data, err := c.Fetch(context.Background(), url)
		if err != nil {
			t.Fatalf("Fetch() #%d unexpected error: %v", i, err)
		}
		if string(data) != "image bytes" {
			t.Errorf("Fetch() #%d = %q, want %q", i, data, "image bytes")
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times, want 1", got)
	}

	if _, err := os.Stat(c.Path(url)); err != nil {
		t.Errorf("cached file missing: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("cache holds %d files, want 1", len(entries))
	}
}

func TestFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(t.TempDir(), httputil.FetchOptions{})
	if _, err := c.Fetch(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Fetch() expected error for 404, got nil")
	}
}

func TestPath(t *testing.T) {
	c := New("/cache", httputil.FetchOptions{})

	tests := []struct {
		url     string
		wantExt string
	}{
		{url: "https://example.com/a.PNG", wantExt: ".png"},
		{url: "https://example.com/a.jpg?size=large", wantExt: ".jpg"},
		{url: "https://example.com/image", wantExt: ".img"},
		{url: "https://example.com/v1.2/image", wantExt: ".img"},
	}
	for _, tt := range tests {
		got := c.Path(tt.url)
		if filepath.Dir(got) != "/cache" || !strings.HasSuffix(got, tt.wantExt) {
			t.Errorf("Path(%q) = %q, want a file in /cache ending %s", tt.url, got, tt.wantExt)
		}
	}

	if c.Path("https://a/x.png") == c.Path("https://b/x.png") {
		t.Error("Path() collides for different URLs")
	}
}
