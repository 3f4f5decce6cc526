// Package compression reads image packs: zip and compressed tar archives
// whose members are images.
package compression

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmylchreest/prism/internal/security"
)

// DefaultMaxEntryBytes caps the decompressed size of a single member.
const DefaultMaxEntryBytes = 64 << 20

// Entry is one selected archive member.
type Entry struct {
	// Name is the member's path inside the archive, slash separated.
	Name string
	Data []byte
}

type format int

const (
	formatNone format = iota
	formatZip
	formatTarGz
	formatTarXz
	formatTarBz2
)

func detect(name string) format {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return formatZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return formatTarGz
	case strings.HasSuffix(lower, ".tar.xz"), strings.HasSuffix(lower, ".txz"):
		return formatTarXz
	case strings.HasSuffix(lower, ".tar.bz2"), strings.HasSuffix(lower, ".tbz"), strings.HasSuffix(lower, ".tbz2"):
		return formatTarBz2
	}
	return formatNone
}

// IsArchive reports whether path names a supported archive by its extension.
func IsArchive(path string) bool {
	return detect(path) != formatNone
}

// ReadEntries returns the regular-file members of the archive at path for
// which keep returns true, in archive order. Members larger than
// maxEntryBytes fail the read; zero means DefaultMaxEntryBytes.
func ReadEntries(path string, keep func(name string) bool, maxEntryBytes int64) ([]Entry, error) {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}

	f, err := os.Open(path) // #nosec G304 - User-specified archive path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	var entries []Entry
	switch detect(path) {
	case formatZip:
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat archive: %w", err)
		}
		entries, err = readZip(f, info.Size(), keep, maxEntryBytes)
		if err != nil {
			return nil, err
		}
	case formatTarGz, formatTarXz, formatTarBz2:
		entries, err = readTar(f, detect(path), keep, maxEntryBytes)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", path)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no matching files found in archive: %s", path)
	}
	return entries, nil
}

func readMember(r io.Reader, name string, maxBytes int64) (Entry, error) {
	data, err := io.ReadAll(security.NewLimitedReader(r, maxBytes))
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return Entry{Name: name, Data: data}, nil
}
