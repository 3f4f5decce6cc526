package compression

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/jmylchreest/prism/internal/security"
)

func readZip(r io.ReaderAt, size int64, keep func(string) bool, maxBytes int64) ([]Entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to create zip reader: %w", err)
	}

	var entries []Entry
	for _, f := range zr.File {
		if !f.Mode().IsRegular() || !keep(f.Name) {
			continue
		}
		if err := security.ValidateMemberName(f.Name); err != nil {
			return nil, err
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		entry, err := readMember(rc, f.Name, maxBytes)
		_ = rc.Close()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
