package compression

import (
	"archive/tar"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/prism/internal/security"
)

func readTar(r io.Reader, f format, keep func(string) bool, maxBytes int64) ([]Entry, error) {
	var stream io.Reader
	switch f {
	case formatTarGz:
		gzr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzr.Close()
		stream = gzr
	case formatTarXz:
		xzr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		stream = xzr
	case formatTarBz2:
		stream = bzip2.NewReader(r)
	default:
		return nil, fmt.Errorf("not a tar format")
	}

	var entries []Entry
	tr := tar.NewReader(stream)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg || !keep(header.Name) {
			continue
		}
		if err := security.ValidateMemberName(header.Name); err != nil {
			return nil, err
		}

		entry, err := readMember(tr, header.Name, maxBytes)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
}
