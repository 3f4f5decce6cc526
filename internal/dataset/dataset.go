// Package dataset reads and writes persisted pixel sets: a JSON array of
// [r, g, b] triples per image, optionally xz-compressed.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/jmylchreest/prism/internal/quantize"
	"github.com/jmylchreest/prism/internal/security"
)

const (
	// Extension is the suffix of a plain pixel dump.
	Extension = ".json"

	// CompressedExtension is the suffix of an xz-compressed pixel dump.
	CompressedExtension = ".json.xz"

	// MaxDecompressedBytes caps how much JSON an xz dump may expand to.
	MaxDecompressedBytes = 512 << 20
)

// IsDataset reports whether path names a pixel dump by its extension.
func IsDataset(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, Extension) || strings.HasSuffix(lower, CompressedExtension)
}

func isCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".xz")
}

// Decode reads a JSON array of [r, g, b] triples. Every channel must be an
// integer in [0, 255].
func Decode(r io.Reader) ([]quantize.Pixel, error) {
	var raw [][]float64
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode pixel data: %w", err)
	}

	pixels := make([]quantize.Pixel, len(raw))
	for i, triple := range raw {
		if len(triple) != 3 {
			return nil, fmt.Errorf("pixel %d: %w: expected 3 channels, got %d",
				i, quantize.ErrInvalidPixelValue, len(triple))
		}
		p, err := quantize.NewPixel(triple[0], triple[1], triple[2])
		if err != nil {
			return nil, fmt.Errorf("pixel %d: %w", i, err)
		}
		pixels[i] = p
	}
	return pixels, nil
}

// Encode writes pixels as a compact JSON array of [r, g, b] triples.
func Encode(w io.Writer, pixels []quantize.Pixel) error {
	triples := make([][3]int, len(pixels))
	for i, p := range pixels {
		triples[i] = [3]int{int(p.R), int(p.G), int(p.B)}
	}
	if err := json.NewEncoder(w).Encode(triples); err != nil {
		return fmt.Errorf("failed to encode pixel data: %w", err)
	}
	return nil
}

// Load reads a pixel dump from path, decompressing ".xz" files.
func Load(path string) ([]quantize.Pixel, error) {
	file, err := os.Open(path) // #nosec G304 - User-specified dataset path, intended to be read
	if err != nil {
		return nil, fmt.Errorf("failed to open pixel data: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if isCompressed(path) {
		xzr, err := xz.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = security.NewLimitedReader(xzr, MaxDecompressedBytes)
	}

	pixels, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return pixels, nil
}

// Write stores pixels at path, compressing with xz when path ends in ".xz".
func Write(path string, pixels []quantize.Pixel) (err error) {
	file, err := os.Create(path) // #nosec G304 - Output path chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create pixel data file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close pixel data file: %w", closeErr)
		}
	}()

	if !isCompressed(path) {
		return Encode(file, pixels)
	}

	xzw, err := xz.NewWriter(file)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	if err := Encode(xzw, pixels); err != nil {
		_ = xzw.Close()
		return err
	}
	if err := xzw.Close(); err != nil {
		return fmt.Errorf("failed to finish xz stream: %w", err)
	}
	return nil
}
