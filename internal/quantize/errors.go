package quantize

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPixelValue is returned when a channel is non-finite, negative,
	// fractional or above 255.
	ErrInvalidPixelValue = errors.New("invalid pixel value")

	// ErrInvalidPaletteSize is returned when the requested palette size cannot
	// be honoured: k <= 0, k larger than the data allows, or an octree leaf
	// budget smaller than k.
	ErrInvalidPaletteSize = errors.New("invalid palette size")

	// ErrEmptyInput is returned when the pixel sequence is empty.
	ErrEmptyInput = errors.New("empty pixel input")

	// ErrPaletteSizeExceedsData is returned by median cut when it runs out of
	// splittable boxes before reaching k. It also matches ErrInvalidPaletteSize.
	ErrPaletteSizeExceedsData = fmt.Errorf("%w: palette size exceeds data", ErrInvalidPaletteSize)

	// ErrPaletteUnderfill marks an advisory (never a failure) that fewer
	// colours than requested were produced.
	ErrPaletteUnderfill = errors.New("palette underfilled")
)

// validateInput checks the shape of a quantization request before any
// algorithm state is built. The palette size is checked first.
func validateInput(pixels []Pixel, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: k must be at least 1, got %d", ErrInvalidPaletteSize, k)
	}
	if len(pixels) == 0 {
		return ErrEmptyInput
	}
	return nil
}
