// Package quantize reduces a sequence of RGB pixels to a small palette of
// representative colours.
//
// Three algorithms are provided: k-means clustering, median cut and an
// incremental octree. All three share the same input contract (a pixel
// sequence and a target colour count) and the same output contract (an
// ordered palette). Every call to Quantize builds its working state from
// scratch, so a single quantizer value may be used from many goroutines.
package quantize

import (
	"fmt"
	"math"
)

// channels is the number of colour channels in a Pixel.
const channels = 3

// Pixel is an RGB sample with each channel in [0, 255].
type Pixel struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// NewPixel validates raw channel values and builds a Pixel from them.
// Values must be finite integers in [0, 255].
func NewPixel(r, g, b float64) (Pixel, error) {
	var out [channels]uint8
	for i, v := range [channels]float64{r, g, b} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 255 || v != math.Trunc(v) {
			return Pixel{}, fmt.Errorf("%w: channel %d is %v", ErrInvalidPixelValue, i, v)
		}
		out[i] = uint8(v)
	}
	return Pixel{R: out[0], G: out[1], B: out[2]}, nil
}

// Channel returns the value of channel i (0 = R, 1 = G, 2 = B).
func (p Pixel) Channel(i int) uint8 {
	switch i {
	case 0:
		return p.R
	case 1:
		return p.G
	default:
		return p.B
	}
}

// Hex returns the pixel as a lowercase "#rrggbb" string.
func (p Pixel) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", p.R, p.G, p.B)
}

// String returns the pixel in the format "rgb(r, g, b)".
func (p Pixel) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", p.R, p.G, p.B)
}

// SquaredDistance returns the squared Euclidean distance between two pixels
// in RGB space.
func SquaredDistance(a, b Pixel) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

// Palette is an ordered sequence of representative colours.
type Palette []Pixel

// Hex returns the palette colours as "#rrggbb" strings.
func (p Palette) Hex() []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[i] = c.Hex()
	}
	return out
}

// Result is the outcome of a single quantization run.
type Result struct {
	// Palette holds the representative colours.
	Palette Palette

	// Counts holds the number of input pixels represented by each palette
	// entry, index-aligned with Palette.
	Counts []int

	// Requested is the palette size that was asked for.
	Requested int

	// Underfill is set when fewer than Requested distinct colours could be
	// produced. The shorter palette is still valid.
	Underfill bool
}

// Advisory returns a non-nil error describing an underfilled palette, or nil.
// It is informational only; the Result is usable either way.
func (r *Result) Advisory() error {
	if r == nil || !r.Underfill {
		return nil
	}
	return fmt.Errorf("%w: got %d of %d colours", ErrPaletteUnderfill, len(r.Palette), r.Requested)
}

// Weights returns each palette entry's share of the input pixels.
func (r *Result) Weights() []float64 {
	total := 0
	for _, c := range r.Counts {
		total += c
	}
	weights := make([]float64, len(r.Counts))
	if total == 0 {
		return weights
	}
	for i, c := range r.Counts {
		weights[i] = float64(c) / float64(total)
	}
	return weights
}
