package quantize

import (
	"cmp"
	"fmt"
	"slices"
)

// zeroVolume stands in for the volume of a flat box so its density stays
// finite and very large.
const zeroVolume = 0.0001

// MedianCut quantizes by recursively bisecting the densest bounding box at
// the median of its widest channel.
type MedianCut struct {
	settings
}

// NewMedianCut creates a MedianCut quantizer.
func NewMedianCut(opts ...Option) *MedianCut {
	return &MedianCut{settings: newSettings(opts)}
}

// Name returns the algorithm identifier.
func (q *MedianCut) Name() Algorithm {
	return AlgorithmMedianCut
}

// box is a region of colour space holding a subset of the input pixels.
type box struct {
	pixels  []Pixel
	density float64
}

// mean returns the per-channel floor of the average pixel.
func (b box) mean() Pixel {
	var sum [channels]int
	for _, p := range b.pixels {
		sum[0] += int(p.R)
		sum[1] += int(p.G)
		sum[2] += int(p.B)
	}
	n := len(b.pixels)
	return Pixel{R: uint8(sum[0] / n), G: uint8(sum[1] / n), B: uint8(sum[2] / n)}
}

// densest orders boxes by descending density. Among equal densities the most
// recently queued box comes first.
func densest(a, b *entry[box]) bool {
	if a.value.density != b.value.density {
		return a.value.density > b.value.density
	}
	return a.seq > b.seq
}

// Quantize splits the pixel set into k boxes and returns their mean colours,
// largest box first.
func (q *MedianCut) Quantize(pixels []Pixel, k int) (*Result, error) {
	if err := validateInput(pixels, k); err != nil {
		return nil, err
	}

	pending := newQueue(densest)
	pending.push(box{pixels: pixels})

	// Boxes with fewer than two pixels cannot be split further.
	var final []box

	for pending.Len()+len(final) < k {
		if pending.Len() == 0 {
			return nil, fmt.Errorf("%w: reached %d of %d boxes from %d pixels",
				ErrPaletteSizeExceedsData, len(final), k, len(pixels))
		}

		b := pending.pop()
		if len(b.pixels) < 2 {
			final = append(final, b)
			continue
		}

		left, right, axis := cutIntoTwo(b.pixels)
		q.logger.Trace("median cut split", "pixels", len(b.pixels), "axis", axis,
			"left_density", left.density, "right_density", right.density)
		pending.push(left)
		pending.push(right)
	}

	for pending.Len() > 0 {
		final = append(final, pending.pop())
	}
	slices.SortStableFunc(final, func(a, b box) int {
		return cmp.Compare(len(b.pixels), len(a.pixels))
	})

	result := &Result{
		Palette:   make(Palette, len(final)),
		Counts:    make([]int, len(final)),
		Requested: k,
	}
	for i, b := range final {
		result.Palette[i] = b.mean()
		result.Counts[i] = len(b.pixels)
	}
	return result, nil
}

// bounds returns the per-channel minimum and maximum over pixels.
func bounds(pixels []Pixel) (lo, hi [channels]uint8) {
	lo = [channels]uint8{255, 255, 255}
	for _, p := range pixels {
		for c := range channels {
			v := p.Channel(c)
			lo[c] = min(lo[c], v)
			hi[c] = max(hi[c], v)
		}
	}
	return lo, hi
}

// cutIntoTwo splits pixels (at least two) at the median of the channel with
// the widest range, ties going to the lowest channel. The left box holds the
// first len/2 pixels in channel order and the right box the rest.
func cutIntoTwo(pixels []Pixel) (left, right box, axis int) {
	lo, hi := bounds(pixels)

	widest := -1
	for c := range channels {
		if r := int(hi[c]) - int(lo[c]); r > widest {
			widest = r
			axis = c
		}
	}

	sorted := slices.Clone(pixels)
	slices.SortStableFunc(sorted, func(a, b Pixel) int {
		return cmp.Compare(a.Channel(axis), b.Channel(axis))
	})

	mid := len(sorted) / 2
	median := float64(sorted[mid].Channel(axis))

	vLeft, vRight := 1.0, 1.0
	for c := range channels {
		if c == axis {
			vLeft *= median - float64(lo[c])
			vRight *= float64(hi[c]) - median
			continue
		}
		span := float64(hi[c]) - float64(lo[c])
		vLeft *= span
		vRight *= span
	}

	left = box{pixels: sorted[:mid:mid]}
	right = box{pixels: sorted[mid:]}
	left.density = float64(len(left.pixels)) / nonZero(vLeft)
	right.density = float64(len(right.pixels)) / nonZero(vRight)
	return left, right, axis
}

func nonZero(v float64) float64 {
	if v == 0 {
		return zeroVolume
	}
	return v
}
