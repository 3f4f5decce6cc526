package quantize

import (
	"math/rand/v2"
	"slices"
	"testing"
)

// repeat returns n copies of each pixel, grouped.
func repeat(n int, pixels ...Pixel) []Pixel {
	out := make([]Pixel, 0, n*len(pixels))
	for _, p := range pixels {
		for range n {
			out = append(out, p)
		}
	}
	return out
}

// noise returns n pseudo-random pixels from a fixed seed.
func noise(seed uint64, n int) []Pixel {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]Pixel, n)
	for i := range out {
		out[i] = Pixel{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256))}
	}
	return out
}

// sortedPalette returns a copy of p in channel order, for order-insensitive
// comparisons.
func sortedPalette(p Palette) Palette {
	out := slices.Clone(p)
	slices.SortFunc(out, func(a, b Pixel) int {
		for c := range channels {
			if d := int(a.Channel(c)) - int(b.Channel(c)); d != 0 {
				return d
			}
		}
		return 0
	})
	return out
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func mustQuantize(t *testing.T, q Quantizer, pixels []Pixel, k int) *Result {
	t.Helper()
	res, err := q.Quantize(pixels, k)
	if err != nil {
		t.Fatalf("%s Quantize() unexpected error: %v", q.Name(), err)
	}
	return res
}
