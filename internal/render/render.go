// Package render redraws an image using only the colours of a palette.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"slices"

	"github.com/makeworld-the-better-one/dither/v2"

	"github.com/jmylchreest/prism/internal/quantize"
)

const (
	// MatrixNone maps each pixel to its nearest palette colour without
	// diffusing the error.
	MatrixNone = "none"

	// DefaultMatrix is the error diffusion matrix used when none is named.
	DefaultMatrix = "floyd-steinberg"
)

var matrices = map[string]dither.ErrorDiffusionMatrix{
	"floyd-steinberg": dither.FloydSteinberg,
	"atkinson":        dither.Atkinson,
	"burkes":          dither.Burkes,
	"sierra":          dither.Sierra,
	"stucki":          dither.Stucki,
}

// Matrices returns the accepted matrix names, sorted, followed by MatrixNone.
func Matrices() []string {
	names := make([]string, 0, len(matrices)+1)
	for name := range matrices {
		names = append(names, name)
	}
	slices.Sort(names)
	return append(names, MatrixNone)
}

// Options controls dithering.
type Options struct {
	// Matrix names the error diffusion matrix. Empty means DefaultMatrix.
	Matrix string

	// Strength scales the diffused error, in (0, 1]. Zero means full strength.
	Strength float32

	// Serpentine alternates scan direction per row.
	Serpentine bool
}

// Render returns img drawn with palette's colours.
func Render(img image.Image, palette quantize.Palette, opts Options) (*image.Paletted, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("render: %w", quantize.ErrEmptyInput)
	}
	if opts.Strength < 0 || opts.Strength > 1 {
		return nil, fmt.Errorf("dither strength must be in [0, 1], got %v", opts.Strength)
	}

	colours := make([]color.Color, len(palette))
	for i, p := range palette {
		colours[i] = color.NRGBA{R: p.R, G: p.G, B: p.B, A: 0xff}
	}

	name := opts.Matrix
	if name == "" {
		name = DefaultMatrix
	}
	if name == MatrixNone {
		dst := image.NewPaletted(img.Bounds(), colours)
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst, nil
	}

	matrix, ok := matrices[name]
	if !ok {
		return nil, fmt.Errorf("unknown dither matrix: %s (valid matrices: %v)", name, Matrices())
	}
	if opts.Strength != 0 && opts.Strength != 1 {
		matrix = dither.ErrorDiffusionStrength(matrix, opts.Strength)
	}

	d := dither.NewDitherer(colours)
	if d == nil {
		return nil, fmt.Errorf("render: ditherer rejected a %d colour palette", len(colours))
	}
	d.Matrix = matrix
	d.Serpentine = opts.Serpentine
	return d.DitherPaletted(img), nil
}
