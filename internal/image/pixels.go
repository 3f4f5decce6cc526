package image

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/jmylchreest/prism/internal/quantize"
)

// DefaultScale is the thumbnail factor applied before extraction. Palettes
// barely change at this size and every algorithm gets much cheaper.
const DefaultScale = 0.03

// Thumbnail shrinks img by scale on both axes, keeping at least one pixel
// per axis. A scale outside (0, 1) returns img unchanged.
func Thumbnail(img image.Image, scale float64) image.Image {
	if scale <= 0 || scale >= 1 {
		return img
	}

	bounds := img.Bounds()
	width := max(int(float64(bounds.Dx())*scale), 1)
	height := max(int(float64(bounds.Dy())*scale), 1)

	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Pixels flattens img into RGB samples in row-major order. Alpha is dropped
// without premultiplying.
func Pixels(img image.Image) []quantize.Pixel {
	bounds := img.Bounds()
	pixels := make([]quantize.Pixel, 0, bounds.Dx()*bounds.Dy())

	// Fast path for the type imaging produces.
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := nrgba.Pix[nrgba.PixOffset(bounds.Min.X, y):]
			for x := 0; x < bounds.Dx(); x++ {
				i := x * 4
				pixels = append(pixels, quantize.Pixel{R: row[i], G: row[i+1], B: row[i+2]})
			}
		}
		return pixels
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, quantize.Pixel{R: c.R, G: c.G, B: c.B})
		}
	}
	return pixels
}
