package cli

import (
	"fmt"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/prism/internal/config"
	"github.com/jmylchreest/prism/internal/image"
	"github.com/jmylchreest/prism/internal/quantize"
	"github.com/jmylchreest/prism/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		output string
		opts   render.Options
	)

	cmd := &cobra.Command{
		Use:   "render <image>",
		Short: "Redraw an image using only its extracted palette",
		Long: `Extract a palette from an image and redraw the full-size image with it,
dithering with an error diffusion matrix. The output is PNG, or GIF when
the output name ends in .gif.

When several algorithms are selected the first one is used.

Examples:
  # Eight octree colours, Floyd-Steinberg dithering
  prism render -a octree -c 8 -o poster.png wallpaper.jpg

  # Nearest colour only
  prism render -a mediancut --dither none -o flat.gif wallpaper.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRender(cmd, args[0], output, opts)
		},
	}

	addQuantizerFlags(cmd.Flags())
	cmd.Flags().StringVarP(&output, "output", "o", "", "output image path (required)")
	cmd.Flags().StringVar(&opts.Matrix, "dither", render.DefaultMatrix, fmt.Sprintf("dither matrix (%s)", strings.Join(render.Matrices(), ", ")))
	cmd.Flags().Float32Var(&opts.Strength, "strength", 1, "error diffusion strength (0-1]")
	cmd.Flags().BoolVar(&opts.Serpentine, "serpentine", false, "alternate scan direction per row")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func (a *app) runRender(cmd *cobra.Command, path, output string, opts render.Options) error {
	settings, err := config.Resolve(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	alg := settings.Algorithms[0]
	if len(settings.Algorithms) > 1 {
		a.logger.Debug("several algorithms selected, rendering with the first", "algorithm", alg)
	}

	if err := image.ValidateImagePath(path); err != nil {
		return fmt.Errorf("invalid image path: %w", err)
	}
	loader := image.NewSmartLoader()
	if cache := a.imageCache(); cache != nil {
		loader.WithCache(cache)
	}
	img, err := loader.Load(cmd.Context(), path)
	if err != nil {
		return err
	}

	q, err := quantize.New(alg, settings.Quantizer,
		append(settings.QuantizerOptions(), quantize.WithLogger(a.logger.Named("quantize")))...)
	if err != nil {
		return err
	}
	res, err := q.Quantize(image.Pixels(image.Thumbnail(img, settings.Scale)), settings.Quantizer.Colours)
	if err != nil {
		return fmt.Errorf("failed to extract palette: %w", err)
	}
	if adv := res.Advisory(); adv != nil {
		a.logger.Info("palette underfilled", "image", path, "algorithm", alg, "advisory", adv)
	}

	out, err := render.Render(img, res.Palette, opts)
	if err != nil {
		return err
	}

	f, err := os.Create(output) // #nosec G304 - Output path chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create output image: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(output), ".gif") {
		err = gif.Encode(f, out, &gif.Options{NumColors: len(res.Palette)})
	} else {
		err = png.Encode(f, out)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output image: %w", err)
	}

	a.logger.Info("rendered image", "image", path, "algorithm", alg, "colours", len(res.Palette), "path", output)
	return f.Close()
}
