package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/jmylchreest/prism/internal/config"
	"github.com/jmylchreest/prism/internal/dataset"
	"github.com/jmylchreest/prism/internal/image"
	"github.com/jmylchreest/prism/internal/security"
)

// dumpName returns the file name of the n-th pixel dump (1-based).
func dumpName(n int, compress bool) string {
	ext := dataset.Extension
	if compress {
		ext = dataset.CompressedExtension
	}
	return fmt.Sprintf("imgData%d%s", n, ext)
}

func newDumpCmd(a *app) *cobra.Command {
	var (
		outDir   string
		compress bool
	)

	cmd := &cobra.Command{
		Use:   "dump <image>...",
		Short: "Write image pixels to JSON for later quantization",
		Long: `Thumbnail each image (file, directory, archive or URL) by --scale and
write its pixels as a JSON array of [r, g, b] triples, one file per image
named imgData1.json, imgData2.json and so on. With --compress the files are xz-compressed (.json.xz).

Examples:
  # Dump every image in a directory
  prism dump -o data ~/Pictures/walls

  # Dump at a larger scale, compressed
  prism dump --scale 0.1 --compress -o data wallpaper.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDump(cmd, args, outDir, compress)
		},
	}

	cmd.Flags().Float64(config.KeyScale, image.DefaultScale, "thumbnail scale applied before dumping")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "output directory")
	cmd.Flags().BoolVar(&compress, "compress", false, "xz-compress the dumps")

	return cmd
}

func (a *app) runDump(cmd *cobra.Command, args []string, outDir string, compress bool) error {
	settings, err := config.Resolve(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	inputs, err := expandInputs(args, false)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	src := newPixelSource(settings.Scale, a.imageCache())
	var errs error
	for i, in := range inputs {
		name := dumpName(i+1, compress)
		if err := security.ValidateOutputName(name, outDir); err != nil {
			return err
		}
		path := filepath.Join(outDir, name)

		pixels, err := src.load(cmd.Context(), in)
		if err != nil {
			a.logger.Warn("failed to load image", "image", in.path, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", in.path, err))
			continue
		}
		if err := dataset.Write(path, pixels); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", in.path, err))
			continue
		}
		a.logger.Info("wrote pixel data", "image", in.path, "path", path, "pixels", len(pixels))
	}

	if errs != nil {
		return fmt.Errorf("some images failed: %w", errs)
	}
	return nil
}
