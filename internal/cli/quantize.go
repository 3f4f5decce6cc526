package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jmylchreest/prism/internal/batch"
	"github.com/jmylchreest/prism/internal/config"
	"github.com/jmylchreest/prism/internal/image"
	"github.com/jmylchreest/prism/internal/quantize"
)

// addQuantizerFlags registers the flags shared by every command that builds
// a palette. Defaults mirror the config defaults so help output is accurate.
func addQuantizerFlags(fs *pflag.FlagSet) {
	defaults := quantize.DefaultConfig()
	fs.IntP(config.KeyColours, "c", defaults.Colours, "number of colours to extract (1-256)")
	fs.StringP(config.KeyAlgorithm, "a", string(quantize.AlgorithmAll), "algorithms: kmeans, mediancut, octree, all (comma separated)")
	fs.Int(config.KeyMaxIterations, defaults.MaxIterations, "k-means iteration limit")
	fs.Float64(config.KeyThreshold, defaults.Threshold, "k-means convergence threshold (squared distance)")
	fs.Int(config.KeyMaxLeaves, defaults.MaxLeaves, "octree leaf limit")
	fs.Uint64(config.KeySeed, 0, "k-means random seed (0 for random)")
	fs.Float64(config.KeyScale, image.DefaultScale, "thumbnail scale applied to images before extraction")
}

func newQuantizeCmd(a *app) *cobra.Command {
	var (
		output  string
		preview string
	)

	cmd := &cobra.Command{
		Use:   "quantize <input>...",
		Short: "Extract colour palettes from images",
		Long: `Extract a colour palette from each input with one or more algorithms.

Inputs may be image files (JPEG, PNG, GIF, WebP), directories of images,
image archives (.zip, .tar.gz, .tar.xz, .tar.bz2), http(s) URLs, or pixel
dumps (.json, .json.xz). Images are thumbnailed by --scale first; URLs
are cached under --cache-dir. Every input runs through every selected algorithm; a
failure on one input does not stop the others.

Examples:
  # Four colours from each algorithm
  prism quantize wallpaper.jpg

  # Eight colours with the octree, as a table
  prism quantize -a octree -c 8 -f table wallpaper.png

  # Every image in a directory, reproducible k-means, as JSON
  prism quantize -a kmeans --seed 7 -f json ~/Pictures/walls

  # Every image in a wallpaper pack
  prism quantize -f table walls.tar.xz

  # Re-run on a pixel dump
  prism quantize imgData1.json.xz`,
		Aliases: []string{"extract"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuantize(cmd, args, output, preview)
		},
	}

	addQuantizerFlags(cmd.Flags())
	cmd.Flags().Int(config.KeyWorkers, runtime.NumCPU(), "images processed in parallel")
	cmd.Flags().StringP(config.KeyFormat, "f", config.FormatHex, "output format (hex, rgb, json, table)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVar(&preview, "preview", previewAuto, "colour swatches: auto, always, never")

	return cmd
}

func (a *app) runQuantize(cmd *cobra.Command, args []string, output, preview string) error {
	settings, err := config.Resolve(a.v)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	inputs, err := expandInputs(args, true)
	if err != nil {
		return err
	}

	a.logger.Debug("extracting palettes",
		"inputs", len(inputs),
		"algorithms", fmt.Sprint(settings.Algorithms),
		"colours", settings.Quantizer.Colours,
		"workers", settings.Workers)

	opts := append(settings.QuantizerOptions(), quantize.WithLogger(a.logger.Named("quantize")))
	outcomes, err := batch.Run(cmd.Context(), newPixelSource(settings.Scale, a.imageCache()).jobs(inputs), batch.Options{
		Algorithms:       settings.Algorithms,
		Config:           settings.Quantizer,
		Workers:          settings.Workers,
		Logger:           a.logger,
		QuantizerOptions: opts,
	})
	if err != nil {
		return err
	}

	var showPreview bool
	if output == "" {
		showPreview, err = usePreview(preview, cmd.OutOrStdout())
	} else {
		showPreview, err = usePreview(preview, nil)
	}
	if err != nil {
		return err
	}

	text, err := formatOutcomes(outcomes, settings.Format, showPreview)
	if err != nil {
		return err
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(text), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		a.logger.Debug("wrote palettes", "path", output)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), text)
	}

	if err := batch.Errors(outcomes); err != nil {
		return fmt.Errorf("some inputs failed: %w", err)
	}
	return nil
}
