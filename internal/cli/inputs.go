package cli

import (
	"context"
	"fmt"
	stdimage "image"
	"os"

	"github.com/jmylchreest/prism/internal/batch"
	"github.com/jmylchreest/prism/internal/compression"
	"github.com/jmylchreest/prism/internal/dataset"
	"github.com/jmylchreest/prism/internal/image"
	"github.com/jmylchreest/prism/internal/quantize"
	"github.com/jmylchreest/prism/internal/util/imagecache"
)

// inputKind distinguishes decoded images from persisted pixel dumps.
type inputKind int

const (
	inputImage inputKind = iota
	inputDataset
	inputArchived
)

type input struct {
	path string
	kind inputKind

	// data holds the encoded image of an archive member.
	data []byte
}

// expandInputs resolves command arguments into individual inputs.
// Directories and archives expand to the images they contain.
func expandInputs(args []string, allowDatasets bool) ([]input, error) {
	var inputs []input
	for _, arg := range args {
		switch {
		case image.IsURL(arg):
			inputs = append(inputs, input{path: arg, kind: inputImage})

		case compression.IsArchive(arg):
			entries, err := compression.ReadEntries(arg, image.IsImageFile, 0)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", arg, err)
			}
			for _, e := range entries {
				inputs = append(inputs, input{path: arg + "/" + e.Name, kind: inputArchived, data: e.Data})
			}

		case dataset.IsDataset(arg):
			if !allowDatasets {
				return nil, fmt.Errorf("%s: pixel dumps are not accepted here", arg)
			}
			if _, err := os.Stat(arg); err != nil {
				return nil, fmt.Errorf("failed to access pixel data: %w", err)
			}
			inputs = append(inputs, input{path: arg, kind: inputDataset})

		default:
			if err := image.ValidateImagePath(arg); err != nil {
				return nil, err
			}
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("failed to access image path: %w", err)
			}
			if !info.IsDir() {
				inputs = append(inputs, input{path: arg, kind: inputImage})
				continue
			}
			paths, err := image.ScanDirectoryForImages(arg)
			if err != nil {
				return nil, err
			}
			for _, p := range paths {
				inputs = append(inputs, input{path: p, kind: inputImage})
			}
		}
	}
	return inputs, nil
}

// pixelSource loads images and dumps as pixel sequences.
type pixelSource struct {
	loader image.Loader
	scale  float64
}

// newPixelSource returns a source thumbnailing by scale. A nil cache
// fetches URLs on every load.
func newPixelSource(scale float64, cache *imagecache.Cache) *pixelSource {
	loader := image.NewSmartLoader()
	if cache != nil {
		loader.WithCache(cache)
	}
	return &pixelSource{loader: loader, scale: scale}
}

// load returns the pixels for in. Images are thumbnailed by the configured
// scale first; dumps are used as stored.
func (s *pixelSource) load(ctx context.Context, in input) ([]quantize.Pixel, error) {
	var (
		img stdimage.Image
		err error
	)
	switch in.kind {
	case inputDataset:
		return dataset.Load(in.path)
	case inputArchived:
		img, err = image.Decode(in.data)
	default:
		img, err = s.loader.Load(ctx, in.path)
	}
	if err != nil {
		return nil, err
	}
	return image.Pixels(image.Thumbnail(img, s.scale)), nil
}

// jobs wraps inputs as batch jobs.
func (s *pixelSource) jobs(inputs []input) []batch.Job {
	jobs := make([]batch.Job, len(inputs))
	for i, in := range inputs {
		jobs[i] = batch.Job{
			Name: in.path,
			Load: func(ctx context.Context) ([]quantize.Pixel, error) {
				return s.load(ctx, in)
			},
		}
	}
	return jobs
}
