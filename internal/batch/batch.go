// Package batch runs quantizers over many images in parallel. Images are
// independent: a failure on one never stops or alters the others.
package batch

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/prism/internal/quantize"
)

// Job is one image to quantize.
type Job struct {
	// Name identifies the image in outcomes and logs.
	Name string

	// Load produces the image's pixels. It is called once, on a worker.
	Load func(ctx context.Context) ([]quantize.Pixel, error)
}

// Outcome is the result of one algorithm on one image.
type Outcome struct {
	Image     string
	Algorithm quantize.Algorithm
	Pixels    int
	Result    *quantize.Result
	Err       error
	Elapsed   time.Duration
}

// Options configures a batch run.
type Options struct {
	// Algorithms to run on every image, in output order.
	Algorithms []quantize.Algorithm

	// Config holds the shared quantizer parameters.
	Config quantize.Config

	// Workers bounds how many images are processed at once. Zero means one
	// per CPU.
	Workers int

	// Logger receives per-image progress. Nil disables logging.
	Logger hclog.Logger

	// QuantizerOptions are passed to every quantizer.
	QuantizerOptions []quantize.Option
}

// Run quantizes every job with every configured algorithm. The returned
// outcomes are ordered by job, then by algorithm. Per-image failures are
// recorded in the outcomes; the error return is reserved for invalid options
// and cancellation.
func Run(ctx context.Context, jobs []Job, opts Options) ([]Outcome, error) {
	if len(opts.Algorithms) == 0 {
		return nil, fmt.Errorf("no algorithms selected")
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	logger = logger.Named("batch")

	quantizers := make([]quantize.Quantizer, len(opts.Algorithms))
	for i, alg := range opts.Algorithms {
		q, err := quantize.New(alg, opts.Config, opts.QuantizerOptions...)
		if err != nil {
			return nil, fmt.Errorf("invalid %s configuration: %w", alg, err)
		}
		quantizers[i] = q
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	outcomes := make([]Outcome, len(jobs)*len(quantizers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		slots := outcomes[i*len(quantizers) : (i+1)*len(quantizers)]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runJob(gctx, job, quantizers, opts.Config.Colours, slots, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, fmt.Errorf("batch interrupted: %w", err)
	}
	return outcomes, nil
}

// runJob loads one image and fills slots with one outcome per quantizer.
func runJob(ctx context.Context, job Job, quantizers []quantize.Quantizer, k int, slots []Outcome, logger hclog.Logger) {
	log := logger.With("image", job.Name)

	pixels, err := job.Load(ctx)
	if err != nil {
		log.Warn("failed to load image", "error", err)
		for i, q := range quantizers {
			slots[i] = Outcome{Image: job.Name, Algorithm: q.Name(), Err: fmt.Errorf("load: %w", err)}
		}
		return
	}
	log.Debug("loaded image", "pixels", len(pixels))

	for i, q := range quantizers {
		start := time.Now()
		res, err := q.Quantize(pixels, k)
		slots[i] = Outcome{
			Image:     job.Name,
			Algorithm: q.Name(),
			Pixels:    len(pixels),
			Result:    res,
			Err:       err,
			Elapsed:   time.Since(start),
		}

		switch {
		case err != nil:
			log.Warn("quantization failed", "algorithm", q.Name(), "error", err)
		case res.Underfill:
			log.Info("palette underfilled", "algorithm", q.Name(), "advisory", res.Advisory())
		default:
			log.Debug("quantized", "algorithm", q.Name(), "colours", len(res.Palette), "elapsed", slots[i].Elapsed)
		}
	}
}

// Errors combines the failures in outcomes into one error, or nil.
func Errors(outcomes []Outcome) error {
	var err error
	for _, o := range outcomes {
		if o.Err != nil {
			err = multierr.Append(err, fmt.Errorf("%s (%s): %w", o.Image, o.Algorithm, o.Err))
		}
	}
	return err
}
