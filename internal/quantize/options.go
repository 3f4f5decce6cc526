package quantize

import (
	"github.com/hashicorp/go-hclog"
)

// settings holds the optional knobs shared by all quantizers.
type settings struct {
	logger hclog.Logger
	seed   uint64
	seeded bool
}

// Option configures a quantizer.
type Option func(*settings)

// WithLogger sets the logger used for trace output. Quantizers are silent by
// default.
func WithLogger(logger hclog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSeed fixes the random seed used by k-means initialisation so that
// repeated runs produce identical palettes. Other algorithms ignore it.
func WithSeed(seed uint64) Option {
	return func(s *settings) {
		s.seed = seed
		s.seeded = true
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
