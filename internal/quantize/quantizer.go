package quantize

import (
	"fmt"
	"strings"
)

// Quantizer reduces a pixel sequence to a palette.
type Quantizer interface {
	// Quantize returns a palette of (at most) k colours for pixels.
	Quantize(pixels []Pixel, k int) (*Result, error)

	// Name identifies the algorithm.
	Name() Algorithm
}

// Algorithm represents the quantization algorithm type.
type Algorithm string

const (
	// AlgorithmKMeans uses k-means clustering from random initial centroids.
	AlgorithmKMeans Algorithm = "kmeans"

	// AlgorithmMedianCut bisects the densest colour box until k boxes exist.
	AlgorithmMedianCut Algorithm = "mediancut"

	// AlgorithmOctree builds a bounded octree and ranks its leaves.
	AlgorithmOctree Algorithm = "octree"

	// AlgorithmAll selects every algorithm, in ValidAlgorithms order.
	AlgorithmAll Algorithm = "all"
)

// ValidAlgorithms returns a list of valid algorithm names.
func ValidAlgorithms() []Algorithm {
	return []Algorithm{
		AlgorithmKMeans,
		AlgorithmMedianCut,
		AlgorithmOctree,
	}
}

// IsValidAlgorithm checks if the given algorithm name is valid.
func IsValidAlgorithm(alg Algorithm) bool {
	for _, valid := range ValidAlgorithms() {
		if alg == valid {
			return true
		}
	}
	return false
}

// ParseAlgorithms parses a comma separated list of algorithm names. "all"
// expands to every algorithm. Duplicates are dropped.
func ParseAlgorithms(s string) ([]Algorithm, error) {
	var out []Algorithm
	seen := make(map[Algorithm]bool)
	for _, part := range strings.Split(s, ",") {
		alg := Algorithm(strings.ToLower(strings.TrimSpace(part)))
		var expanded []Algorithm
		switch {
		case alg == AlgorithmAll:
			expanded = ValidAlgorithms()
		case IsValidAlgorithm(alg):
			expanded = []Algorithm{alg}
		default:
			return nil, fmt.Errorf("unknown algorithm: %q (valid algorithms: %v, all)", part, ValidAlgorithms())
		}
		for _, a := range expanded {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// Config holds the per-invocation parameters for all algorithms.
type Config struct {
	Colours       int
	MaxIterations int
	Threshold     float64
	MaxLeaves     int
}

// DefaultConfig returns the default quantizer configuration.
func DefaultConfig() Config {
	return Config{
		Colours:       4,
		MaxIterations: DefaultMaxIterations,
		Threshold:     DefaultConvergenceThreshold,
		MaxLeaves:     DefaultMaxLeaves,
	}
}

// Validate validates the configuration for the given algorithm.
func (c Config) Validate(alg Algorithm) error {
	if !IsValidAlgorithm(alg) {
		return fmt.Errorf("invalid algorithm: %s", alg)
	}
	if c.Colours < 1 {
		return fmt.Errorf("%w: colour count must be at least 1, got %d", ErrInvalidPaletteSize, c.Colours)
	}
	if c.Colours > 256 {
		return fmt.Errorf("%w: colour count too large: %d (maximum: 256)", ErrInvalidPaletteSize, c.Colours)
	}
	switch alg {
	case AlgorithmKMeans:
		if c.MaxIterations < 1 {
			return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
		}
		if c.Threshold < 0 {
			return fmt.Errorf("convergence threshold must be non-negative, got %v", c.Threshold)
		}
	case AlgorithmOctree:
		if c.MaxLeaves < c.Colours {
			return fmt.Errorf("%w: max leaves %d is below colour count %d", ErrInvalidPaletteSize, c.MaxLeaves, c.Colours)
		}
	}
	return nil
}

// New creates a Quantizer for alg using the parameters in c.
func New(alg Algorithm, c Config, opts ...Option) (Quantizer, error) {
	if err := c.Validate(alg); err != nil {
		return nil, err
	}
	switch alg {
	case AlgorithmKMeans:
		q, err := NewKMeans(c.MaxIterations, c.Threshold, opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	case AlgorithmMedianCut:
		return NewMedianCut(opts...), nil
	case AlgorithmOctree:
		q, err := NewOctree(c.MaxLeaves, opts...)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %s (valid algorithms: %v)", alg, ValidAlgorithms())
	}
}
