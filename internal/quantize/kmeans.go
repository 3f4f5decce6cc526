package quantize

import (
	"fmt"
	"math"
	"math/rand/v2"
)

const (
	// DefaultMaxIterations is the k-means iteration cap.
	DefaultMaxIterations = 20

	// DefaultConvergenceThreshold is the squared distance every centroid must
	// move less than for k-means to stop early.
	DefaultConvergenceThreshold = 25.0
)

// KMeans quantizes by iterative centroid refinement over the full pixel set.
type KMeans struct {
	maxIterations int
	threshold     float64
	settings

	// initial overrides random initialisation when set. Its length must equal k.
	initial []Pixel
}

// NewKMeans creates a KMeans quantizer. maxIterations caps the refinement
// loop and threshold is a squared-distance movement bound below which all
// centroids are considered settled.
func NewKMeans(maxIterations int, threshold float64, opts ...Option) (*KMeans, error) {
	if maxIterations < 1 {
		return nil, fmt.Errorf("max iterations must be at least 1, got %d", maxIterations)
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, fmt.Errorf("convergence threshold must be non-negative, got %v", threshold)
	}
	return &KMeans{
		maxIterations: maxIterations,
		threshold:     threshold,
		settings:      newSettings(opts),
	}, nil
}

// Name returns the algorithm identifier.
func (q *KMeans) Name() Algorithm {
	return AlgorithmKMeans
}

// centroid is a cluster centre in continuous RGB space.
type centroid [channels]float64

func (c centroid) distance(p Pixel) float64 {
	var d float64
	for i := range channels {
		diff := c[i] - float64(p.Channel(i))
		d += diff * diff
	}
	return d
}

func (c centroid) moved(other centroid) float64 {
	var d float64
	for i := range channels {
		diff := c[i] - other[i]
		d += diff * diff
	}
	return d
}

func (c centroid) pixel() Pixel {
	var out [channels]uint8
	for i, v := range c {
		out[i] = uint8(math.Max(0, math.Min(255, math.Floor(v))))
	}
	return Pixel{R: out[0], G: out[1], B: out[2]}
}

// Quantize runs k-means over pixels and returns k centroids in index order.
func (q *KMeans) Quantize(pixels []Pixel, k int) (*Result, error) {
	if err := validateInput(pixels, k); err != nil {
		return nil, err
	}

	centroids := q.initialCentroids(k)
	counts := make([]int, k)

	for iter := 0; iter < q.maxIterations; iter++ {
		sums := make([]centroid, k)
		clear(counts)

		for _, p := range pixels {
			nearest := nearestCentroid(p, centroids)
			sums[nearest][0] += float64(p.R)
			sums[nearest][1] += float64(p.G)
			sums[nearest][2] += float64(p.B)
			counts[nearest]++
		}

		// Empty clusters keep their previous centroid.
		next := make([]centroid, k)
		for i := range next {
			if counts[i] == 0 {
				next[i] = centroids[i]
				continue
			}
			n := float64(counts[i])
			next[i] = centroid{sums[i][0] / n, sums[i][1] / n, sums[i][2] / n}
		}

		settled := true
		maxMove := 0.0
		for i := range centroids {
			move := centroids[i].moved(next[i])
			maxMove = math.Max(maxMove, move)
			if move >= q.threshold {
				settled = false
			}
		}

		q.logger.Trace("kmeans iteration", "iteration", iter+1, "max_move", maxMove, "settled", settled)
		if settled {
			break
		}
		centroids = next
	}

	palette := make(Palette, k)
	for i, c := range centroids {
		palette[i] = c.pixel()
	}

	return &Result{
		Palette:   palette,
		Counts:    counts,
		Requested: k,
	}, nil
}

// initialCentroids draws k independent uniform points in [0, 255]^3.
func (q *KMeans) initialCentroids(k int) []centroid {
	centroids := make([]centroid, k)
	if len(q.initial) == k {
		for i, p := range q.initial {
			centroids[i] = centroid{float64(p.R), float64(p.G), float64(p.B)}
		}
		return centroids
	}

	rng := q.newRand()
	for i := range centroids {
		for c := range channels {
			centroids[i][c] = float64(rng.IntN(256))
		}
	}
	return centroids
}

// newRand returns a fresh generator for one run.
func (q *KMeans) newRand() *rand.Rand {
	if q.seeded {
		return rand.New(rand.NewPCG(q.seed, q.seed^0x9e3779b97f4a7c15))
	}
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// nearestCentroid returns the index of the closest centroid. On equal
// distances the lowest index wins.
func nearestCentroid(p Pixel, centroids []centroid) int {
	nearest := 0
	minDist := math.Inf(1)
	for i, c := range centroids {
		if d := c.distance(p); d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest
}
