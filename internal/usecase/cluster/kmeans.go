package cluster

import (
	"context"
	"errors"
	"io"
	"math/rand"

	"go.uber.org/zap"
)

// minSeedPool is the floor on the seed-pool size regardless of k.
const minSeedPool = 100

// clusterer partitions an embedding stream with k-means: k-means++ seeding
// over a bounded seed pool, one assignment pass over the full stream, one
// centroid update, one final reassignment. It is deliberately a
// single-refinement heuristic, not Lloyd's algorithm run to convergence.
//
// The assignment pass materializes every admitted value in memory so the
// update and reassignment steps can see them all. For sampled telemetry the
// working set stays small; the memory cost of the second pass is a known,
// accepted trade against cluster quality.
type clusterer struct {
	k       int
	minSize int
	rng     *rand.Rand
	logger  *zap.Logger
}

// runStats describes what a clustering run actually did.
type runStats struct {
	// effectiveK is the number of centroids used, after any reduction to fit
	// a small seed pool.
	effectiveK int
	// validValues is the number of values admitted to clustering (valid
	// vector of the run's dimensionality).
	validValues int
}

// run consumes the stream and returns the clusters with at least minSize
// members plus the members of dissolved smaller clusters. Clusters and
// dissolved values together hold every admitted value exactly once.
func (c *clusterer) run(ctx context.Context, stream valueStream) ([][]Value, []Value, runStats, error) {
	var stats runStats

	target := 3 * c.k
	if target < minSeedPool {
		target = minSeedPool
	}

	// Seed collection pass: the first values observed, in stream order. Whole
	// batches are admitted, so the pool may overshoot the target; truncating
	// the final batch would lose its tail, since no later pass revisits it.
	var (
		seeds   []Value
		dim     int
		srcDone bool
	)
	for len(seeds) < target && !srcDone {
		batch, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			srcDone = true
			break
		}
		if err != nil {
			return nil, nil, stats, err
		}
		for _, v := range batch {
			if c.admit(&dim, v) {
				seeds = append(seeds, v)
			}
		}
	}
	if len(seeds) == 0 {
		return nil, nil, stats, nil
	}

	k := c.k
	if len(seeds) < k {
		k = len(seeds) / 2
		if k < 1 {
			k = 1
		}
		c.logger.Debug("reduced cluster count to fit seed pool",
			zap.Int("requested", c.k), zap.Int("effective", k),
			zap.Int("seed_pool", len(seeds)))
	}
	stats.effectiveK = k

	centroids := c.seedCentroids(seeds, k)

	// Assignment pass over the full stream: the seed pool first, then every
	// remaining batch, in the order the stream produced them.
	assigned := make([][]Value, len(centroids))
	for _, v := range seeds {
		i := nearest(centroids, v.Vector)
		assigned[i] = append(assigned[i], v)
	}
	for !srcDone {
		batch, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, stats, err
		}
		for _, v := range batch {
			if !c.admit(&dim, v) {
				continue
			}
			i := nearest(centroids, v.Vector)
			assigned[i] = append(assigned[i], v)
		}
	}

	// Centroid update: element-wise mean of the assigned vectors. A cluster
	// that ended up empty keeps its prior centroid.
	for i, members := range assigned {
		if len(members) == 0 {
			continue
		}
		centroids[i] = meanVector(members, dim)
	}

	// Exactly one reassignment against the updated centroids.
	final := make([][]Value, len(centroids))
	for _, members := range assigned {
		for _, v := range members {
			i := nearest(centroids, v.Vector)
			final[i] = append(final[i], v)
		}
	}

	var (
		clusters  [][]Value
		dissolved []Value
	)
	for _, members := range final {
		switch {
		case len(members) == 0:
		case len(members) < c.minSize:
			dissolved = append(dissolved, members...)
		default:
			clusters = append(clusters, members)
		}
		stats.validValues += len(members)
	}

	return clusters, dissolved, stats, nil
}

// admit fixes the run's dimensionality at the first valid vector and rejects
// later vectors of any other length.
func (c *clusterer) admit(dim *int, v Value) bool {
	if len(v.Vector) == 0 {
		return false
	}
	if *dim == 0 {
		*dim = len(v.Vector)
		return true
	}
	if len(v.Vector) != *dim {
		c.logger.Warn("Skipping vector with mismatched dimensionality",
			zap.String("value", v.Value),
			zap.Int("expected", *dim), zap.Int("got", len(v.Vector)))
		return false
	}
	return true
}

// seedCentroids picks k initial centroids from the seed pool with k-means++
// weighting: the first uniformly at random, each subsequent one with
// probability proportional to its squared distance to the nearest centroid
// already chosen. Centroid vectors are copies; seed vectors are never mutated.
func (c *clusterer) seedCentroids(seeds []Value, k int) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, cloneVector(seeds[c.rng.Intn(len(seeds))].Vector))

	weights := make([]float64, len(seeds))
	for len(centroids) < k {
		total := 0.0
		for i, s := range seeds {
			weights[i] = nearestDistance(centroids, s.Vector)
			total += weights[i]
		}

		var next int
		if total == 0 {
			// Every remaining point coincides with a centroid.
			next = c.rng.Intn(len(seeds))
		} else {
			threshold := c.rng.Float64() * total
			acc := 0.0
			next = len(seeds) - 1
			for i := range seeds {
				acc += weights[i]
				if acc >= threshold {
					next = i
					break
				}
			}
		}
		centroids = append(centroids, cloneVector(seeds[next].Vector))
	}

	return centroids
}

// nearest returns the index of the closest centroid. Ties go to the
// first-encountered centroid, so results are deterministic for a fixed
// centroid order.
func nearest(centroids [][]float32, v []float32) int {
	best := 0
	bestDist := sqDist(centroids[0], v)
	for i := 1; i < len(centroids); i++ {
		if d := sqDist(centroids[i], v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// nearestDistance returns the squared distance to the closest centroid.
func nearestDistance(centroids [][]float32, v []float32) float64 {
	best := sqDist(centroids[0], v)
	for i := 1; i < len(centroids); i++ {
		if d := sqDist(centroids[i], v); d < best {
			best = d
		}
	}
	return best
}

// sqDist is the squared Euclidean distance, accumulated in float64.
func sqDist(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

// meanVector is the element-wise mean of the members' vectors.
func meanVector(members []Value, dim int) []float32 {
	acc := make([]float64, dim)
	for _, m := range members {
		for i, x := range m.Vector {
			acc[i] += float64(x)
		}
	}
	mean := make([]float32, dim)
	n := float64(len(members))
	for i, s := range acc {
		mean[i] = float32(s / n)
	}
	return mean
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
