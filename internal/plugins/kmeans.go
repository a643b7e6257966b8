package plugins

import (
	"math"
	"math/rand"

	"github.com/corpora-labs/corpora-cli/internal/vectormath"
)

// kmeansPartition partitions vectors into k groups by cosine distance
// using k-means++ seeding from the given source. The same seed over the
// same input always yields the same partition.
func kmeansPartition(vectors [][]float32, k int, rng *rand.Rand) [][]int {
	if k > len(vectors) {
		k = len(vectors)
	}
	centroids := seedCentroids(vectors, k, rng)
	assign := make([]int, len(vectors))

	const maxIterations = 50
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := 1 - vectormath.Cosine(v, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(centroids, vectors, assign)
	}

	groups := make([][]int, k)
	for i, c := range assign {
		groups[c] = append(groups[c], i)
	}
	return groups
}

// seedCentroids implements k-means++ seeding: the first centroid is
// drawn uniformly, each subsequent one with probability proportional to
// squared distance from the nearest chosen centroid.
func seedCentroids(vectors [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, copyVector(vectors[rng.Intn(len(vectors))]))

	dists := make([]float64, len(vectors))
	for len(centroids) < k {
		var total float64
		for i, v := range vectors {
			nearest := math.Inf(1)
			for _, c := range centroids {
				d := 1 - vectormath.Cosine(v, c)
				if d < nearest {
					nearest = d
				}
			}
			dists[i] = nearest * nearest
			total += dists[i]
		}
		if total == 0 {
			// All points coincide with a centroid; duplicate one.
			centroids = append(centroids, copyVector(vectors[0]))
			continue
		}
		target := rng.Float64() * total
		var acc float64
		chosen := len(vectors) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				chosen = i
				break
			}
		}
		centroids = append(centroids, copyVector(vectors[chosen]))
	}
	return centroids
}

func recomputeCentroids(centroids [][]float32, vectors [][]float32, assign []int) {
	dim := len(centroids[0])
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}
	for i, v := range vectors {
		c := assign[i]
		counts[c]++
		for j := 0; j < dim && j < len(v); j++ {
			sums[c][j] += float64(v[j])
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		for j := 0; j < dim; j++ {
			centroids[c][j] = float32(sums[c][j] / float64(counts[c]))
		}
	}
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
