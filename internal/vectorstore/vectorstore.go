// Package vectorstore provides vector distance helpers and an external nearest-neighbour backend.
package vectorstore

import "math"

// L2Distance returns the Euclidean distance between two vectors of equal length.
// Vectors of different length are compared over their common prefix.
func L2Distance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns the cosine similarity clamped to [0,1]; zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	switch {
	case sim < 0:
		return 0
	case sim > 1:
		return 1
	}
	return sim
}
