// Package vectormath provides small shared vector operations over the
// float32 embeddings used throughout the store adapters and plugins.
package vectormath

import "math"

// Cosine returns the cosine similarity of two vectors. Mismatched
// lengths are compared over the shorter prefix; zero vectors score 0.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ToFloat64 widens a float32 vector for use with gonum routines.
func ToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
