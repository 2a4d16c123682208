// Package embeddings provides utilities for embedding vectors.
package embeddings

import "math"

// NormalizeL2 scales vector in place to unit length. A zero vector is left unchanged.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// IsNormalized reports whether vector has unit length within tolerance.
func IsNormalized(vector []float32, tolerance float64) bool {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	return math.Abs(math.Sqrt(sumSquares)-1) <= tolerance
}
