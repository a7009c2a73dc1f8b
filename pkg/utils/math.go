package utils

import "math"

// Dot returns the dot product of a and b accumulated in float64. Extra elements of the longer
// slice are ignored.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// L2Norm returns the Euclidean length of x.
func L2Norm(x []float32) float64 {
	return math.Sqrt(Dot(x, x))
}

// NormalizeL2 scales x in place to unit length. A zero vector is left unchanged.
func NormalizeL2(x []float32) {
	norm := L2Norm(x)
	if norm == 0 {
		return
	}
	for i := range x {
		x[i] = float32(float64(x[i]) / norm)
	}
}
