package vector

import "github.com/hyperjump/cognidocs/pkg/utils"

// CosineSimilarity returns the cosine of the angle between a and b, 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := utils.L2Norm(a), utils.L2Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return utils.Dot(a, b) / (na * nb)
}
