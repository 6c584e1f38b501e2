package calculator

import "math"

// Returns computes the simple percentage change v[t]/v[t-1] - 1. The first
// row is NaN.
func Returns(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}
