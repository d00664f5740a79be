// Package stats computes the percentile summary reported after a simulation
// run: critical values of the eigenvalue-sum distribution across trials.
package stats

import "sort"

// DefaultPercentiles are the critical-value levels reported by cmd/simulate.
var DefaultPercentiles = []float64{0.5, 0.75, 0.8, 0.85, 0.9, 0.95, 0.975, 0.99}

// Sum returns the sum of one trial's values.
func Sum(values []float64) float64 {
	var s float64
	for _, v := range values {
		s += v
	}
	return s
}

// Percentiles returns the requested percentiles (fractions in [0,1)) of the
// sample. The input is not modified. Returns nil for an empty sample.
func Percentiles(sample []float64, levels []float64) []float64 {
	if len(sample) == 0 {
		return nil
	}
	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	out := make([]float64, len(levels))
	for i, p := range levels {
		idx := int(float64(len(sorted)) * p)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		out[i] = sorted[idx]
	}
	return out
}
