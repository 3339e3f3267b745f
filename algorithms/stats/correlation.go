package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Pearson returns the Pearson correlation coefficient of x and y over their
// common prefix. ok is false when the coefficient is undefined (fewer than
// two samples or a constant input).
func Pearson(x, y []float64) (r float64, ok bool) {
	n := min(len(x), len(y))
	if n < 2 {
		return 0, false
	}

	r = stat.Correlation(x[:n], y[:n], nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return clampCorrelation(r), true
}

// clampCorrelation clamps rounding overshoot to [-1, 1]
func clampCorrelation(correlation float64) float64 {
	if correlation > 1.0 {
		return 1.0
	}
	if correlation < -1.0 {
		return -1.0
	}
	return correlation
}
