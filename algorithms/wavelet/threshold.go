package wavelet

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidPolicy is returned for unknown threshold modes or noise estimators
var ErrInvalidPolicy = errors.New("invalid threshold policy")

// ThresholdMode selects how coefficients are shrunk
type ThresholdMode string

const (
	// SoftThreshold shrinks magnitudes toward zero by the threshold
	SoftThreshold ThresholdMode = "soft"

	// HardThreshold zeroes coefficients below the threshold and keeps the rest
	HardThreshold ThresholdMode = "hard"

	// NoThreshold leaves coefficients untouched
	NoThreshold ThresholdMode = "none"
)

// NoiseEstimator selects how the noise level behind the threshold is estimated
type NoiseEstimator string

const (
	// DifferenceEstimator estimates σ from third-order differences of the signal
	// and applies the universal threshold σ√(2 ln N) to every detail level
	DifferenceEstimator NoiseEstimator = "difference"

	// FinestEstimator estimates σ from the finest detail level (VisuShrink)
	FinestEstimator NoiseEstimator = "finest"

	// LevelEstimator thresholds each detail array with its own
	// √(2 ln n_j)·median(|d_j|)/0.6745
	LevelEstimator NoiseEstimator = "level"
)

// madScale converts a median absolute deviation of Gaussian noise into σ
const madScale = 0.6745

// ThresholdPolicy combines a shrinkage mode with a noise estimator
type ThresholdPolicy struct {
	Mode      ThresholdMode  `json:"mode" mapstructure:"mode"`
	Estimator NoiseEstimator `json:"estimator" mapstructure:"estimator"`
}

// DefaultThresholdPolicy returns soft thresholding with the difference estimator
func DefaultThresholdPolicy() ThresholdPolicy {
	return ThresholdPolicy{
		Mode:      SoftThreshold,
		Estimator: DifferenceEstimator,
	}
}

// Validate checks that mode and estimator are known
func (p ThresholdPolicy) Validate() error {
	switch p.Mode {
	case SoftThreshold, HardThreshold, NoThreshold:
	default:
		return fmt.Errorf("%w: unknown threshold mode %q", ErrInvalidPolicy, p.Mode)
	}
	switch p.Estimator {
	case DifferenceEstimator, FinestEstimator, LevelEstimator:
	default:
		return fmt.Errorf("%w: unknown noise estimator %q", ErrInvalidPolicy, p.Estimator)
	}
	return nil
}

// ApplyThreshold shrinks values in place according to mode
func ApplyThreshold(values []float64, threshold float64, mode ThresholdMode) {
	if threshold <= 0 || mode == NoThreshold {
		return
	}

	for i, v := range values {
		magnitude := math.Abs(v)
		switch mode {
		case SoftThreshold:
			if magnitude <= threshold {
				values[i] = 0
			} else {
				values[i] = math.Copysign(magnitude-threshold, v)
			}
		case HardThreshold:
			if magnitude <= threshold {
				values[i] = 0
			}
		}
	}
}

// UniversalThreshold returns σ√(2 ln n)
func UniversalThreshold(sigma float64, n int) float64 {
	if n < 2 || sigma <= 0 {
		return 0
	}
	return sigma * math.Sqrt(2*math.Log(float64(n)))
}

// MADSigma estimates the standard deviation of Gaussian noise as median(|x|)/0.6745
func MADSigma(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	abs := make([]float64, len(values))
	for i, v := range values {
		abs[i] = math.Abs(v)
	}
	return median(abs) / madScale
}

// DifferenceSigma estimates the noise σ of a signal from its normalised
// third-order differences, which cancel locally quadratic trends.
//
// References:
//   - Gasser, T., Sroka, L., Jennen-Steinmetz, C. (1986). "Residual variance and
//     residual pattern in nonlinear regression". Biometrika 73(3), 625-633
//   - Hall, P., Kay, J.W., Titterington, D.M. (1990). "Asymptotically optimal
//     difference-based estimation of variance in nonparametric regression"
func DifferenceSigma(signal []float64) float64 {
	if len(signal) < 4 {
		return 0
	}

	norm := math.Sqrt(20)
	diffs := make([]float64, len(signal)-3)
	for i := range diffs {
		diffs[i] = (signal[i+3] - 3*signal[i+2] + 3*signal[i+1] - signal[i]) / norm
	}
	return MADSigma(diffs)
}

// median returns the median of values, reordering them
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sort.Float64s(values)
	if n%2 == 1 {
		return values[n/2]
	}
	return 0.5 * (values[n/2-1] + values[n/2])
}
