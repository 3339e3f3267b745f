package wavelet

import (
	"context"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-wavelet/logging"
)

// DenoiseResult holds a denoised signal together with the thresholded
// coefficients it was reconstructed from
type DenoiseResult struct {
	Values       []float64       `json:"values"`
	Thresholds   []float64       `json:"thresholds"` // one per detail array, coarsest first
	NoiseSigma   float64         `json:"noise_sigma"`
	Policy       ThresholdPolicy `json:"policy"`
	Coefficients *Decomposition  `json:"-"`
}

// Denoiser applies a threshold policy to the detail coefficients of a
// decomposition and reconstructs the signal.
//
// References:
//   - Donoho, D.L., Johnstone, I.M. (1994). "Ideal spatial adaptation by wavelet
//     shrinkage". Biometrika 81(3), 425-455
//   - Donoho, D.L. (1995). "De-noising by soft-thresholding".
//     IEEE Trans. Inf. Theory 41(3), 613-627
//
// The approximation array is never thresholded.
type Denoiser struct {
	policy ThresholdPolicy
	logger logging.Logger
}

// NewDenoiser creates a denoiser with the default policy
func NewDenoiser() *Denoiser {
	return NewDenoiserWithPolicy(DefaultThresholdPolicy())
}

// NewDenoiserWithPolicy creates a denoiser with a custom policy
func NewDenoiserWithPolicy(policy ThresholdPolicy) *Denoiser {
	return &Denoiser{
		policy: policy,
		logger: logging.WithFields(logging.Fields{
			"component": "wavelet_denoiser",
		}),
	}
}

// Policy returns the threshold policy in use
func (d *Denoiser) Policy() ThresholdPolicy {
	return d.policy
}

// Denoise thresholds a copy of dec and reconstructs exactly dec.OriginalLength samples
func (d *Denoiser) Denoise(ctx context.Context, dec *Decomposition) (*DenoiseResult, error) {
	if err := d.policy.Validate(); err != nil {
		return nil, err
	}
	if len(dec.Details) == 0 {
		return nil, fmt.Errorf("%w: decomposition has no detail levels", ErrInvalidLevels)
	}

	logger := d.logger.WithFields(logging.Fields{
		"function":  "Denoise",
		"family":    dec.Family,
		"levels":    dec.Levels,
		"mode":      d.policy.Mode,
		"estimator": d.policy.Estimator,
	})

	thresholded := dec.Clone()
	thresholds, sigma, err := d.thresholds(ctx, dec)
	if err != nil {
		return nil, err
	}

	for i, detail := range thresholded.Details {
		ApplyThreshold(detail, thresholds[i], d.policy.Mode)
	}

	values, err := Reconstruct(ctx, thresholded)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct: %w", err)
	}
	if len(values) != dec.OriginalLength {
		return nil, fmt.Errorf("reconstructed %d samples, expected %d", len(values), dec.OriginalLength)
	}

	logger.Debug("Denoising complete", logging.Fields{
		"noise_sigma": sigma,
	})

	return &DenoiseResult{
		Values:       values,
		Thresholds:   thresholds,
		NoiseSigma:   sigma,
		Policy:       d.policy,
		Coefficients: thresholded,
	}, nil
}

// thresholds computes one threshold per detail array
func (d *Denoiser) thresholds(ctx context.Context, dec *Decomposition) ([]float64, float64, error) {
	thresholds := make([]float64, len(dec.Details))
	if d.policy.Mode == NoThreshold {
		return thresholds, 0, nil
	}

	n := dec.OriginalLength

	switch d.policy.Estimator {
	case LevelEstimator:
		sigma := 0.0
		for i, detail := range dec.Details {
			levelSigma := MADSigma(detail)
			thresholds[i] = UniversalThreshold(levelSigma, len(detail))
			if i == len(dec.Details)-1 {
				sigma = levelSigma
			}
		}
		return thresholds, sigma, nil

	case FinestEstimator:
		sigma := MADSigma(dec.Details[len(dec.Details)-1])
		fill(thresholds, UniversalThreshold(sigma, n))
		return thresholds, sigma, nil

	default:
		source := dec.Source()
		if len(source) == 0 {
			var err error
			source, err = Reconstruct(ctx, dec)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to recover source signal: %w", err)
			}
		}
		sigma := DifferenceSigma(source)
		if math.IsNaN(sigma) || math.IsInf(sigma, 0) {
			sigma = 0
		}
		fill(thresholds, UniversalThreshold(sigma, n))
		return thresholds, sigma, nil
	}
}

func fill(values []float64, v float64) {
	for i := range values {
		values[i] = v
	}
}
