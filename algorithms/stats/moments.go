package stats

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// MomentResult contains the descriptive moments of a sample
type MomentResult struct {
	Mean     float64 `json:"mean"`     // First raw moment (μ₁)
	Variance float64 `json:"variance"` // Second central moment (σ²), divisor n
	StdDev   float64 `json:"std_dev"`  // Standard deviation (σ)
	Skewness float64 `json:"skewness"` // Third standardized moment
	Kurtosis float64 `json:"kurtosis"` // Fourth standardized moment (excess when FisherKurtosis)

	MeanSquare    float64   `json:"mean_square"`     // E[X²]
	MeanAbsolute  float64   `json:"mean_absolute"`   // E[|X|]
	CentralMoment []float64 `json:"central_moments"` // μ₂, μ₃, μ₄

	CoefficientOfVariation float64 `json:"coefficient_of_variation"` // σ/μ, 0 when μ = 0

	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleRange float64 `json:"sample_range"`
	NumSamples  int     `json:"num_samples"`
}

// MomentParams contains parameters for moment calculation
type MomentParams struct {
	FisherKurtosis bool `json:"fisher_kurtosis"` // Subtract 3 so a normal distribution scores 0
}

// Moments computes biased (population) sample moments of a signal.
//
// References:
//   - Kendall, M., Stuart, A. (1977). "The Advanced Theory of Statistics, Volume 1"
//   - Joanes, D.N., Gill, C.A. (1998). "Comparing measures of sample skewness and
//     kurtosis". The Statistician 47(1), 183-189 (estimators g1 and g2)
//
// Moments provide the basic shape description of a measured signal:
// - 1st moment: Location (mean)
// - 2nd moment: Spread (variance)
// - 3rd moment: Asymmetry (skewness)
// - 4th moment: Tail behavior (kurtosis)
//
// Skewness and kurtosis use the biased g1/g2 estimators (m3/m2^1.5, m4/m2²),
// matching the figures reported by common numerical toolkits.
type Moments struct {
	params MomentParams
}

// NewMoments creates a new moment analyzer with excess kurtosis
func NewMoments() *Moments {
	return &Moments{
		params: MomentParams{
			FisherKurtosis: true,
		},
	}
}

// NewMomentsWithParams creates a moment analyzer with custom parameters
func NewMomentsWithParams(params MomentParams) *Moments {
	return &Moments{params: params}
}

// Analyze computes the moments of data
func (m *Moments) Analyze(data []float64) (*MomentResult, error) {
	n := len(data)
	if n == 0 {
		return nil, fmt.Errorf("empty data")
	}

	mean := floats.Sum(data) / float64(n)

	var m2, m3, m4, sumSq, sumAbs float64
	for _, x := range data {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
		sumSq += x * x
		sumAbs += math.Abs(x)
	}
	m2 /= float64(n)
	m3 /= float64(n)
	m4 /= float64(n)

	result := &MomentResult{
		Mean:          mean,
		Variance:      m2,
		StdDev:        math.Sqrt(m2),
		MeanSquare:    sumSq / float64(n),
		MeanAbsolute:  sumAbs / float64(n),
		CentralMoment: []float64{m2, m3, m4},
		Min:           floats.Min(data),
		Max:           floats.Max(data),
		NumSamples:    n,
	}
	result.SampleRange = result.Max - result.Min

	if m2 > 0 {
		result.Skewness = m3 / math.Pow(m2, 1.5)
		result.Kurtosis = m4 / (m2 * m2)
		if m.params.FisherKurtosis {
			result.Kurtosis -= 3
		}
	}

	if mean != 0 {
		result.CoefficientOfVariation = result.StdDev / mean
	}

	return result, nil
}

// GetParameters returns current parameters
func (m *Moments) GetParameters() MomentParams {
	return m.params
}
