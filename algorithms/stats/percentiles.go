package stats

import (
	"fmt"
	"math"
	"sort"
)

// PercentileMethod represents different methods for calculating percentiles
type PercentileMethod int

const (
	// Linear interpolation between closest ranks (numpy default, R-7)
	Linear PercentileMethod = iota

	// Lower value of the two closest ranks
	Lower

	// Higher value of the two closest ranks
	Higher

	// Midpoint of the two closest ranks
	Midpoint

	// Nearest rank, ties rounding to the even index
	Nearest
)

// QuartileInfo contains quartile-specific information
type QuartileInfo struct {
	Q1  float64 `json:"q1"`  // First quartile (25th percentile)
	Q2  float64 `json:"q2"`  // Second quartile (50th percentile, median)
	Q3  float64 `json:"q3"`  // Third quartile (75th percentile)
	IQR float64 `json:"iqr"` // Interquartile range (Q3 - Q1)
}

// Percentiles implements order-statistic summaries of a sample
//
// References:
//   - Hyndman, R.J., Fan, Y. (1996). "Sample Quantiles in Statistical Packages"
//     The American Statistician, 50(4), 361-365
//   - Tukey, J.W. (1977). "Exploratory Data Analysis"
type Percentiles struct {
	method PercentileMethod
}

// NewPercentiles creates a new percentile analyzer with linear interpolation method
func NewPercentiles() *Percentiles {
	return &Percentiles{method: Linear}
}

// NewPercentilesWithMethod creates a percentile analyzer with specified method
func NewPercentilesWithMethod(method PercentileMethod) *Percentiles {
	return &Percentiles{method: method}
}

// CalculatePercentile computes a single percentile value (0-100)
func (p *Percentiles) CalculatePercentile(data []float64, percentile float64) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty data")
	}
	if percentile < 0 || percentile > 100 {
		return 0, fmt.Errorf("percentile must be between 0 and 100")
	}

	return p.calculatePercentile(sortedCopy(data), percentile), nil
}

// Quartiles computes Q1, median, Q3 and the interquartile range
func (p *Percentiles) Quartiles(data []float64) (QuartileInfo, error) {
	if len(data) == 0 {
		return QuartileInfo{}, fmt.Errorf("empty data")
	}

	sorted := sortedCopy(data)
	q1 := p.calculatePercentile(sorted, 25)
	q2 := p.calculatePercentile(sorted, 50)
	q3 := p.calculatePercentile(sorted, 75)

	return QuartileInfo{
		Q1:  q1,
		Q2:  q2,
		Q3:  q3,
		IQR: q3 - q1,
	}, nil
}

// calculatePercentile dispatches on the method; sortedData must be sorted
func (p *Percentiles) calculatePercentile(sortedData []float64, percentile float64) float64 {
	n := len(sortedData)
	if n == 1 {
		return sortedData[0]
	}

	q := percentile / 100.0
	h := float64(n-1) * q
	lower := int(math.Floor(h))
	upper := int(math.Ceil(h))

	switch p.method {
	case Lower:
		return sortedData[lower]
	case Higher:
		return sortedData[upper]
	case Midpoint:
		return 0.5 * (sortedData[lower] + sortedData[upper])
	case Nearest:
		return sortedData[int(math.RoundToEven(h))]
	default:
		return p.linearInterpolation(sortedData, h)
	}
}

// linearInterpolation interpolates at zero-based fractional rank h = (n-1)q
func (p *Percentiles) linearInterpolation(data []float64, h float64) float64 {
	n := len(data)
	if h <= 0 {
		return data[0]
	}
	if h >= float64(n-1) {
		return data[n-1]
	}

	lower := int(math.Floor(h))
	fraction := h - float64(lower)
	return data[lower] + fraction*(data[lower+1]-data[lower])
}


// Median returns the middle value (mean of the two middle values for even n)
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(data)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}

// Mode returns the most frequent value; ties resolve to the smallest value
func Mode(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}

	sorted := sortedCopy(data)
	best := sorted[0]
	bestCount := 0

	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j] == sorted[i] {
			j++
		}
		if count := j - i; count > bestCount {
			best = sorted[i]
			bestCount = count
		}
		i = j
	}

	return best
}

func sortedCopy(data []float64) []float64 {
	values := make([]float64, len(data))
	copy(values, data)
	sort.Float64s(values)
	return values
}
