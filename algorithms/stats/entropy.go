package stats

import (
	"fmt"
	"math"
)

// EntropyParams contains parameters for histogram entropy
type EntropyParams struct {
	NumBins int     `json:"num_bins"` // Fixed bin count; a fixed count keeps results deterministic
	BaseLog float64 `json:"base_log"` // Logarithm base (e for nats, 2 for bits)
}

// EntropyResult contains the entropy and the histogram it was computed from
type EntropyResult struct {
	Shannon       float64   `json:"shannon"`
	Normalized    float64   `json:"normalized"` // Shannon / log(NumBins)
	Histogram     []float64 `json:"histogram"`
	BinEdges      []float64 `json:"bin_edges"`
	Probabilities []float64 `json:"probabilities"`
}

// Entropy computes Shannon entropy of a sample's amplitude distribution
//
// References:
//   - Shannon, C.E. (1948). "A Mathematical Theory of Communication"
//     Bell System Technical Journal, 27(3), 379-423
//   - Cover, T.M., Thomas, J.A. (2006). "Elements of Information Theory"
//
// Values are binned into NumBins equal-width bins spanning [min, max];
// H(X) = -Σ p log p over the non-empty bins. H is zero for a constant sample
// and never negative.
type Entropy struct {
	params EntropyParams
}

// NewEntropy creates an entropy calculator with 64 bins in nats
func NewEntropy() *Entropy {
	return &Entropy{
		params: EntropyParams{
			NumBins: 64,
			BaseLog: math.E,
		},
	}
}

// NewEntropyWithParams creates an entropy calculator with custom parameters
func NewEntropyWithParams(params EntropyParams) *Entropy {
	if params.NumBins <= 0 {
		params.NumBins = 64
	}
	if params.BaseLog <= 1 {
		params.BaseLog = math.E
	}
	return &Entropy{params: params}
}

// Analyze builds the histogram of data and computes its entropy
func (e *Entropy) Analyze(data []float64) (*EntropyResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	histogram, edges := e.buildHistogram(data, e.params.NumBins)
	probabilities := normalizeToProbabilities(histogram)
	shannon := e.calculateShannonEntropy(probabilities)

	normalized := 0.0
	if e.params.NumBins > 1 {
		normalized = shannon / (math.Log(float64(e.params.NumBins)) / math.Log(e.params.BaseLog))
	}

	return &EntropyResult{
		Shannon:       shannon,
		Normalized:    normalized,
		Histogram:     histogram,
		BinEdges:      edges,
		Probabilities: probabilities,
	}, nil
}

// Shannon returns only the Shannon entropy of data (0 for empty input)
func (e *Entropy) Shannon(data []float64) float64 {
	result, err := e.Analyze(data)
	if err != nil {
		return 0
	}
	return result.Shannon
}

// buildHistogram constructs a fixed-width histogram over the data range
func (e *Entropy) buildHistogram(data []float64, numBins int) ([]float64, []float64) {
	min := data[0]
	max := data[0]
	for _, x := range data {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}

	// all values equal: a single occupied bin
	if min == max {
		return []float64{float64(len(data))}, []float64{min, max}
	}

	binWidth := (max - min) / float64(numBins)
	edges := make([]float64, numBins+1)
	for i := 0; i <= numBins; i++ {
		edges[i] = min + float64(i)*binWidth
	}

	histogram := make([]float64, numBins)
	for _, x := range data {
		binIdx := int((x - min) / binWidth)
		if binIdx >= numBins {
			binIdx = numBins - 1
		}
		if binIdx < 0 {
			binIdx = 0
		}
		histogram[binIdx]++
	}

	return histogram, edges
}

// normalizeToProbabilities converts histogram counts to probabilities
func normalizeToProbabilities(histogram []float64) []float64 {
	total := 0.0
	for _, count := range histogram {
		total += count
	}

	probabilities := make([]float64, len(histogram))
	if total == 0 {
		return probabilities
	}
	for i, count := range histogram {
		probabilities[i] = count / total
	}
	return probabilities
}

// calculateShannonEntropy computes Shannon entropy
// H(X) = -∑ p(x) * log(p(x))
func (e *Entropy) calculateShannonEntropy(probabilities []float64) float64 {
	entropy := 0.0
	logBase := math.Log(e.params.BaseLog)

	for _, p := range probabilities {
		if p > 0 {
			entropy -= p * math.Log(p) / logBase
		}
	}

	// -0 and rounding noise on single-bin histograms
	if entropy < 0 {
		entropy = 0
	}
	return entropy
}

// GetParameters returns current parameters
func (e *Entropy) GetParameters() EntropyParams {
	return e.params
}
