package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/common"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/stats"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-wavelet/logging"
)

// ErrDegenerateSignal is returned for empty signals and signals whose samples are all equal
var ErrDegenerateSignal = errors.New("degenerate signal")

// SignalFeatureNames lists the signal features in output order
var SignalFeatureNames = []string{
	"Mean",
	"Median",
	"Mode",
	"Std Dev",
	"Variance",
	"Mean Square",
	"RMS",
	"Min",
	"Max",
	"Peak-to-Peak",
	"Peak-to-RMS",
	"Percentile 25",
	"Percentile 75",
	"Interquartile Range",
	"Skewness",
	"Kurtosis",
	"Energy",
	"Power",
	"Crest Factor",
	"Impulse Factor",
	"Shape Factor",
	"Shannon Entropy",
	"Signal-to-Noise Ratio",
	"Root Mean Square Error",
	"Maximum Error",
	"Mean Absolute Error",
	"Peak Signal-to-Noise Ratio",
	"Coefficient of Variation",
}

// Reference relates an analysed signal to the measurement it came from.
// Original is the raw signal and Noise the part removed by denoising.
type Reference struct {
	Original []float64
	Noise    []float64
}

// Extractor computes FeatureSets. It holds no per-call state.
type Extractor struct {
	moments     *stats.Moments
	percentiles *stats.Percentiles
	entropy     *stats.Entropy
	logger      logging.Logger
}

// NewExtractor creates an extractor whose entropy histograms use entropyBins bins
func NewExtractor(entropyBins int) *Extractor {
	return &Extractor{
		moments:     stats.NewMomentsWithParams(stats.MomentParams{FisherKurtosis: true}),
		percentiles: stats.NewPercentiles(),
		entropy: stats.NewEntropyWithParams(stats.EntropyParams{
			NumBins: entropyBins,
			BaseLog: math.E,
		}),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}
}

// EntropyBins returns the histogram bin count used for entropy features
func (e *Extractor) EntropyBins() int {
	return e.entropy.GetParameters().NumBins
}

// Extract computes the signal features of signal sampled at sampleRate Hz.
// With a nil ref the error features are zero, as for a signal compared with
// itself. Power is Energy·fs/2 and is zero when sampleRate is not positive.
func (e *Extractor) Extract(signal []float64, sampleRate float64, ref *Reference) (FeatureSet, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("%w: empty signal", ErrDegenerateSignal)
	}

	m, err := e.moments.Analyze(signal)
	if err != nil {
		return nil, err
	}
	if m.Min == m.Max {
		e.logger.Debug("rejecting constant signal", logging.Fields{
			"function": "Extract",
			"samples":  len(signal),
		})
		return nil, fmt.Errorf("%w: all %d samples equal %g", ErrDegenerateSignal, len(signal), m.Min)
	}

	q, err := e.percentiles.Quartiles(signal)
	if err != nil {
		return nil, err
	}

	rms := math.Sqrt(m.MeanSquare)
	peak := common.MaxAbs(signal)
	energy := m.MeanSquare * float64(len(signal))
	power := 0.0
	if sampleRate > 0 {
		power = energy * sampleRate / 2
	}

	original := signal
	var noise []float64
	if ref != nil {
		if ref.Original != nil {
			original = ref.Original
		}
		noise = ref.Noise
	}
	errs := compare(signal, original)

	snr := 0.0
	if noiseEnergy := common.SumSquares(noise); noiseEnergy > 0 {
		snr = 10 * math.Log10(energy/noiseEnergy)
	}

	psnr := 0.0
	if errs.rmse > 0 {
		psnr = 20 * math.Log10(common.MaxAbs(original)/errs.rmse)
	}

	values := []float64{
		m.Mean,
		q.Q2,
		stats.Mode(signal),
		m.StdDev,
		m.Variance,
		m.MeanSquare,
		rms,
		m.Min,
		m.Max,
		m.SampleRange,
		m.Max / rms,
		q.Q1,
		q.Q3,
		q.IQR,
		m.Skewness,
		m.Kurtosis,
		energy,
		power,
		peak / rms,
		peak / m.MeanAbsolute,
		rms / m.MeanAbsolute,
		e.entropy.Shannon(signal),
		snr,
		errs.rmse,
		errs.max,
		errs.mae,
		psnr,
		m.CoefficientOfVariation,
	}

	fs := make(FeatureSet, len(SignalFeatureNames))
	for i, name := range SignalFeatureNames {
		fs[i] = Feature{Name: name, Value: common.SanitizeFloat(values[i])}
	}
	return fs, nil
}

type errorStats struct {
	rmse, max, mae float64
}

// compare measures signal against original over their common length
func compare(signal, original []float64) errorStats {
	diff := common.Subtract(signal, original)
	if len(diff) == 0 {
		return errorStats{}
	}
	return errorStats{
		rmse: common.RMS(diff),
		max:  common.MaxAbs(diff),
		mae:  common.MeanAbs(diff),
	}
}

// ExtractCoefficients computes per-array energy (Σc²/n) and entropy of |c|.
// Arrays are labelled in wire order: the approximation, then Detail 1 for
// the coarsest detail through Detail L for the finest.
func (e *Extractor) ExtractCoefficients(dec *wavelet.Decomposition) FeatureSet {
	labels := make([]string, 0, len(dec.Details)+1)
	arrays := make([][]float64, 0, len(dec.Details)+1)

	labels = append(labels, "Approximation")
	arrays = append(arrays, dec.Approximation)
	for i, detail := range dec.Details {
		labels = append(labels, fmt.Sprintf("Detail %d", i+1))
		arrays = append(arrays, detail)
	}

	fs := make(FeatureSet, 0, 2*len(arrays))
	for i, c := range arrays {
		energy := 0.0
		if len(c) > 0 {
			energy = common.SumSquares(c) / float64(len(c))
		}
		fs = append(fs, Feature{Name: labels[i] + " Energy", Value: common.SanitizeFloat(energy)})
	}
	for i, c := range arrays {
		magnitudes := make([]float64, len(c))
		for j, v := range c {
			magnitudes[j] = math.Abs(v)
		}
		fs = append(fs, Feature{Name: labels[i] + " Entropy", Value: common.SanitizeFloat(e.entropy.Shannon(magnitudes))})
	}
	return fs
}
