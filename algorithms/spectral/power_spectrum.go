package spectral

import (
	"math"
)

// PowerSpectrum converts STFT magnitudes into power spectral density
type PowerSpectrum struct {
	// floor added before taking logarithms
	floor float64
}

// NewPowerSpectrum creates a power spectrum calculator with a 1e-10 log floor
func NewPowerSpectrum() *PowerSpectrum {
	return &PowerSpectrum{floor: 1e-10}
}

// DensityFromSTFT computes the one-sided power spectral density of each frame,
// |X|²/(fs·Σw²), doubling every bin except DC and (for even windows) Nyquist.
// The result is indexed [time][frequency].
func (ps *PowerSpectrum) DensityFromSTFT(stftResult *STFTResult, windowSumSquares float64) [][]float64 {
	scale := 0.0
	if windowSumSquares > 0 && stftResult.SampleRate > 0 {
		scale = 1.0 / (stftResult.SampleRate * windowSumSquares)
	}

	lastDoubled := stftResult.FreqBins - 1
	if stftResult.WindowSize%2 == 1 {
		lastDoubled = stftResult.FreqBins
	}

	density := make([][]float64, stftResult.TimeFrames)
	for t := 0; t < stftResult.TimeFrames; t++ {
		density[t] = make([]float64, stftResult.FreqBins)
		for f := 0; f < stftResult.FreqBins; f++ {
			mag := stftResult.Magnitude[t][f]
			power := mag * mag * scale
			if f > 0 && f < lastDoubled {
				power *= 2
			}
			density[t][f] = power
		}
	}

	return density
}

// ToDecibels returns 10·log10(p + floor), transposed to [frequency][time]
func (ps *PowerSpectrum) ToDecibels(density [][]float64) [][]float64 {
	if len(density) == 0 {
		return [][]float64{}
	}

	freqBins := len(density[0])
	out := make([][]float64, freqBins)
	for f := 0; f < freqBins; f++ {
		out[f] = make([]float64, len(density))
		for t := range density {
			out[f][t] = 10 * math.Log10(density[t][f]+ps.floor)
		}
	}
	return out
}
