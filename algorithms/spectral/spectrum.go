package spectral

import (
	"fmt"
	"math/cmplx"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/common"
)

// Spectrum is a one-sided magnitude spectrum
type Spectrum struct {
	Frequencies []float64 `json:"frequencies"`
	Magnitudes  []float64 `json:"magnitudes"`
	SampleRate  float64   `json:"sample_rate"`
	FFTSize     int       `json:"fft_size"`
}

// SpectrumOptions controls padding and scaling of MagnitudeSpectrum
type SpectrumOptions struct {
	ZeroPad   bool `json:"zero_pad" mapstructure:"zero_pad"`   // pad to the next power of two
	Normalize bool `json:"normalize" mapstructure:"normalize"` // divide magnitudes by the signal length
}

// DefaultSpectrumOptions pads and normalizes
func DefaultSpectrumOptions() SpectrumOptions {
	return SpectrumOptions{
		ZeroPad:   true,
		Normalize: true,
	}
}

// MagnitudeSpectrum computes |FFT| over bins 0..NFFT/2 with frequencies
// fs·k/NFFT, so the axis stops at Nyquist
func MagnitudeSpectrum(signal []float64, sampleRate float64, opts SpectrumOptions) (*Spectrum, error) {
	n := len(signal)
	if n == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %v", sampleRate)
	}

	nfft := n
	if opts.ZeroPad {
		nfft = common.NextPowerOfTwo(n)
	}

	transform := NewFFT().ComputePadded(signal, nfft)

	bins := nfft/2 + 1
	scale := 1.0
	if opts.Normalize {
		scale = 1.0 / float64(n)
	}

	spectrum := &Spectrum{
		Frequencies: make([]float64, bins),
		Magnitudes:  make([]float64, bins),
		SampleRate:  sampleRate,
		FFTSize:     nfft,
	}
	for k := 0; k < bins; k++ {
		spectrum.Frequencies[k] = sampleRate * float64(k) / float64(nfft)
		spectrum.Magnitudes[k] = cmplx.Abs(transform[k]) * scale
	}

	return spectrum, nil
}
