package spectral

import (
	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp.
// Any length is accepted; non power-of-two sizes use Bluestein's algorithm.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// ComputePadded zero-pads x to n samples (n >= len(x)) before transforming
func (f *FFT) ComputePadded(x []float64, n int) []complex128 {
	if n <= len(x) {
		return f.Compute(x)
	}
	padded := make([]float64, n)
	copy(padded, x)
	return fft.FFTReal(padded)
}
