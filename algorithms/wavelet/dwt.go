package wavelet

import (
	"fmt"
)

// symmetricIndex maps an index outside [0, n) onto the half-sample
// symmetric extension of a signal of length n: ... x1 x0 | x0 x1 ... x(n-1) | x(n-1) x(n-2) ...
func symmetricIndex(i, n int) int {
	period := 2 * n
	m := i % period
	if m < 0 {
		m += period
	}
	if m < n {
		return m
	}
	return period - 1 - m
}

// CoefficientLength returns the length of each output array of a single-level
// transform of n samples with filters of length filterLength
func CoefficientLength(n, filterLength int) int {
	if n <= 0 {
		return 0
	}
	return (n + filterLength - 1) / 2
}

// DWT computes one level of the discrete wavelet transform with symmetric
// boundary extension, returning approximation and detail coefficients.
// Each output has CoefficientLength(len(x), f.Length()) samples.
func DWT(x []float64, f *Family) (approx, detail []float64) {
	n := len(x)
	if n == 0 {
		return []float64{}, []float64{}
	}

	filterLen := f.Length()
	outLen := CoefficientLength(n, filterLen)
	approx = make([]float64, outLen)
	detail = make([]float64, outLen)

	// output o is the full convolution sampled at 2o+1
	for o := 0; o < outLen; o++ {
		i := 2*o + 1
		var a, d float64
		for j := 0; j < filterLen; j++ {
			sample := x[symmetricIndex(i-j, n)]
			a += f.DecLo[j] * sample
			d += f.DecHi[j] * sample
		}
		approx[o] = a
		detail[o] = d
	}

	return approx, detail
}

// IDWT inverts one level of the transform. approx and detail must have equal
// length n; the output has 2n - L + 2 samples.
func IDWT(approx, detail []float64, f *Family) ([]float64, error) {
	if len(approx) != len(detail) {
		return nil, fmt.Errorf("coefficient length mismatch: approximation %d, detail %d", len(approx), len(detail))
	}

	filterLen := f.Length()
	half := filterLen / 2
	n := len(approx)
	if n < half {
		return nil, fmt.Errorf("too few coefficients (%d) for filter length %d", n, filterLen)
	}

	out := make([]float64, 2*(n-half+1))

	for i := half - 1; i < n; i++ {
		var even, odd float64
		for j := 0; j < half; j++ {
			a := approx[i-j]
			d := detail[i-j]
			even += f.RecLo[2*j]*a + f.RecHi[2*j]*d
			odd += f.RecLo[2*j+1]*a + f.RecHi[2*j+1]*d
		}
		o := 2 * (i - half + 1)
		out[o] = even
		out[o+1] = odd
	}

	return out, nil
}
