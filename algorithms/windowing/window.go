package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Type names a window function
type Type string

const (
	TypeHann        Type = "hann"
	TypeHamming     Type = "hamming"
	TypeBlackman    Type = "blackman"
	TypeRectangular Type = "rectangular"
	TypeTukey       Type = "tukey"
)

// defaultTukeyAlpha is the taper fraction used when a Tukey window is built by name
const defaultTukeyAlpha = 0.25

// Window is a precomputed window function.
// Periodic (symmetric=false) windows are the usual choice for spectral analysis.
type Window struct {
	kind         Type
	size         int
	symmetric    bool
	coefficients []float64
}

// New creates a window by name. Unknown names return an error.
func New(name string, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	switch Type(strings.ToLower(strings.TrimSpace(name))) {
	case TypeHann, "hanning", "":
		return NewHann(size, symmetric), nil
	case TypeHamming:
		return NewHamming(size, symmetric), nil
	case TypeBlackman:
		return NewBlackman(size, symmetric), nil
	case TypeRectangular, "boxcar", "none":
		return NewRectangular(size), nil
	case TypeTukey:
		return NewTukey(size, defaultTukeyAlpha, symmetric), nil
	default:
		return nil, fmt.Errorf("unknown window type %q", name)
	}
}

// NewHann creates a Hann window: 0.5(1 - cos(2πn/M))
func NewHann(size int, symmetric bool) *Window {
	return newCosineSum(TypeHann, size, symmetric, 0.5, 0.5, 0)
}

// NewHamming creates a Hamming window: 0.54 - 0.46cos(2πn/M)
func NewHamming(size int, symmetric bool) *Window {
	return newCosineSum(TypeHamming, size, symmetric, 0.54, 0.46, 0)
}

// NewBlackman creates a Blackman window: 0.42 - 0.5cos(2πn/M) + 0.08cos(4πn/M)
func NewBlackman(size int, symmetric bool) *Window {
	return newCosineSum(TypeBlackman, size, symmetric, 0.42, 0.5, 0.08)
}

// NewRectangular creates a window of ones
func NewRectangular(size int) *Window {
	w := &Window{kind: TypeRectangular, size: size, symmetric: true}
	w.coefficients = make([]float64, size)
	for i := range w.coefficients {
		w.coefficients[i] = 1
	}
	return w
}

// NewTukey creates a tapered cosine window; alpha is the tapered fraction
func NewTukey(size int, alpha float64, symmetric bool) *Window {
	if alpha >= 1 {
		w := NewHann(size, symmetric)
		w.kind = TypeTukey
		return w
	}

	w := &Window{kind: TypeTukey, size: size, symmetric: symmetric}
	w.coefficients = make([]float64, size)

	// periodic windows are the first size samples of a symmetric size+1 window
	m := size
	if !symmetric {
		m++
	}
	span := float64(m - 1)
	width := int(math.Floor(alpha * span / 2))

	for i := 0; i < size; i++ {
		switch {
		case alpha <= 0 || m == 1:
			w.coefficients[i] = 1.0
		case i <= width:
			w.coefficients[i] = 0.5 * (1 + math.Cos(math.Pi*(-1+2*float64(i)/(alpha*span))))
		case i >= m-width-1:
			w.coefficients[i] = 0.5 * (1 + math.Cos(math.Pi*(-2/alpha+1+2*float64(i)/(alpha*span))))
		default:
			w.coefficients[i] = 1.0
		}
	}
	return w
}

// newCosineSum builds a0 - a1cos(2πn/M) + a2cos(4πn/M)
func newCosineSum(kind Type, size int, symmetric bool, a0, a1, a2 float64) *Window {
	w := &Window{kind: kind, size: size, symmetric: symmetric}
	w.coefficients = make([]float64, size)

	if size == 1 {
		w.coefficients[0] = 1
		return w
	}

	denominator := float64(size)
	if symmetric {
		denominator = float64(size - 1)
	}

	for i := 0; i < size; i++ {
		phase := 2 * math.Pi * float64(i) / denominator
		w.coefficients[i] = a0 - a1*math.Cos(phase) + a2*math.Cos(2*phase)
	}
	return w
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := 0; i < w.size; i++ {
		signal[i] *= w.coefficients[i]
	}
	return nil
}

// GetCoefficients returns a copy of the window coefficients
func (w *Window) GetCoefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// SumSquares returns Σw², the power normalisation of the window
func (w *Window) SumSquares() float64 {
	sum := 0.0
	for _, c := range w.coefficients {
		sum += c * c
	}
	return sum
}

// GetType returns the window type
func (w *Window) GetType() string {
	return string(w.kind)
}
