package wavelet

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-wavelet/logging"
)

const (
	// MinLevels and MaxLevels bound the decomposition depth
	MinLevels = 1
	MaxLevels = 20
)

var (
	// ErrInsufficientSamples is returned when the signal has fewer than 2^levels samples
	ErrInsufficientSamples = errors.New("insufficient samples for decomposition level")

	// ErrInvalidLevels is returned when levels is outside [MinLevels, MaxLevels]
	ErrInvalidLevels = errors.New("invalid decomposition level")
)

// Decomposition holds a multi-level wavelet decomposition.
// Details[0] is the coarsest level and Details[Levels-1] the finest.
type Decomposition struct {
	Family         string      `json:"family"`
	Levels         int         `json:"levels"`
	OriginalLength int         `json:"original_length"`
	Approximation  []float64   `json:"approximation"`
	Details        [][]float64 `json:"detail"`

	source []float64
}

// DetailLevel returns the decomposition level of Details[i] (1 is the finest)
func (d *Decomposition) DetailLevel(i int) int {
	return d.Levels - i
}

// Clone returns a deep copy of the coefficients
func (d *Decomposition) Clone() *Decomposition {
	details := make([][]float64, len(d.Details))
	for i, detail := range d.Details {
		details[i] = append([]float64(nil), detail...)
	}
	return &Decomposition{
		Family:         d.Family,
		Levels:         d.Levels,
		OriginalLength: d.OriginalLength,
		Approximation:  append([]float64(nil), d.Approximation...),
		Details:        details,
		source:         d.source,
	}
}

// Source returns the signal the decomposition was computed from, if known
func (d *Decomposition) Source() []float64 {
	return d.source
}

// Decomposer performs multi-level biorthogonal wavelet decomposition.
//
// References:
//   - Mallat, S. (1989). "A theory for multiresolution signal decomposition:
//     the wavelet representation". IEEE PAMI 11(7), 674-693
//   - Lee, G., Gommers, R., Waselewski, F., Wohlfahrt, K., O'Leary, A. (2019).
//     "PyWavelets: A Python package for wavelet analysis". JOSS 4(36), 1237
//
// Each level splits the running approximation into a half-band approximation
// and detail with symmetric boundary handling. The transform is deterministic
// and perfectly reconstructing.
type Decomposer struct {
	family *Family
	logger logging.Logger
}

// NewDecomposer creates a decomposer for the named family
func NewDecomposer(family string) (*Decomposer, error) {
	f, err := LookupFamily(family)
	if err != nil {
		return nil, err
	}
	return &Decomposer{
		family: f,
		logger: logging.WithFields(logging.Fields{
			"component": "wavelet_decomposer",
			"family":    family,
		}),
	}, nil
}

// Family returns the filter bank in use
func (d *Decomposer) Family() *Family {
	return d.family
}

// ValidateLevels checks the level bound for a signal of n samples
func ValidateLevels(n, levels int) error {
	if levels < MinLevels || levels > MaxLevels {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidLevels, levels, MinLevels, MaxLevels)
	}
	if n < 1<<levels {
		return fmt.Errorf("%w: %d samples, level %d requires at least %d", ErrInsufficientSamples, n, levels, 1<<levels)
	}
	return nil
}

// Decompose runs the transform for the given number of levels
func (d *Decomposer) Decompose(ctx context.Context, signal []float64, levels int) (*Decomposition, error) {
	if err := ValidateLevels(len(signal), levels); err != nil {
		return nil, err
	}

	logger := d.logger.WithFields(logging.Fields{
		"function": "Decompose",
		"samples":  len(signal),
		"levels":   levels,
	})

	details := make([][]float64, levels)
	approx := signal

	for level := 1; level <= levels; level++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var detail []float64
		approx, detail = DWT(approx, d.family)
		details[levels-level] = detail
	}

	logger.Debug("Wavelet decomposition complete", logging.Fields{
		"approximation_length": len(approx),
	})

	return &Decomposition{
		Family:         d.family.Name,
		Levels:         levels,
		OriginalLength: len(signal),
		Approximation:  approx,
		Details:        details,
		source:         signal,
	}, nil
}

// Reconstruct inverts a decomposition and trims the result to OriginalLength
func Reconstruct(ctx context.Context, dec *Decomposition) ([]float64, error) {
	family, err := LookupFamily(dec.Family)
	if err != nil {
		return nil, err
	}
	if len(dec.Details) == 0 {
		return nil, fmt.Errorf("%w: decomposition has no detail levels", ErrInvalidLevels)
	}

	approx := dec.Approximation
	for i, detail := range dec.Details {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// odd-length inputs leave one extra approximation sample per level
		if len(approx) == len(detail)+1 {
			approx = approx[:len(approx)-1]
		}

		approx, err = IDWT(approx, detail, family)
		if err != nil {
			return nil, fmt.Errorf("level %d: %w", dec.DetailLevel(i), err)
		}
	}

	if dec.OriginalLength > 0 && len(approx) > dec.OriginalLength {
		approx = approx[:dec.OriginalLength]
	}

	return approx, nil
}
