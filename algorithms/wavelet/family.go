package wavelet

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnsupportedFamily is returned for wavelet names outside the biorthogonal set
var ErrUnsupportedFamily = errors.New("unsupported wavelet family")

// Family holds the four filters of a biorthogonal wavelet.
// All filters share the same even length.
type Family struct {
	Name                string    `json:"name"`
	ReconstructionOrder int       `json:"reconstruction_order"` // Nr: vanishing moments of the synthesis wavelet
	DecompositionOrder  int       `json:"decomposition_order"`  // Nd: vanishing moments of the analysis wavelet
	DecLo               []float64 `json:"dec_lo"`
	DecHi               []float64 `json:"dec_hi"`
	RecLo               []float64 `json:"rec_lo"`
	RecHi               []float64 `json:"rec_hi"`
}

// Length returns the common filter length
func (f *Family) Length() int {
	return len(f.DecLo)
}

// familySpec describes how a family is built.
// recDegree < 0 keeps all of P_K on the decomposition side (spline families),
// otherwise recDegree roots of P_K are moved to the reconstruction side.
type familySpec struct {
	nr, nd    int
	recDegree int
}

var familySpecs = map[string]familySpec{
	"bior1.1": {1, 1, -1},
	"bior1.3": {1, 3, -1},
	"bior1.5": {1, 5, -1},
	"bior2.2": {2, 2, -1},
	"bior2.4": {2, 4, -1},
	"bior2.6": {2, 6, -1},
	"bior2.8": {2, 8, -1},
	"bior3.1": {3, 1, -1},
	"bior3.3": {3, 3, -1},
	"bior3.5": {3, 5, -1},
	"bior3.7": {3, 7, -1},
	"bior3.9": {3, 9, -1},
	"bior4.4": {4, 4, 1},
	"bior5.5": {5, 5, 2},
	"bior6.8": {6, 8, 2},
}

var (
	familyCache   = make(map[string]*Family)
	familyCacheMu sync.Mutex
)

// SupportedFamilies returns the supported wavelet names in sorted order
func SupportedFamilies() []string {
	names := make([]string, 0, len(familySpecs))
	for name := range familySpecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupFamily returns the filter bank for name, building it on first use.
// The returned family is shared and must not be modified.
func LookupFamily(name string) (*Family, error) {
	spec, ok := familySpecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFamily, name)
	}

	familyCacheMu.Lock()
	defer familyCacheMu.Unlock()

	if f, ok := familyCache[name]; ok {
		return f, nil
	}

	f, err := buildFamily(name, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", name, err)
	}
	familyCache[name] = f
	return f, nil
}

// buildFamily constructs the Cohen-Daubechies-Feauveau filters for a spec.
//
// References:
//   - Cohen, A., Daubechies, I., Feauveau, J.-C. (1992). "Biorthogonal bases
//     of compactly supported wavelets". Comm. Pure Appl. Math. 45(5), 485-560
//   - Daubechies, I. (1992). "Ten Lectures on Wavelets", chapter 8.3
//
// Both low-pass filters are products of a binomial (spline) factor and a part
// of P_K(sin²(ω/2)), K = (Nr+Nd)/2. Spline families keep P_K entirely on the
// analysis side; the others split its roots, smallest modulus first, giving
// nearly equal lengths (bior4.4 is the CDF 9/7 pair).
func buildFamily(name string, spec familySpec) (*Family, error) {
	k := (spec.nr + spec.nd) / 2
	pk := daubechiesPoly(k)

	var recTaps, decTaps []float64
	if spec.recDegree < 0 {
		recTaps = cosPower(spec.nr)
		decTaps = polyMul(cosPower(spec.nd), yPolyToTaps(pk))
	} else {
		groups, err := polyRoots(pk)
		if err != nil {
			return nil, err
		}

		recQ := []float64{1}
		decQ := []float64{1}
		used := 0
		for _, g := range groups {
			if used < spec.recDegree {
				recQ = polyMul(recQ, g.factor())
				used += g.degree()
			} else {
				decQ = polyMul(decQ, g.factor())
			}
		}

		recTaps = polyMul(cosPower(spec.nr), yPolyToTaps(recQ))
		decTaps = polyMul(cosPower(spec.nd), yPolyToTaps(decQ))
	}

	decTaps = normalizeTaps(decTaps)
	recTaps = normalizeTaps(recTaps)

	length := max(len(decTaps), len(recTaps))
	length += length % 2

	var decLo, recLo []float64
	if len(decTaps)%2 == 1 {
		// odd taps: centres at L/2 and L/2-1
		decLo = placeTaps(decTaps, length, length/2-(len(decTaps)-1)/2)
		recLo = placeTaps(recTaps, length, length/2-1-(len(recTaps)-1)/2)
	} else {
		decLo = placeTaps(decTaps, length, (length-len(decTaps))/2)
		recLo = placeTaps(recTaps, length, (length-len(recTaps))/2)
	}

	decHi := make([]float64, length)
	recHi := make([]float64, length)
	for i := 0; i < length; i++ {
		if i%2 == 0 {
			decHi[i] = -recLo[i]
			recHi[i] = decLo[i]
		} else {
			decHi[i] = recLo[i]
			recHi[i] = -decLo[i]
		}
	}

	return &Family{
		Name:                name,
		ReconstructionOrder: spec.nr,
		DecompositionOrder:  spec.nd,
		DecLo:               decLo,
		DecHi:               decHi,
		RecLo:               recLo,
		RecHi:               recHi,
	}, nil
}

// placeTaps zero-pads taps into a filter of the given length starting at offset
func placeTaps(taps []float64, length, offset int) []float64 {
	out := make([]float64, length)
	copy(out[offset:], taps)
	return out
}
