package wavelet

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Polynomials are stored as coefficient slices in ascending powers.

// polyMul multiplies two polynomials
func polyMul(a, b []float64) []float64 {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	out := make([]float64, len(a)+len(b)-1)
	for i, x := range a {
		for j, y := range b {
			out[i+j] += x * y
		}
	}
	return out
}

// binomial returns C(n, k) as a float
func binomial(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	result := 1.0
	for i := 1; i <= k; i++ {
		result = result * float64(n-k+i) / float64(i)
	}
	return result
}

// cosPower returns the z-domain taps of cos^n(ω/2) up to a delay,
// i.e. ((1+z)/2)^n
func cosPower(n int) []float64 {
	taps := make([]float64, n+1)
	scale := math.Pow(2, -float64(n))
	for k := 0; k <= n; k++ {
		taps[k] = binomial(n, k) * scale
	}
	return taps
}

// daubechiesPoly returns P_K(y) = Σ_{p<K} C(K-1+p, p) y^p
func daubechiesPoly(k int) []float64 {
	p := make([]float64, k)
	for i := 0; i < k; i++ {
		p[i] = binomial(k-1+i, i)
	}
	return p
}

// sinSquaredTaps is y = sin²(ω/2) written as a symmetric z-polynomial
var sinSquaredTaps = []float64{-0.25, 0.5, -0.25}

// yPolyToTaps maps a polynomial in y = sin²(ω/2) to symmetric filter taps
func yPolyToTaps(q []float64) []float64 {
	if len(q) == 0 {
		return []float64{1}
	}

	degree := len(q) - 1
	out := make([]float64, 2*degree+1)
	power := []float64{1}

	for p, coeff := range q {
		offset := degree - p
		for i, v := range power {
			out[offset+i] += coeff * v
		}
		power = polyMul(power, sinSquaredTaps)
	}

	return out
}

// rootGroup is either one real root or a complex-conjugate pair,
// represented by the member with positive imaginary part
type rootGroup struct {
	root    complex128
	isPair  bool
	modulus float64
}

// factor returns the monic-at-zero real factor contributed by the group:
// (1 - y/r) for a real root, (1 - y/r)(1 - y/r̄) for a pair
func (g rootGroup) factor() []float64 {
	if !g.isPair {
		return []float64{1, -1 / real(g.root)}
	}
	m := g.modulus * g.modulus
	return []float64{1, -2 * real(g.root) / m, 1 / m}
}

// degree returns the number of roots in the group
func (g rootGroup) degree() int {
	if g.isPair {
		return 2
	}
	return 1
}

// polyRoots finds the roots of p with the eigenvalues of its companion
// matrix and groups conjugates, ordered by increasing modulus
func polyRoots(p []float64) ([]rootGroup, error) {
	n := len(p) - 1
	if n < 1 {
		return nil, nil
	}
	lead := p[n]
	if lead == 0 {
		return nil, fmt.Errorf("leading coefficient is zero")
	}

	companion := mat.NewDense(n, n, nil)
	for i := 1; i < n; i++ {
		companion.Set(i, i-1, 1)
	}
	for i := 0; i < n; i++ {
		companion.Set(i, n-1, -p[i]/lead)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(companion, mat.EigenNone); !ok {
		return nil, fmt.Errorf("eigen decomposition did not converge")
	}

	var groups []rootGroup
	for _, r := range eig.Values(nil) {
		switch {
		case math.Abs(imag(r)) < 1e-9:
			groups = append(groups, rootGroup{root: complex(real(r), 0), modulus: math.Abs(real(r))})
		case imag(r) > 0:
			groups = append(groups, rootGroup{root: r, isPair: true, modulus: cmplx.Abs(r)})
		}
	}

	slices.SortStableFunc(groups, func(a, b rootGroup) int {
		return cmp.Compare(a.modulus, b.modulus)
	})

	return groups, nil
}

// normalizeTaps scales taps so that they sum to √2
func normalizeTaps(taps []float64) []float64 {
	sum := 0.0
	for _, v := range taps {
		sum += v
	}

	out := make([]float64, len(taps))
	for i, v := range taps {
		out[i] = v * math.Sqrt2 / sum
	}
	return out
}
