package wavelet

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
)

func randomSignal(n int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(int64(seed)))
	x := make([]float64, n)
	for i := range x {
		x[i] = rng.NormFloat64()
	}
	return x
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestLookupFamilyUnsupported(t *testing.T) {
	for _, name := range []string{"db4", "haar", "bior7.7", ""} {
		if _, err := LookupFamily(name); !errors.Is(err, ErrUnsupportedFamily) {
			t.Fatalf("LookupFamily(%q) error = %v, want ErrUnsupportedFamily", name, err)
		}
	}
}

func TestFamilyFiltersAreNormalized(t *testing.T) {
	names := SupportedFamilies()
	if len(names) != 15 {
		t.Fatalf("expected 15 families, got %d", len(names))
	}

	for _, name := range names {
		f, err := LookupFamily(name)
		if err != nil {
			t.Fatalf("LookupFamily(%s): %v", name, err)
		}
		if f.Length()%2 != 0 {
			t.Fatalf("%s: odd filter length %d", name, f.Length())
		}
		for label, filter := range map[string][]float64{"dec_lo": f.DecLo, "rec_lo": f.RecLo, "dec_hi": f.DecHi, "rec_hi": f.RecHi} {
			if len(filter) != f.Length() {
				t.Fatalf("%s %s: length %d, want %d", name, label, len(filter), f.Length())
			}
		}

		var decLo, recLo, decHi, recHi float64
		for i := 0; i < f.Length(); i++ {
			decLo += f.DecLo[i]
			recLo += f.RecLo[i]
			decHi += f.DecHi[i]
			recHi += f.RecHi[i]
		}
		if math.Abs(decLo-math.Sqrt2) > 1e-12 || math.Abs(recLo-math.Sqrt2) > 1e-12 {
			t.Fatalf("%s: low-pass sums %v %v, want √2", name, decLo, recLo)
		}
		if math.Abs(decHi) > 1e-12 || math.Abs(recHi) > 1e-12 {
			t.Fatalf("%s: high-pass sums %v %v, want 0", name, decHi, recHi)
		}
	}
}

func TestKnownFilterTaps(t *testing.T) {
	tests := []struct {
		name  string
		decLo []float64
		recLo []float64
	}{
		{
			name:  "bior1.1",
			decLo: []float64{0.7071067812, 0.7071067812},
			recLo: []float64{0.7071067812, 0.7071067812},
		},
		{
			name:  "bior2.2",
			decLo: []float64{0, -0.1767766953, 0.3535533906, 1.0606601718, 0.3535533906, -0.1767766953},
			recLo: []float64{0, 0.3535533906, 0.7071067812, 0.3535533906, 0, 0},
		},
		{
			name:  "bior1.3",
			decLo: []float64{-0.0883883476, 0.0883883476, 0.7071067812, 0.7071067812, 0.0883883476, -0.0883883476},
			recLo: []float64{0, 0, 0.7071067812, 0.7071067812, 0, 0},
		},
		{
			// CDF 9/7
			name: "bior4.4",
			decLo: []float64{0, 0.0378284555, -0.0238494650, -0.1106244044, 0.3774028556,
				0.8526986790, 0.3774028556, -0.1106244044, -0.0238494650, 0.0378284555},
			recLo: []float64{0, -0.0645388826, -0.0406894176, 0.4180922732, 0.7884856164,
				0.4180922732, -0.0406894176, -0.0645388826, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := LookupFamily(tt.name)
			if err != nil {
				t.Fatalf("LookupFamily: %v", err)
			}
			if len(f.DecLo) != len(tt.decLo) {
				t.Fatalf("dec_lo length %d, want %d", len(f.DecLo), len(tt.decLo))
			}
			for i := range tt.decLo {
				if math.Abs(f.DecLo[i]-tt.decLo[i]) > 1e-9 {
					t.Fatalf("dec_lo[%d] = %.10f, want %.10f", i, f.DecLo[i], tt.decLo[i])
				}
				if math.Abs(f.RecLo[i]-tt.recLo[i]) > 1e-9 {
					t.Fatalf("rec_lo[%d] = %.10f, want %.10f", i, f.RecLo[i], tt.recLo[i])
				}
			}
		})
	}
}

func TestHaarSingleLevel(t *testing.T) {
	f, _ := LookupFamily("bior1.1")
	approx, detail := DWT([]float64{1, 3, 5, 7}, f)

	wantA := []float64{4 / math.Sqrt2, 12 / math.Sqrt2}
	wantD := []float64{-2 / math.Sqrt2, -2 / math.Sqrt2}
	for i := range wantA {
		if math.Abs(approx[i]-wantA[i]) > 1e-12 || math.Abs(detail[i]-wantD[i]) > 1e-12 {
			t.Fatalf("DWT = %v %v, want %v %v", approx, detail, wantA, wantD)
		}
	}
}

func TestRoundTripAllFamilies(t *testing.T) {
	ctx := context.Background()
	lengths := []int{7, 8, 16, 33, 100, 257}

	for _, name := range SupportedFamilies() {
		d, err := NewDecomposer(name)
		if err != nil {
			t.Fatalf("NewDecomposer(%s): %v", name, err)
		}

		for _, n := range lengths {
			for levels := 1; levels <= 4; levels++ {
				if n < 1<<levels {
					continue
				}
				x := randomSignal(n, uint64(n*10+levels))

				dec, err := d.Decompose(ctx, x, levels)
				if err != nil {
					t.Fatalf("%s n=%d levels=%d: %v", name, n, levels, err)
				}
				if len(dec.Details) != levels {
					t.Fatalf("%s: %d detail arrays, want %d", name, len(dec.Details), levels)
				}

				y, err := Reconstruct(ctx, dec)
				if err != nil {
					t.Fatalf("%s n=%d levels=%d reconstruct: %v", name, n, levels, err)
				}
				if len(y) != n {
					t.Fatalf("%s n=%d levels=%d: reconstructed %d samples", name, n, levels, len(y))
				}
				for i := range x {
					if math.Abs(x[i]-y[i]) > 1e-9 {
						t.Fatalf("%s n=%d levels=%d: sample %d = %v, want %v", name, n, levels, i, y[i], x[i])
					}
				}
			}
		}
	}
}

func TestCoefficientLengths(t *testing.T) {
	d, _ := NewDecomposer("bior3.5")
	x := randomSignal(1000, 1)

	dec, err := d.Decompose(context.Background(), x, 4)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}

	n := len(x)
	expected := make([]int, 4)
	for level := 1; level <= 4; level++ {
		n = CoefficientLength(n, d.Family().Length())
		expected[4-level] = n
	}
	for i, detail := range dec.Details {
		if len(detail) != expected[i] {
			t.Fatalf("detail %d (level %d): length %d, want %d", i, dec.DetailLevel(i), len(detail), expected[i])
		}
	}
	if len(dec.Approximation) != expected[0] {
		t.Fatalf("approximation length %d, want %d", len(dec.Approximation), expected[0])
	}
}

func TestLevelBound(t *testing.T) {
	d, _ := NewDecomposer("bior2.2")
	ctx := context.Background()

	if _, err := d.Decompose(ctx, randomSignal(8, 1), 4); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("8 samples at level 4: error = %v, want ErrInsufficientSamples", err)
	}
	if _, err := d.Decompose(ctx, randomSignal(16, 1), 4); err != nil {
		t.Fatalf("16 samples at level 4: %v", err)
	}
	if _, err := d.Decompose(ctx, randomSignal(15, 1), 4); !errors.Is(err, ErrInsufficientSamples) {
		t.Fatalf("15 samples at level 4: error = %v, want ErrInsufficientSamples", err)
	}
	for _, levels := range []int{0, -1, 21} {
		if _, err := d.Decompose(ctx, randomSignal(64, 1), levels); !errors.Is(err, ErrInvalidLevels) {
			t.Fatalf("levels=%d: error = %v, want ErrInvalidLevels", levels, err)
		}
	}
}

func TestDecomposeHonoursCancellation(t *testing.T) {
	d, _ := NewDecomposer("bior2.2")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := d.Decompose(ctx, randomSignal(64, 1), 3); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestThresholdModes(t *testing.T) {
	soft := []float64{-3, -1, 0, 0.5, 2}
	ApplyThreshold(soft, 1, SoftThreshold)
	wantSoft := []float64{-2, 0, 0, 0, 1}
	for i := range soft {
		if soft[i] != wantSoft[i] {
			t.Fatalf("soft = %v, want %v", soft, wantSoft)
		}
	}

	hard := []float64{-3, -1, 0, 0.5, 2}
	ApplyThreshold(hard, 1, HardThreshold)
	wantHard := []float64{-3, 0, 0, 0, 2}
	for i := range hard {
		if hard[i] != wantHard[i] {
			t.Fatalf("hard = %v, want %v", hard, wantHard)
		}
	}

	if err := (ThresholdPolicy{Mode: "medium", Estimator: LevelEstimator}).Validate(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if err := (ThresholdPolicy{Mode: SoftThreshold, Estimator: "guess"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown estimator")
	}
}

func TestDifferenceSigmaEstimatesNoise(t *testing.T) {
	noise := randomSignal(4096, 42)
	x := make([]float64, len(noise))
	for i := range x {
		x[i] = math.Sin(2*math.Pi*float64(i)/200) + 0.5*noise[i]
	}

	sigma := DifferenceSigma(x)
	if math.Abs(sigma-0.5) > 0.05 {
		t.Fatalf("DifferenceSigma = %v, want about 0.5", sigma)
	}
}

func TestDenoisePreservesLengthAndApproximation(t *testing.T) {
	ctx := context.Background()
	for _, n := range []int{16, 101, 512} {
		d, _ := NewDecomposer("bior3.3")
		x := randomSignal(n, uint64(n))

		dec, err := d.Decompose(ctx, x, 3)
		if err != nil {
			t.Fatalf("Decompose: %v", err)
		}
		res, err := NewDenoiser().Denoise(ctx, dec)
		if err != nil {
			t.Fatalf("Denoise: %v", err)
		}
		if len(res.Values) != n {
			t.Fatalf("n=%d: denoised length %d", n, len(res.Values))
		}
		if len(res.Thresholds) != 3 {
			t.Fatalf("thresholds = %v, want 3 values", res.Thresholds)
		}
		for i, v := range res.Coefficients.Approximation {
			if v != dec.Approximation[i] {
				t.Fatalf("approximation coefficient %d changed", i)
			}
		}
	}
}

func TestDenoiseWithoutThresholdReconstructs(t *testing.T) {
	ctx := context.Background()
	d, _ := NewDecomposer("bior6.8")
	x := randomSignal(300, 5)

	dec, _ := d.Decompose(ctx, x, 4)
	res, err := NewDenoiserWithPolicy(ThresholdPolicy{Mode: NoThreshold, Estimator: DifferenceEstimator}).Denoise(ctx, dec)
	if err != nil {
		t.Fatalf("Denoise: %v", err)
	}
	for i := range x {
		if math.Abs(res.Values[i]-x[i]) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, res.Values[i], x[i])
		}
	}
}

func TestDenoiseKeepsCleanSine(t *testing.T) {
	ctx := context.Background()
	x := make([]float64, 1024)
	for i := range x {
		x[i] = math.Sin(2 * math.Pi * 5 * float64(i) / 100)
	}

	for _, name := range []string{"bior1.3", "bior2.2", "bior3.5", "bior4.4", "bior6.8"} {
		d, _ := NewDecomposer(name)
		dec, err := d.Decompose(ctx, x, 3)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		res, err := NewDenoiser().Denoise(ctx, dec)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		ratio := rms(res.Values) / rms(x)
		if ratio < 0.95 || ratio > 1.05 {
			t.Fatalf("%s: rms ratio %v outside 5%%", name, ratio)
		}
	}
}

func TestDenoiseReducesNoise(t *testing.T) {
	ctx := context.Background()
	noise := randomSignal(2048, 9)
	clean := make([]float64, len(noise))
	noisy := make([]float64, len(noise))
	for i := range clean {
		clean[i] = math.Sin(2 * math.Pi * 3 * float64(i) / 1000)
		noisy[i] = clean[i] + 0.3*noise[i]
	}

	d, _ := NewDecomposer("bior3.5")
	dec, _ := d.Decompose(ctx, noisy, 5)
	res, err := NewDenoiser().Denoise(ctx, dec)
	if err != nil {
		t.Fatalf("Denoise: %v", err)
	}

	before := make([]float64, len(clean))
	after := make([]float64, len(clean))
	for i := range clean {
		before[i] = noisy[i] - clean[i]
		after[i] = res.Values[i] - clean[i]
	}
	if rms(after) >= rms(before) {
		t.Fatalf("error rms after %v, before %v", rms(after), rms(before))
	}
}

func TestDenoiseIsDeterministic(t *testing.T) {
	ctx := context.Background()
	d, _ := NewDecomposer("bior2.4")
	x := randomSignal(500, 3)

	var first []float64
	for run := 0; run < 3; run++ {
		dec, _ := d.Decompose(ctx, x, 3)
		res, err := NewDenoiserWithPolicy(ThresholdPolicy{Mode: HardThreshold, Estimator: LevelEstimator}).Denoise(ctx, dec)
		if err != nil {
			t.Fatalf("Denoise: %v", err)
		}
		if run == 0 {
			first = res.Values
			continue
		}
		for i := range first {
			if first[i] != res.Values[i] {
				t.Fatalf("run %d differs at sample %d", run, i)
			}
		}
	}
}
