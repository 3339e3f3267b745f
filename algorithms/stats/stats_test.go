package stats

import (
	"math"
	"testing"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestMomentsKnownValues(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	result, err := NewMoments().Analyze(data)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Mean != 5 || result.Variance != 4 || result.StdDev != 2 {
		t.Fatalf("mean/variance/std = %v/%v/%v, want 5/4/2", result.Mean, result.Variance, result.StdDev)
	}
	// m3 = 42/8, m4 = 356/8
	if !approx(result.Skewness, (42.0/8)/8, 1e-12) {
		t.Fatalf("skewness = %v", result.Skewness)
	}
	if !approx(result.Kurtosis, (356.0/8)/16-3, 1e-12) {
		t.Fatalf("kurtosis = %v", result.Kurtosis)
	}
	if result.SampleRange != 7 || result.Min != 2 || result.Max != 9 {
		t.Fatalf("range = %v [%v, %v]", result.SampleRange, result.Min, result.Max)
	}
	if !approx(result.CoefficientOfVariation, 0.4, 1e-12) {
		t.Fatalf("cov = %v", result.CoefficientOfVariation)
	}
}

func TestMomentsConstantSignal(t *testing.T) {
	result, err := NewMoments().Analyze([]float64{3, 3, 3})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Variance != 0 || result.Skewness != 0 || result.Kurtosis != 0 {
		t.Fatalf("unexpected moments %+v", result)
	}
	if _, err := NewMoments().Analyze(nil); err == nil {
		t.Fatalf("expected error for empty data")
	}
}

func TestPercentileMethods(t *testing.T) {
	data := []float64{15, 20, 35, 40, 50}

	tests := []struct {
		method PercentileMethod
		pct    float64
		want   float64
	}{
		{Linear, 40, 29},
		{Linear, 0, 15},
		{Linear, 100, 50},
		{Lower, 40, 20},
		{Higher, 40, 35},
		{Midpoint, 40, 27.5},
		{Nearest, 40, 35},
	}

	for _, tt := range tests {
		got, err := NewPercentilesWithMethod(tt.method).CalculatePercentile(data, tt.pct)
		if err != nil {
			t.Fatalf("%v: %v", tt.method, err)
		}
		if !approx(got, tt.want, 1e-12) {
			t.Fatalf("method %d p%v = %v, want %v", tt.method, tt.pct, got, tt.want)
		}
	}

	if _, err := NewPercentiles().CalculatePercentile(data, 101); err == nil {
		t.Fatalf("expected error for percentile > 100")
	}
}

func TestQuartiles(t *testing.T) {
	q, err := NewPercentiles().Quartiles([]float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("Quartiles: %v", err)
	}
	if q.Q1 != 1.75 || q.Q2 != 2.5 || q.Q3 != 3.25 || q.IQR != 1.5 {
		t.Fatalf("quartiles = %+v", q)
	}
}

func TestMedianAndMode(t *testing.T) {
	if m := Median([]float64{5, 1, 3}); m != 3 {
		t.Fatalf("median odd = %v", m)
	}
	if m := Median([]float64{4, 1, 3, 2}); m != 2.5 {
		t.Fatalf("median even = %v", m)
	}
	if m := Mode([]float64{3, 1, 3, 1, 2}); m != 1 {
		t.Fatalf("mode tie = %v, want smallest (1)", m)
	}
	if m := Mode([]float64{0.5, 2, 2, 7}); m != 2 {
		t.Fatalf("mode = %v", m)
	}
}

func TestEntropy(t *testing.T) {
	e := NewEntropyWithParams(EntropyParams{NumBins: 4, BaseLog: 2})

	// one value in each of the four bins: 2 bits
	if h := e.Shannon([]float64{0, 1, 2, 3}); !approx(h, 2, 1e-12) {
		t.Fatalf("uniform entropy = %v, want 2", h)
	}
	if h := e.Shannon([]float64{7, 7, 7}); h != 0 {
		t.Fatalf("constant entropy = %v, want 0", h)
	}

	result, err := NewEntropy().Analyze([]float64{-1, 0.5, 0.25, 3, 3, 8})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Shannon < 0 || result.Normalized < 0 || result.Normalized > 1 {
		t.Fatalf("entropy out of range: %+v", result)
	}
	if len(result.Histogram) != 64 || len(result.BinEdges) != 65 {
		t.Fatalf("histogram shape %d/%d", len(result.Histogram), len(result.BinEdges))
	}
}

func TestPearson(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}

	if r, ok := Pearson(x, []float64{2, 4, 6, 8, 10}); !ok || !approx(r, 1, 1e-12) {
		t.Fatalf("r = %v, %v", r, ok)
	}
	if r, ok := Pearson(x, []float64{5, 4, 3, 2, 1, 100}); !ok || !approx(r, -1, 1e-12) {
		t.Fatalf("prefix r = %v, %v", r, ok)
	}
	if _, ok := Pearson(x, []float64{1, 1, 1, 1, 1}); ok {
		t.Fatalf("expected undefined correlation for constant input")
	}
	if _, ok := Pearson([]float64{1}, []float64{2}); ok {
		t.Fatalf("expected undefined correlation for one sample")
	}
}
