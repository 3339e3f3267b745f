package downsample

import (
	"math"
	"testing"
)

func TestLTTBKeepsEndpointsAndPeak(t *testing.T) {
	n := 10000
	x := Index(n)
	y := make([]float64, n)
	for i := range y {
		y[i] = math.Sin(float64(i) / 300)
	}
	y[5000] = 25 // spike

	dx, dy, err := LTTB(x, y, 500)
	if err != nil {
		t.Fatalf("LTTB: %v", err)
	}
	if len(dx) != 500 || len(dy) != 500 {
		t.Fatalf("got %d points, want 500", len(dx))
	}
	if dx[0] != 0 || dx[499] != float64(n-1) {
		t.Fatalf("endpoints not kept: %v .. %v", dx[0], dx[499])
	}

	foundSpike := false
	for i := 1; i < len(dx); i++ {
		if dx[i] <= dx[i-1] {
			t.Fatalf("x not increasing at %d", i)
		}
		if dy[i] == 25 {
			foundSpike = true
		}
	}
	if !foundSpike {
		t.Fatalf("spike was dropped")
	}
}

func TestLTTBShortInput(t *testing.T) {
	x := []float64{0, 1, 2}
	y := []float64{5, 6, 7}

	dx, dy, err := LTTB(x, y, 10)
	if err != nil {
		t.Fatalf("LTTB: %v", err)
	}
	if len(dx) != 3 || dy[2] != 7 {
		t.Fatalf("short input changed: %v %v", dx, dy)
	}
	if _, _, err := LTTB(x, y[:2], 10); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestStrideAndTruncate(t *testing.T) {
	values := Index(10)

	if got := Stride(values, 4); len(got) != 4 || got[1] != 3 || got[3] != 9 {
		t.Fatalf("Stride = %v", got)
	}
	if got := Stride(values, 20); len(got) != 10 {
		t.Fatalf("Stride below limit changed length: %d", len(got))
	}
	if got := Truncate(values, 3); len(got) != 3 || got[2] != 2 {
		t.Fatalf("Truncate = %v", got)
	}
}
