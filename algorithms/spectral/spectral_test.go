package spectral

import (
	"context"
	"errors"
	"math"
	"testing"
)

func sine(n int, freq, fs, amplitude float64) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/fs)
	}
	return x
}

func TestMagnitudeSpectrumPeak(t *testing.T) {
	x := sine(1000, 5, 100, 1)

	spectrum, err := MagnitudeSpectrum(x, 100, DefaultSpectrumOptions())
	if err != nil {
		t.Fatalf("MagnitudeSpectrum: %v", err)
	}
	if spectrum.FFTSize != 1024 || len(spectrum.Frequencies) != 513 {
		t.Fatalf("fft size %d, bins %d", spectrum.FFTSize, len(spectrum.Frequencies))
	}
	if last := spectrum.Frequencies[len(spectrum.Frequencies)-1]; last != 50 {
		t.Fatalf("last frequency %v, want Nyquist 50", last)
	}

	peak := 0
	for k, m := range spectrum.Magnitudes {
		if m > spectrum.Magnitudes[peak] {
			peak = k
		}
	}
	if f := spectrum.Frequencies[peak]; math.Abs(f-5) > 0.1 {
		t.Fatalf("peak at %v Hz, want 5", f)
	}
	if m := spectrum.Magnitudes[peak]; m < 0.4 || m > 0.55 {
		t.Fatalf("normalized peak magnitude %v, want about 0.5", m)
	}
}

func TestMagnitudeSpectrumWithoutPadding(t *testing.T) {
	x := sine(10, 1, 10, 1)

	spectrum, err := MagnitudeSpectrum(x, 10, SpectrumOptions{})
	if err != nil {
		t.Fatalf("MagnitudeSpectrum: %v", err)
	}
	if len(spectrum.Frequencies) != 6 || spectrum.Frequencies[5] != 5 {
		t.Fatalf("frequencies = %v", spectrum.Frequencies)
	}
	if math.Abs(spectrum.Magnitudes[1]-5) > 1e-9 {
		t.Fatalf("unnormalized magnitude at 1 Hz = %v, want 5", spectrum.Magnitudes[1])
	}

	if _, err := MagnitudeSpectrum(nil, 10, SpectrumOptions{}); err == nil {
		t.Fatalf("expected error for empty signal")
	}
	if _, err := MagnitudeSpectrum(x, 0, SpectrumOptions{}); err == nil {
		t.Fatalf("expected error for zero sample rate")
	}
}

func TestSpectrogramShapeAndPeak(t *testing.T) {
	fs := 1000.0
	x := sine(2048, 125, fs, 2)

	result, err := NewSTFT().Spectrogram(context.Background(), x, fs, DefaultSpectrogramParams())
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}
	if len(result.Frequencies) != 129 || len(result.Times) != 15 {
		t.Fatalf("grid %d x %d, want 129 x 15", len(result.Frequencies), len(result.Times))
	}
	if len(result.PowerDB) != 129 || len(result.PowerDB[0]) != 15 {
		t.Fatalf("matrix %d x %d", len(result.PowerDB), len(result.PowerDB[0]))
	}
	if result.Times[0] != 0.128 {
		t.Fatalf("first frame centre %v, want 0.128", result.Times[0])
	}

	// 125 Hz falls on bin 32
	for frame := range result.Times {
		peak := 0
		for f := range result.Frequencies {
			if result.PowerDB[f][frame] > result.PowerDB[peak][frame] {
				peak = f
			}
		}
		if peak != 32 {
			t.Fatalf("frame %d: peak bin %d, want 32", frame, peak)
		}
	}

	// density integrates to the mean power A²/2
	df := fs / float64(result.WindowSize)
	total := 0.0
	for f := range result.Frequencies {
		total += (math.Pow(10, result.PowerDB[f][3]/10) - 1e-10) * df
	}
	if math.Abs(total-2) > 0.2 {
		t.Fatalf("integrated power %v, want about 2", total)
	}
}

func TestSpectrogramShortSignal(t *testing.T) {
	x := sine(100, 10, 1000, 1)

	result, err := NewSTFT().Spectrogram(context.Background(), x, 1000, DefaultSpectrogramParams())
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}
	if result.WindowSize != 100 || len(result.Times) != 1 || len(result.Frequencies) != 51 {
		t.Fatalf("window %d, grid %d x %d", result.WindowSize, len(result.Frequencies), len(result.Times))
	}
}

func TestSpectrogramDecimate(t *testing.T) {
	x := sine(2048, 50, 1000, 1)
	result, err := NewSTFT().Spectrogram(context.Background(), x, 1000, DefaultSpectrogramParams())
	if err != nil {
		t.Fatalf("Spectrogram: %v", err)
	}

	small := result.Decimate(20, 5)
	if len(small.Frequencies) != 22 || len(small.Times) != 5 {
		t.Fatalf("decimated grid %d x %d, want 22 x 5", len(small.Frequencies), len(small.Times))
	}
	if len(small.PowerDB) != 22 || len(small.PowerDB[0]) != 5 {
		t.Fatalf("decimated matrix %d x %d", len(small.PowerDB), len(small.PowerDB[0]))
	}
	if small.PowerDB[1][1] != result.PowerDB[6][3] {
		t.Fatalf("decimated cell does not match source grid")
	}
	if same := result.Decimate(500, 500); same != result {
		t.Fatalf("expected no-op decimation to return the receiver")
	}
}

func TestSpectrogramCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSTFT().Spectrogram(ctx, sine(4096, 10, 1000, 1), 1000, DefaultSpectrogramParams())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestSpectrogramUnknownWindow(t *testing.T) {
	params := DefaultSpectrogramParams()
	params.Window = "gauss"
	if _, err := NewSTFT().Spectrogram(context.Background(), sine(512, 10, 1000, 1), 1000, params); err == nil {
		t.Fatalf("expected error for unknown window")
	}
}
