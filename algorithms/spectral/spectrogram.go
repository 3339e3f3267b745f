package spectral

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/windowing"
)

// SpectrogramParams pins the STFT parameters used for plots
type SpectrogramParams struct {
	Window     string `json:"window" mapstructure:"window"`
	WindowSize int    `json:"window_size" mapstructure:"window_size"`
	HopSize    int    `json:"hop_size" mapstructure:"hop_size"`
	Detrend    bool   `json:"detrend" mapstructure:"detrend"`
}

// DefaultSpectrogramParams returns a periodic Hann window of 256 samples with 50% overlap
func DefaultSpectrogramParams() SpectrogramParams {
	return SpectrogramParams{
		Window:     "hann",
		WindowSize: 256,
		HopSize:    128,
		Detrend:    true,
	}
}

// SpectrogramResult is a power spectrogram in dB indexed [frequency][time]
type SpectrogramResult struct {
	Times       []float64   `json:"times"`
	Frequencies []float64   `json:"frequencies"`
	PowerDB     [][]float64 `json:"power_db"`
	WindowSize  int         `json:"window_size"`
	HopSize     int         `json:"hop_size"`
}

// Spectrogram computes a power spectral density spectrogram in dB.
// The window shrinks to the signal length for signals shorter than one window.
func (s *STFT) Spectrogram(ctx context.Context, signal []float64, sampleRate float64, params SpectrogramParams) (*SpectrogramResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	windowSize := params.WindowSize
	if windowSize <= 0 {
		windowSize = DefaultSpectrogramParams().WindowSize
	}
	windowSize = min(windowSize, len(signal))

	hopSize := params.HopSize
	if hopSize <= 0 || hopSize > windowSize {
		hopSize = max(1, windowSize/2)
	}

	window, err := windowing.New(params.Window, windowSize, false)
	if err != nil {
		return nil, err
	}

	result, err := s.ComputeWithWindow(ctx, signal, windowSize, hopSize, sampleRate, window, params.Detrend)
	if err != nil {
		return nil, err
	}

	ps := NewPowerSpectrum()
	powerDB := ps.ToDecibels(ps.DensityFromSTFT(result, window.SumSquares()))

	times := make([]float64, result.TimeFrames)
	for i, start := range result.FrameStarts {
		times[i] = (float64(start) + float64(windowSize)/2) / sampleRate
	}

	frequencies := make([]float64, result.FreqBins)
	for k := range frequencies {
		frequencies[k] = float64(k) * sampleRate / float64(windowSize)
	}

	return &SpectrogramResult{
		Times:       times,
		Frequencies: frequencies,
		PowerDB:     powerDB,
		WindowSize:  windowSize,
		HopSize:     hopSize,
	}, nil
}

// Decimate keeps every k-th frequency and time bin so that the grid is at
// most roughly maxFreq × maxTime, with k = max(1, len/max)
func (r *SpectrogramResult) Decimate(maxFreq, maxTime int) *SpectrogramResult {
	freqStep := stride(len(r.Frequencies), maxFreq)
	timeStep := stride(len(r.Times), maxTime)
	if freqStep == 1 && timeStep == 1 {
		return r
	}

	out := &SpectrogramResult{
		WindowSize: r.WindowSize,
		HopSize:    r.HopSize,
	}
	for t := 0; t < len(r.Times); t += timeStep {
		out.Times = append(out.Times, r.Times[t])
	}
	for f := 0; f < len(r.Frequencies); f += freqStep {
		out.Frequencies = append(out.Frequencies, r.Frequencies[f])
		row := make([]float64, 0, len(out.Times))
		for t := 0; t < len(r.Times); t += timeStep {
			row = append(row, r.PowerDB[f][t])
		}
		out.PowerDB = append(out.PowerDB, row)
	}
	return out
}

func stride(n, limit int) int {
	if limit <= 0 || n <= limit {
		return 1
	}
	return max(1, n/limit)
}
