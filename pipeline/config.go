package pipeline

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/spectral"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
)

// PlotLimits caps the size of response and plot payloads
type PlotLimits struct {
	MaxResponsePoints    int `mapstructure:"max_response_points"`
	MaxCoefficientPoints int `mapstructure:"max_coefficient_points"`
	MaxPlotPoints        int `mapstructure:"max_plot_points"`
	MaxDetailPlotPoints  int `mapstructure:"max_detail_plot_points"`
	MaxFreqBins          int `mapstructure:"max_freq_bins"`
	MaxTimeBins          int `mapstructure:"max_time_bins"`
}

// Config holds the analysis policy and resource bounds of a Pipeline
type Config struct {
	Timeout           time.Duration              `mapstructure:"timeout"`
	Workers           int                        `mapstructure:"workers"`
	DefaultSampleRate float64                    `mapstructure:"default_sample_rate"`
	EntropyBins       int                        `mapstructure:"entropy_bins"`
	MaxInflatedMB     int64                      `mapstructure:"max_inflated_mb"`
	Threshold         wavelet.ThresholdPolicy    `mapstructure:"threshold"`
	Spectrum          spectral.SpectrumOptions   `mapstructure:"spectrum"`
	Spectrogram       spectral.SpectrogramParams `mapstructure:"spectrogram"`
	Limits            PlotLimits                 `mapstructure:"limits"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Timeout:           60 * time.Second,
		Workers:           4,
		DefaultSampleRate: 20000,
		EntropyBins:       64,
		MaxInflatedMB:     1024,
		Threshold:         wavelet.DefaultThresholdPolicy(),
		Spectrum:          spectral.DefaultSpectrumOptions(),
		Spectrogram:       spectral.DefaultSpectrogramParams(),
		Limits: PlotLimits{
			MaxResponsePoints:    15000,
			MaxCoefficientPoints: 1000,
			MaxPlotPoints:        15000,
			MaxDetailPlotPoints:  5000,
			MaxFreqBins:          200,
			MaxTimeBins:          500,
		},
	}
}

// Validate rejects configurations the pipeline cannot run with
func (c Config) Validate() error {
	if err := c.Threshold.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidParameter, c.Workers)
	}
	if c.DefaultSampleRate <= 0 {
		return fmt.Errorf("%w: default sample rate must be positive", ErrInvalidParameter)
	}
	if c.EntropyBins < 1 {
		return fmt.Errorf("%w: entropy bins must be at least 1", ErrInvalidParameter)
	}
	if c.MaxInflatedMB < 1 {
		return fmt.Errorf("%w: max inflated size must be at least 1 MB", ErrInvalidParameter)
	}
	if c.Spectrogram.WindowSize < 2 {
		return fmt.Errorf("%w: spectrogram window must be at least 2 samples", ErrInvalidParameter)
	}
	l := c.Limits
	if l.MaxResponsePoints < 3 || l.MaxPlotPoints < 3 || l.MaxDetailPlotPoints < 3 {
		return fmt.Errorf("%w: point limits must be at least 3", ErrInvalidParameter)
	}
	if l.MaxCoefficientPoints < 1 || l.MaxFreqBins < 1 || l.MaxTimeBins < 1 {
		return fmt.Errorf("%w: coefficient and spectrogram limits must be positive", ErrInvalidParameter)
	}
	return nil
}

// MaxInflatedBytes bounds an upload after gzip decompression
func (c Config) MaxInflatedBytes() int64 {
	return c.MaxInflatedMB << 20
}

// WaveletConfig selects the family and depth of a decomposition
type WaveletConfig struct {
	Family string `json:"wavelet_type" form:"wavelet_type"`
	Levels int    `json:"n_levels" form:"n_levels"`
}

// Validate checks the family name and level range. The level bound against
// the signal length is checked once the signal is loaded.
func (w WaveletConfig) Validate() error {
	if _, err := wavelet.LookupFamily(w.Family); err != nil {
		return err
	}
	if w.Levels < wavelet.MinLevels || w.Levels > wavelet.MaxLevels {
		return fmt.Errorf("%w: %d (must be between %d and %d)", wavelet.ErrInvalidLevels, w.Levels, wavelet.MinLevels, wavelet.MaxLevels)
	}
	return nil
}

// Selection picks the time and signal columns of an uploaded file
type Selection struct {
	FileID       string `json:"file_id"`
	TimeColumn   int    `json:"time_column"`
	SignalColumn int    `json:"signal_column"`
}
