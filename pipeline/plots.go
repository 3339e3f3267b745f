package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/downsample"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/spectral"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/stats"
	"github.com/RyanBlaney/sonido-wavelet/logging"
	"golang.org/x/sync/errgroup"
)

const (
	colorRaw      = "#1f77b4"
	colorDenoised = "#ff7f0e"
	colorApprox   = "#2ca02c"
	colorPearson  = "#9467bd"
)

// Layout holds axis titles for a plot
type Layout struct {
	XAxisTitle string `json:"xaxis_title"`
	YAxisTitle string `json:"yaxis_title"`
	Title      string `json:"title"`
}

// Trace is one line series
type Trace struct {
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

// TraceData holds several line series
type TraceData struct {
	Traces []Trace `json:"traces"`
}

// BarTrace is one categorical bar series
type BarTrace struct {
	X     []string  `json:"x"`
	Y     []float64 `json:"y"`
	Name  string    `json:"name"`
	Color string    `json:"color,omitempty"`
}

// BarData holds bar series
type BarData struct {
	Traces []BarTrace `json:"traces"`
}

// HeatmapData is a spectrogram grid; Z is indexed [frequency][time]
type HeatmapData struct {
	X          []float64   `json:"x"`
	Y          []float64   `json:"y"`
	Z          [][]float64 `json:"z"`
	Colorscale string      `json:"colorscale"`
}

// HeatmapMetadata describes the size of a heatmap grid
type HeatmapMetadata struct {
	Shape      [2]int `json:"shape"`
	DataPoints int    `json:"data_points"`
}

// PlotData is the closed set of plot payloads
type PlotData interface {
	Trace | TraceData | BarData | HeatmapData
}

// Plot is one plot of a bundle
type Plot[D PlotData] struct {
	Type     string           `json:"type"`
	Data     D                `json:"data"`
	Layout   Layout           `json:"layout"`
	Metadata *HeatmapMetadata `json:"metadata,omitempty"`
}

// PlotBundle holds the twelve plots of a signal. Fields of groups that were
// not requested are nil.
type PlotBundle struct {
	SignalRaw            *Plot[Trace]       `json:"signal_raw,omitempty"`
	SignalDenoised       *Plot[Trace]       `json:"signal_denoised,omitempty"`
	FFTRaw               *Plot[TraceData]   `json:"fft_raw,omitempty"`
	FFTDenoised          *Plot[TraceData]   `json:"fft_denoised,omitempty"`
	FFTApprox            *Plot[TraceData]   `json:"fft_approx,omitempty"`
	FFTDetail            *Plot[TraceData]   `json:"fft_detail,omitempty"`
	WaveletApprox        *Plot[TraceData]   `json:"wavelet_approx,omitempty"`
	WaveletDetail        *Plot[TraceData]   `json:"wavelet_detail,omitempty"`
	WaveletPearsonApprox *Plot[BarData]     `json:"wavelet_pearson_approx,omitempty"`
	WaveletPearsonDetail *Plot[BarData]     `json:"wavelet_pearson_detail,omitempty"`
	SpectrumRaw          *Plot[HeatmapData] `json:"spectrum_raw,omitempty"`
	SpectrumDenoised     *Plot[HeatmapData] `json:"spectrum_denoised,omitempty"`
}

// Count returns the number of plots present
func (b *PlotBundle) Count() int {
	present := []bool{
		b.SignalRaw != nil, b.SignalDenoised != nil,
		b.FFTRaw != nil, b.FFTDenoised != nil, b.FFTApprox != nil, b.FFTDetail != nil,
		b.WaveletApprox != nil, b.WaveletDetail != nil,
		b.WaveletPearsonApprox != nil, b.WaveletPearsonDetail != nil,
		b.SpectrumRaw != nil, b.SpectrumDenoised != nil,
	}
	n := 0
	for _, ok := range present {
		if ok {
			n++
		}
	}
	return n
}

// PlotGroup selects related plots of a bundle
type PlotGroup string

const (
	GroupSignal   PlotGroup = "signal"
	GroupFFT      PlotGroup = "fft"
	GroupWavelet  PlotGroup = "wavelet"
	GroupSpectrum PlotGroup = "spectrum"
)

// AllPlotGroups lists every group in bundle order
var AllPlotGroups = []PlotGroup{GroupSignal, GroupFFT, GroupWavelet, GroupSpectrum}

// ParsePlotGroup validates a group name
func ParsePlotGroup(name string) (PlotGroup, error) {
	for _, g := range AllPlotGroups {
		if string(g) == name {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: unknown plot group %q", ErrInvalidParameter, name)
}

// PlotsMetadata summarises a bundle
type PlotsMetadata struct {
	OriginalPoints      int     `json:"original_points"`
	TotalProcessingTime string  `json:"total_processing_time"`
	CompressionRatio    string  `json:"compression_ratio"`
	PlotsGenerated      int     `json:"plots_generated"`
	SampleRate          float64 `json:"sample_rate"`
	Filename            string  `json:"filename"`
}

// PlotsResult is a bundle with its metadata
type PlotsResult struct {
	Plots    *PlotBundle   `json:"plots"`
	Metadata PlotsMetadata `json:"metadata"`
}

// GenerateAllPlots builds all twelve plots from a single decomposition
func (p *Pipeline) GenerateAllPlots(ctx context.Context, sel Selection, wc WaveletConfig) (*PlotsResult, error) {
	return p.GeneratePlots(ctx, sel, wc, AllPlotGroups...)
}

// GeneratePlots builds the plots of the requested groups
func (p *Pipeline) GeneratePlots(ctx context.Context, sel Selection, wc WaveletConfig, groups ...PlotGroup) (*PlotsResult, error) {
	start := time.Now()
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "GeneratePlots",
		"file_id":  sel.FileID,
		"family":   wc.Family,
		"levels":   wc.Levels,
	})

	a, err := p.analyze(ctx, sel, wc)
	if err != nil {
		return nil, err
	}

	want := make(map[PlotGroup]bool, len(groups))
	for _, g := range groups {
		want[g] = true
	}

	plotStart := time.Now()
	bundle := &PlotBundle{}

	if want[GroupSignal] {
		if err := p.signalPlots(a, bundle); err != nil {
			return nil, err
		}
	}
	if want[GroupFFT] {
		spectralStart := time.Now()
		err := p.fftPlots(a, bundle)
		p.observe(StageSpectral, spectralStart)
		if err != nil {
			return nil, err
		}
	}
	if want[GroupWavelet] {
		if err := p.waveletPlots(a, bundle); err != nil {
			return nil, err
		}
	}
	if want[GroupSpectrum] {
		spectralStart := time.Now()
		err := p.spectrogramPlots(ctx, a, bundle)
		p.observe(StageSpectral, spectralStart)
		if err != nil {
			return nil, err
		}
	}
	p.observe(StagePlots, plotStart)

	total := time.Since(start)
	result := &PlotsResult{
		Plots: bundle,
		Metadata: PlotsMetadata{
			OriginalPoints:      len(a.signal),
			TotalProcessingTime: fmt.Sprintf("%.3fs", total.Seconds()),
			CompressionRatio:    fmt.Sprintf("%.1fx", float64(len(a.signal))/float64(p.cfg.Limits.MaxPlotPoints)),
			PlotsGenerated:      bundle.Count(),
			SampleRate:          a.sampleRate,
			Filename:            a.filename,
		},
	}

	logger.Info("plots generated", logging.Fields{
		"plots":       result.Metadata.PlotsGenerated,
		"samples":     len(a.signal),
		"duration_ms": total.Milliseconds(),
	})
	return result, nil
}

func (p *Pipeline) lineTrace(x, y []float64, limit int, name, color string) (Trace, error) {
	dx, dy, err := downsample.LTTB(x, y, limit)
	if err != nil {
		return Trace{}, fmt.Errorf("%s: %w", name, err)
	}
	return Trace{X: dx, Y: dy, Name: name, Color: color}, nil
}

func (p *Pipeline) signalPlots(a *analysis, b *PlotBundle) error {
	limit := p.cfg.Limits.MaxPlotPoints

	raw, err := p.lineTrace(a.time, a.signal, limit, "Raw Signal", colorRaw)
	if err != nil {
		return err
	}
	denoised, err := p.lineTrace(a.time, a.denoised.Values, limit, "Denoised Signal", colorDenoised)
	if err != nil {
		return err
	}

	b.SignalRaw = &Plot[Trace]{
		Type:   "scatter",
		Data:   raw,
		Layout: Layout{XAxisTitle: "Time (s)", YAxisTitle: "Amplitude (V)", Title: "Raw Signal"},
	}
	b.SignalDenoised = &Plot[Trace]{
		Type:   "scatter",
		Data:   denoised,
		Layout: Layout{XAxisTitle: "Time (s)", YAxisTitle: "Amplitude (V)", Title: "Denoised Signal"},
	}
	return nil
}

// spectrumTrace computes a magnitude spectrum at sampleRate and downsamples it
func (p *Pipeline) spectrumTrace(values []float64, sampleRate float64, limit int, name, color string) (Trace, error) {
	spectrum, err := spectral.MagnitudeSpectrum(values, sampleRate, p.cfg.Spectrum)
	if err != nil {
		return Trace{}, fmt.Errorf("%s: %w", name, err)
	}
	return p.lineTrace(spectrum.Frequencies, spectrum.Magnitudes, limit, name, color)
}

func fftLayout(title string) Layout {
	return Layout{XAxisTitle: "Frequency (Hz)", YAxisTitle: "Amplitude (V)", Title: title}
}

// fftPlots builds the four spectra. Coefficient arrays of level j are
// sampled at fs/2^j, the approximation at fs/2^levels.
func (p *Pipeline) fftPlots(a *analysis, b *PlotBundle) error {
	limits := p.cfg.Limits
	fs := a.sampleRate

	raw, err := p.spectrumTrace(a.signal, fs, limits.MaxPlotPoints, "FFT of Raw Signal", colorRaw)
	if err != nil {
		return err
	}
	denoised, err := p.spectrumTrace(a.denoised.Values, fs, limits.MaxPlotPoints, "FFT of Denoised Signal", colorDenoised)
	if err != nil {
		return err
	}
	approxRate := fs / math.Exp2(float64(a.dec.Levels))
	approx, err := p.spectrumTrace(a.dec.Approximation, approxRate, limits.MaxPlotPoints, "FFT of Approx Coefficients", colorApprox)
	if err != nil {
		return err
	}

	details := make([]Trace, 0, len(a.dec.Details))
	for i, detail := range a.dec.Details {
		rate := fs / math.Exp2(float64(a.dec.DetailLevel(i)))
		trace, err := p.spectrumTrace(detail, rate, limits.MaxDetailPlotPoints, fmt.Sprintf("FFT Detail %d", i+1), "")
		if err != nil {
			return err
		}
		details = append(details, trace)
	}

	b.FFTRaw = &Plot[TraceData]{Type: "scatter", Data: TraceData{Traces: []Trace{raw}}, Layout: fftLayout("FFT of Raw Signal")}
	b.FFTDenoised = &Plot[TraceData]{Type: "scatter", Data: TraceData{Traces: []Trace{denoised}}, Layout: fftLayout("FFT of Denoised Signal")}
	b.FFTApprox = &Plot[TraceData]{Type: "scatter", Data: TraceData{Traces: []Trace{approx}}, Layout: fftLayout("FFT of Approx Coefficients")}
	b.FFTDetail = &Plot[TraceData]{Type: "scatter", Data: TraceData{Traces: details}, Layout: fftLayout("FFT of Detail Coefficients")}
	return nil
}

// pearson correlates the leading samples of the signal with a coefficient array; undefined is 0
func pearson(signal, coefficients []float64) float64 {
	r, _ := stats.Pearson(signal, coefficients)
	return r
}

func (p *Pipeline) waveletPlots(a *analysis, b *PlotBundle) error {
	limits := p.cfg.Limits
	coefficientLayout := func(title string) Layout {
		return Layout{XAxisTitle: "Index", YAxisTitle: "Coefficient Value (V)", Title: title}
	}
	pearsonLayout := func(title string) Layout {
		return Layout{XAxisTitle: "Coefficient Type", YAxisTitle: "Correlation Coefficient", Title: title}
	}

	approx, err := p.lineTrace(downsample.Index(len(a.dec.Approximation)), a.dec.Approximation,
		limits.MaxPlotPoints, "Approximation Coefficients", colorApprox)
	if err != nil {
		return err
	}

	details := make([]Trace, 0, len(a.dec.Details))
	labels := make([]string, 0, len(a.dec.Details))
	correlations := make([]float64, 0, len(a.dec.Details))
	for i, detail := range a.dec.Details {
		trace, err := p.lineTrace(downsample.Index(len(detail)), detail,
			limits.MaxDetailPlotPoints, fmt.Sprintf("Detail Coefficients %d", i+1), "")
		if err != nil {
			return err
		}
		details = append(details, trace)
		labels = append(labels, fmt.Sprintf("Detail %d", i+1))
		correlations = append(correlations, pearson(a.signal, detail))
	}

	b.WaveletApprox = &Plot[TraceData]{
		Type:   "scatter",
		Data:   TraceData{Traces: []Trace{approx}},
		Layout: coefficientLayout("Wavelet Approximation Coefficients"),
	}
	b.WaveletDetail = &Plot[TraceData]{
		Type:   "scatter",
		Data:   TraceData{Traces: details},
		Layout: coefficientLayout("Wavelet Detail Coefficients"),
	}
	b.WaveletPearsonApprox = &Plot[BarData]{
		Type: "bar",
		Data: BarData{Traces: []BarTrace{{
			X:     []string{"Approx Coefficients"},
			Y:     []float64{pearson(a.signal, a.dec.Approximation)},
			Name:  "Pearson CC",
			Color: colorPearson,
		}}},
		Layout: pearsonLayout("Pearson CC (Approximation)"),
	}
	b.WaveletPearsonDetail = &Plot[BarData]{
		Type: "bar",
		Data: BarData{Traces: []BarTrace{{
			X:     labels,
			Y:     correlations,
			Name:  "Pearson CC",
			Color: colorPearson,
		}}},
		Layout: pearsonLayout("Pearson CC (Detail)"),
	}
	return nil
}

// spectrogramPlots computes the raw and denoised spectrograms concurrently
func (p *Pipeline) spectrogramPlots(ctx context.Context, a *analysis, b *PlotBundle) error {
	g, ctx := errgroup.WithContext(ctx)

	var raw, denoised *Plot[HeatmapData]
	g.Go(func() error {
		var err error
		raw, err = p.heatmap(ctx, a.signal, a.sampleRate, "Raw", "Viridis")
		return err
	})
	g.Go(func() error {
		var err error
		denoised, err = p.heatmap(ctx, a.denoised.Values, a.sampleRate, "Denoised", "Plasma")
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	b.SpectrumRaw = raw
	b.SpectrumDenoised = denoised
	return nil
}

func (p *Pipeline) heatmap(ctx context.Context, signal []float64, sampleRate float64, name, colorscale string) (*Plot[HeatmapData], error) {
	result, err := p.stft.Spectrogram(ctx, signal, sampleRate, p.cfg.Spectrogram)
	if err != nil {
		return nil, fmt.Errorf("spectrogram (%s): %w", name, err)
	}
	result = result.Decimate(p.cfg.Limits.MaxFreqBins, p.cfg.Limits.MaxTimeBins)

	rows, cols := len(result.Frequencies), len(result.Times)
	return &Plot[HeatmapData]{
		Type: "heatmap",
		Data: HeatmapData{
			X:          result.Times,
			Y:          result.Frequencies,
			Z:          result.PowerDB,
			Colorscale: colorscale,
		},
		Layout: Layout{
			XAxisTitle: "Time (s)",
			YAxisTitle: "Frequency (Hz)",
			Title:      fmt.Sprintf("Spectrogram (%s)", name),
		},
		Metadata: &HeatmapMetadata{
			Shape:      [2]int{rows, cols},
			DataPoints: rows * cols,
		},
	}, nil
}
