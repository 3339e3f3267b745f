package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/common"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/downsample"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/spectral"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/stats"
	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-wavelet/features"
	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/series"
	"github.com/RyanBlaney/sonido-wavelet/store"
)

// Stage names reported to an Observer
const (
	StageLoad      = "load"
	StageDecompose = "decompose"
	StageDenoise   = "denoise"
	StageFeatures  = "features"
	StageSpectral  = "spectral"
	StagePlots     = "plots"
)

// Observer receives timing and outcome events, typically to export metrics
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveBatchFile(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveBatchFile(string)            {}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithObserver installs an Observer
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithLogger replaces the component logger
func WithLogger(l logging.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// Pipeline runs uploads through loading, decomposition, denoising, feature
// extraction and spectral analysis. Every call is independent; the only
// shared state is the upload store.
type Pipeline struct {
	store     store.Store
	cfg       Config
	extractor *features.Extractor
	denoiser  *wavelet.Denoiser
	stft      *spectral.STFT
	observer  Observer
	logger    logging.Logger
}

// New creates a pipeline over an upload store
func New(s store.Store, cfg Config, opts ...Option) (*Pipeline, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidParameter)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:     s,
		cfg:       cfg,
		extractor: features.NewExtractor(cfg.EntropyBins),
		denoiser:  wavelet.NewDenoiserWithPolicy(cfg.Threshold),
		stft:      spectral.NewSTFT(),
		observer:  nopObserver{},
		logger: logging.WithFields(logging.Fields{
			"component": "pipeline",
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Store returns the upload store
func (p *Pipeline) Store() store.Store {
	return p.store
}

// withTimeout bounds a pipeline operation by the configured watchdog
func (p *Pipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.Timeout)
}

func (p *Pipeline) observe(stage string, start time.Time) {
	p.observer.ObserveStage(stage, time.Since(start))
}

// UploadResult summarises a stored upload
type UploadResult struct {
	Filename             string              `json:"filename"`
	FileID               string              `json:"file_id"`
	Columns              int                 `json:"columns"`
	Rows                 int                 `json:"rows"`
	ColumnNames          []string            `json:"column_names"`
	ColumnKinds          []series.ColumnKind `json:"column_kinds"`
	HasHeader            bool                `json:"has_header"`
	Status               string              `json:"status"`
	Message              string              `json:"message"`
	UploadTime           string              `json:"upload_time"`
	Compressed           bool                `json:"compressed"`
	CompressionMethod    string              `json:"compression_method"`
	CompressedSizeMB     string              `json:"compressed_size_mb,omitempty"`
	OriginalSizeMB       string              `json:"original_size_mb,omitempty"`
	CompressionRatio     string              `json:"compression_ratio,omitempty"`
	SizeReductionPercent string              `json:"size_reduction_percent,omitempty"`
	BandwidthSavedMB     string              `json:"bandwidth_saved_mb,omitempty"`
	DecompressTime       string              `json:"decompress_time,omitempty"`
	FileSizeMB           string              `json:"file_size_mb,omitempty"`
	ExpiresAt            time.Time           `json:"expires_at"`
}

func megabytes(n int) float64 {
	return float64(n) / (1024 * 1024)
}

// Upload parses and stores a file. Malformed files are rejected before
// anything is stored. The file id is derived from the decompressed content.
func (p *Pipeline) Upload(ctx context.Context, filename string, content []byte) (*UploadResult, error) {
	start := time.Now()
	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "Upload",
		"filename": filename,
		"bytes":    len(content),
	})

	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: missing filename", series.ErrMalformed)
	}

	decompressStart := time.Now()
	data, compressed, gzErr := series.Decompress(content, p.cfg.MaxInflatedBytes())
	decompressTime := time.Since(decompressStart)
	if errors.Is(gzErr, series.ErrTooLarge) {
		return nil, gzErr
	}

	method := "none"
	switch {
	case compressed:
		method = "gzip"
	case gzErr != nil:
		method = "failed"
		logger.Warn("gzip decompression failed, using raw bytes", logging.Fields{
			"error": gzErr.Error(),
		})
	}

	parsed, err := series.ParseLimited(filename, data, p.cfg.MaxInflatedBytes())
	if err != nil {
		return nil, err
	}

	upload := &store.Upload{
		FileID:     store.NewFileID(filename, data),
		Filename:   filename,
		Content:    content,
		Compressed: compressed,
	}
	if err := p.store.Put(ctx, upload); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	result := &UploadResult{
		Filename:          filename,
		FileID:            upload.FileID,
		Columns:           len(parsed.Columns),
		Rows:              parsed.RowCount,
		ColumnNames:       parsed.ColumnNames,
		ColumnKinds:       parsed.ColumnKinds(),
		HasHeader:         parsed.HasHeader,
		Status:            "success",
		Message:           "File uploaded and cached successfully",
		Compressed:        compressed,
		CompressionMethod: method,
		ExpiresAt:         upload.ExpiresAt,
	}
	if compressed && len(content) > 0 {
		ratio := float64(len(data)) / float64(len(content))
		result.CompressedSizeMB = fmt.Sprintf("%.2f", megabytes(len(content)))
		result.OriginalSizeMB = fmt.Sprintf("%.2f", megabytes(len(data)))
		result.CompressionRatio = fmt.Sprintf("%.2fx", ratio)
		result.SizeReductionPercent = fmt.Sprintf("%.1f%%", (1-1/ratio)*100)
		result.BandwidthSavedMB = fmt.Sprintf("%.2f", megabytes(len(data))-megabytes(len(content)))
		result.DecompressTime = fmt.Sprintf("%.2fs", decompressTime.Seconds())
	} else {
		result.FileSizeMB = fmt.Sprintf("%.2f", megabytes(len(content)))
	}
	result.UploadTime = fmt.Sprintf("%.2fs", time.Since(start).Seconds())

	logger.Info("upload stored", logging.Fields{
		"file_id":    upload.FileID,
		"rows":       parsed.RowCount,
		"columns":    len(parsed.Columns),
		"compressed": compressed,
	})
	return result, nil
}

// minSeriesSamples is the fewest rows any analysis accepts
const minSeriesSamples = 2

// loaded is one selected series read from the store
type loaded struct {
	fileID     string
	filename   string
	time       []float64
	signal     []float64
	sampleRate float64
}

// load reads and parses an upload and selects its columns
func (p *Pipeline) load(ctx context.Context, sel Selection, minSamples int) (*loaded, error) {
	defer p.observe(StageLoad, time.Now())

	if sel.FileID == "" {
		return nil, fmt.Errorf("%w: file_id is required", ErrInvalidParameter)
	}

	upload, err := p.store.Get(ctx, sel.FileID)
	if err != nil {
		return nil, err
	}

	parsed, err := series.ParseLimited(upload.Filename, upload.Content, p.cfg.MaxInflatedBytes())
	if err != nil {
		return nil, err
	}
	parsed.FileID = upload.FileID

	t, signal, err := parsed.Select(sel.TimeColumn, sel.SignalColumn, minSamples)
	if err != nil {
		return nil, err
	}

	return &loaded{
		fileID:     upload.FileID,
		filename:   upload.Filename,
		time:       t,
		signal:     signal,
		sampleRate: DetectSampleRate(t, p.cfg.DefaultSampleRate),
	}, nil
}

// DetectSampleRate returns 1 / median positive spacing of the time axis,
// or fallback when the axis has no positive spacing
func DetectSampleRate(time []float64, fallback float64) float64 {
	diffs := make([]float64, 0, len(time))
	for i := 1; i < len(time); i++ {
		if d := time[i] - time[i-1]; d > 0 {
			diffs = append(diffs, d)
		}
	}
	if len(diffs) == 0 {
		return fallback
	}

	fs := 1 / stats.Median(diffs)
	if math.IsNaN(fs) || math.IsInf(fs, 0) || fs <= 0 {
		return fallback
	}
	return fs
}

// analysis is a loaded series with its decomposition and denoised signal
type analysis struct {
	*loaded
	wavelet  WaveletConfig
	dec      *wavelet.Decomposition
	denoised *wavelet.DenoiseResult
}

func (p *Pipeline) analyze(ctx context.Context, sel Selection, wc WaveletConfig) (*analysis, error) {
	if err := wc.Validate(); err != nil {
		return nil, err
	}

	// the level bound is left to the decomposer so a short signal reports
	// InsufficientSamples rather than EmptySeries
	data, err := p.load(ctx, sel, minSeriesSamples)
	if err != nil {
		return nil, err
	}

	decomposer, err := wavelet.NewDecomposer(wc.Family)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	dec, err := decomposer.Decompose(ctx, data.signal, wc.Levels)
	p.observe(StageDecompose, start)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	denoised, err := p.denoiser.Denoise(ctx, dec)
	p.observe(StageDenoise, start)
	if err != nil {
		return nil, err
	}

	return &analysis{loaded: data, wavelet: wc, dec: dec, denoised: denoised}, nil
}

// statistics computes the denoised signal features followed by the
// coefficient energy and entropy features
func (p *Pipeline) statistics(a *analysis) (features.FeatureSet, error) {
	defer p.observe(StageFeatures, time.Now())

	ref := &features.Reference{
		Original: a.signal,
		Noise:    common.Subtract(a.signal, a.denoised.Values),
	}
	fs, err := p.extractor.Extract(a.denoised.Values, a.sampleRate, ref)
	if err != nil {
		return nil, err
	}
	fs.Append(p.extractor.ExtractCoefficients(a.dec))
	return fs, nil
}

// WaveletCoefficients is the wire form of a decomposition; Detail is ordered
// coarsest first
type WaveletCoefficients struct {
	Approximation []float64   `json:"approximation"`
	Detail        [][]float64 `json:"detail"`
}

// DenoisingInfo reports the policy and estimates behind a denoised signal
type DenoisingInfo struct {
	Family     string    `json:"family"`
	Levels     int       `json:"levels"`
	Mode       string    `json:"mode"`
	Estimator  string    `json:"estimator"`
	NoiseSigma float64   `json:"noise_sigma"`
	Thresholds []float64 `json:"thresholds"`
	SampleRate float64   `json:"sample_rate"`
}

// ProcessResult is the response of the denoised path
type ProcessResult struct {
	Time           []float64           `json:"time"`
	RawSignal      []float64           `json:"raw_signal"`
	DenoisedSignal []float64           `json:"denoised_signal"`
	WaveletCoeffs  WaveletCoefficients `json:"wavelet_coeffs"`
	Statistics     features.FeatureSet `json:"statistics"`
	Filename       string              `json:"filename"`
	FileID         string              `json:"file_id"`
	Denoising      DenoisingInfo       `json:"denoising"`
}

// ProcessOne decomposes and denoises the selected signal and extracts its features
func (p *Pipeline) ProcessOne(ctx context.Context, sel Selection, wc WaveletConfig) (*ProcessResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "ProcessOne",
		"file_id":  sel.FileID,
		"family":   wc.Family,
		"levels":   wc.Levels,
	})

	a, err := p.analyze(ctx, sel, wc)
	if err != nil {
		return nil, err
	}

	fs, err := p.statistics(a)
	if err != nil {
		return nil, err
	}

	limits := p.cfg.Limits
	details := make([][]float64, len(a.dec.Details))
	for i, d := range a.dec.Details {
		details[i] = downsample.Truncate(d, limits.MaxCoefficientPoints)
	}

	policy := a.denoised.Policy
	result := &ProcessResult{
		Time:           downsample.Stride(a.time, limits.MaxResponsePoints),
		RawSignal:      downsample.Stride(a.signal, limits.MaxResponsePoints),
		DenoisedSignal: downsample.Stride(a.denoised.Values, limits.MaxResponsePoints),
		WaveletCoeffs: WaveletCoefficients{
			Approximation: downsample.Truncate(a.dec.Approximation, limits.MaxCoefficientPoints),
			Detail:        details,
		},
		Statistics: fs,
		Filename:   a.filename,
		FileID:     a.fileID,
		Denoising: DenoisingInfo{
			Family:     a.dec.Family,
			Levels:     a.dec.Levels,
			Mode:       string(policy.Mode),
			Estimator:  string(policy.Estimator),
			NoiseSigma: common.SanitizeFloat(a.denoised.NoiseSigma),
			Thresholds: a.denoised.Thresholds,
			SampleRate: a.sampleRate,
		},
	}

	logger.Info("signal processed", logging.Fields{
		"samples":     len(a.signal),
		"noise_sigma": a.denoised.NoiseSigma,
	})
	return result, nil
}

// RawResult is the response of the raw path
type RawResult struct {
	Statistics features.FeatureSet `json:"statistics"`
	Filename   string              `json:"filename"`
	FileID     string              `json:"file_id"`
}

// ProcessRaw extracts features of the selected signal without denoising
func (p *Pipeline) ProcessRaw(ctx context.Context, sel Selection) (*RawResult, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	data, err := p.load(ctx, sel, minSeriesSamples)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	fs, err := p.extractor.Extract(data.signal, data.sampleRate, nil)
	p.observe(StageFeatures, start)
	if err != nil {
		return nil, err
	}

	return &RawResult{
		Statistics: fs,
		Filename:   data.filename,
		FileID:     data.fileID,
	}, nil
}

// filenameFromID recovers the filename embedded in a file id
func filenameFromID(fileID string) string {
	if _, name, ok := strings.Cut(fileID, "_"); ok {
		return name
	}
	return fileID
}
