package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/RyanBlaney/sonido-wavelet/algorithms/wavelet"
	"github.com/RyanBlaney/sonido-wavelet/features"
	"github.com/RyanBlaney/sonido-wavelet/series"
	"github.com/RyanBlaney/sonido-wavelet/store"
)

// ErrInvalidParameter is returned for request parameters outside their domain
var ErrInvalidParameter = errors.New("invalid parameter")

// Kind names an error class reported to API callers
type Kind string

const (
	KindInvalidColumnIndex       Kind = "InvalidColumnIndex"
	KindNonNumericColumn         Kind = "NonNumericColumn"
	KindEmptySeries              Kind = "EmptySeries"
	KindInsufficientSamples      Kind = "InsufficientSamples"
	KindDegenerateSignal         Kind = "DegenerateSignal"
	KindUnsupportedWaveletFamily Kind = "UnsupportedWaveletFamily"
	KindInvalidParameter         Kind = "InvalidParameter"
	KindMalformedUpload          Kind = "MalformedUpload"
	KindRequestTooLarge          Kind = "RequestTooLarge"
	KindFileNotFound             Kind = "FileNotFound"
	KindFileProcessingError      Kind = "FileProcessingError"
	KindTimeout                  Kind = "Timeout"
	KindCanceled                 Kind = "Canceled"
	KindInternal                 Kind = "Internal"
)

var kindSentinels = []struct {
	err  error
	kind Kind
}{
	{series.ErrInvalidColumnIndex, KindInvalidColumnIndex},
	{series.ErrNonNumericColumn, KindNonNumericColumn},
	{series.ErrEmptySeries, KindEmptySeries},
	{wavelet.ErrInsufficientSamples, KindInsufficientSamples},
	{features.ErrDegenerateSignal, KindDegenerateSignal},
	{wavelet.ErrUnsupportedFamily, KindUnsupportedWaveletFamily},
	{wavelet.ErrInvalidLevels, KindInvalidParameter},
	{wavelet.ErrInvalidPolicy, KindInvalidParameter},
	{ErrInvalidParameter, KindInvalidParameter},
	{series.ErrUnsupportedFormat, KindMalformedUpload},
	{series.ErrMalformed, KindMalformedUpload},
	{series.ErrTooLarge, KindRequestTooLarge},
	{store.ErrNotFound, KindFileNotFound},
	{context.DeadlineExceeded, KindTimeout},
	{context.Canceled, KindCanceled},
}

// KindOf classifies err. A FileProcessingError reports the kind of its cause;
// use errors.As to detect the batch wrapper itself.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, s := range kindSentinels {
		if errors.Is(err, s.err) {
			return s.kind
		}
	}
	return KindInternal
}

// FileProcessingError records which file of a batch failed and why
type FileProcessingError struct {
	Filename string
	FileID   string
	Err      error
}

func (e *FileProcessingError) Error() string {
	name := e.Filename
	if name == "" {
		name = e.FileID
	}
	return fmt.Sprintf("processing %s: %v", name, e.Err)
}

func (e *FileProcessingError) Unwrap() error {
	return e.Err
}

// Kind returns the kind of the underlying cause
func (e *FileProcessingError) Kind() Kind {
	return KindOf(e.Err)
}
