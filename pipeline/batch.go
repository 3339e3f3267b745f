package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/features"
	"github.com/RyanBlaney/sonido-wavelet/logging"
	"golang.org/x/sync/errgroup"
)

// Batch file outcomes reported to an Observer
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// BatchOptions controls batch dispatch
type BatchOptions struct {
	// FailFast stops dispatching files after the first failure. Files
	// already running finish and their results are kept.
	FailFast bool `json:"fail_fast"`
}

// FileStatistics is the FeatureSet of one successfully processed file
type FileStatistics struct {
	FileID     string              `json:"file_id"`
	Filename   string              `json:"filename"`
	Statistics features.FeatureSet `json:"statistics"`
}

// BatchResult holds per-file outcomes in input order
type BatchResult struct {
	Results []FileStatistics       `json:"results"`
	Errors  []*FileProcessingError `json:"errors"`
	Skipped []Selection            `json:"skipped"`
}

// Processed returns the number of successful files
func (r *BatchResult) Processed() int {
	return len(r.Results)
}

// Failed returns the number of failed files
func (r *BatchResult) Failed() int {
	return len(r.Errors)
}

// Table returns the consolidated statistics rows keyed by filename
func (r *BatchResult) Table() []StatsRow {
	rows := make([]StatsRow, len(r.Results))
	for i, res := range r.Results {
		rows[i] = NewStatsRow(res.Filename, res.Statistics)
	}
	return rows
}

// MarshalJSON reports the error with its kind for API callers
func (e *FileProcessingError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Filename string `json:"filename"`
		FileID   string `json:"file_id"`
		Kind     Kind   `json:"kind"`
		Detail   string `json:"detail"`
	}{
		Filename: e.Filename,
		FileID:   e.FileID,
		Kind:     e.Kind(),
		Detail:   e.Err.Error(),
	})
}

// batchSlot is one file's outcome; an empty slot means the file was skipped
type batchSlot struct {
	result *FileStatistics
	err    *FileProcessingError
}

// ProcessBatch runs the denoised path for every selection on a bounded
// worker pool. Files share no state, and a failing file never fails the
// batch; its error is reported as a FileProcessingError next to the
// results of the other files. The returned error is non-nil only when
// the batch itself is invalid or the context ends.
func (p *Pipeline) ProcessBatch(ctx context.Context, selections []Selection, wc WaveletConfig, opts BatchOptions) (*BatchResult, error) {
	if len(selections) == 0 {
		return nil, fmt.Errorf("%w: batch has no files", ErrInvalidParameter)
	}
	if err := wc.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":  "ProcessBatch",
		"files":     len(selections),
		"family":    wc.Family,
		"levels":    wc.Levels,
		"fail_fast": opts.FailFast,
	})

	slots := make([]batchSlot, len(selections))
	var stopped atomic.Bool

	g := new(errgroup.Group)
	g.SetLimit(p.cfg.Workers)

	for i, sel := range selections {
		i, sel := i, sel
		if stopped.Load() || ctx.Err() != nil {
			continue
		}

		g.Go(func() error {
			if stopped.Load() {
				return nil
			}

			result, err := p.ProcessOne(ctx, sel, wc)
			if err != nil {
				slots[i].err = &FileProcessingError{
					Filename: p.filenameFor(ctx, sel.FileID),
					FileID:   sel.FileID,
					Err:      err,
				}
				if opts.FailFast {
					stopped.Store(true)
				}
				return nil
			}

			slots[i].result = &FileStatistics{
				FileID:     result.FileID,
				Filename:   result.Filename,
				Statistics: result.Statistics,
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{
		Results: []FileStatistics{},
		Errors:  []*FileProcessingError{},
		Skipped: []Selection{},
	}
	for i, slot := range slots {
		switch {
		case slot.result != nil:
			batch.Results = append(batch.Results, *slot.result)
			p.observer.ObserveBatchFile(OutcomeSuccess)
		case slot.err != nil:
			batch.Errors = append(batch.Errors, slot.err)
			p.observer.ObserveBatchFile(OutcomeFailed)
			logger.Warn("batch file failed", logging.Fields{
				"file_id": slot.err.FileID,
				"kind":    slot.err.Kind(),
				"error":   slot.err.Err.Error(),
			})
		default:
			batch.Skipped = append(batch.Skipped, selections[i])
			p.observer.ObserveBatchFile(OutcomeSkipped)
		}
	}

	logger.Info("batch complete", logging.Fields{
		"processed":   batch.Processed(),
		"failed":      batch.Failed(),
		"skipped":     len(batch.Skipped),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if err := ctx.Err(); err != nil {
		return batch, err
	}
	return batch, nil
}

// filenameFor looks up the stored filename, falling back to the id suffix
func (p *Pipeline) filenameFor(ctx context.Context, fileID string) string {
	if upload, err := p.store.Get(ctx, fileID); err == nil {
		return upload.Filename
	}
	return filenameFromID(fileID)
}
