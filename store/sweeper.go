package store

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the expiry sweep every ten minutes
const DefaultSweepSchedule = "@every 10m"

// ExpirySweeper periodically removes expired uploads from a Sweeper
type ExpirySweeper struct {
	cron    *cron.Cron
	target  Sweeper
	baseCtx context.Context
	logger  logging.Logger
	now     func() time.Time
}

// NewExpirySweeper schedules target.Sweep on a cron schedule such as
// "@every 10m" or "*/5 * * * *"
func NewExpirySweeper(baseCtx context.Context, schedule string, target Sweeper) (*ExpirySweeper, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	s := &ExpirySweeper{
		cron:    cron.New(),
		target:  target,
		baseCtx: baseCtx,
		logger: logging.WithFields(logging.Fields{
			"component": "expiry_sweeper",
		}),
		now: time.Now,
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.RunOnce(s.baseCtx) }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunOnce sweeps immediately and returns the number of removed uploads
func (s *ExpirySweeper) RunOnce(ctx context.Context) int {
	removed, err := s.target.Sweep(ctx, s.now())
	if err != nil {
		s.logger.Error(err, "expiry sweep failed")
		return removed
	}
	if removed > 0 {
		s.logger.Info("removed expired uploads", logging.Fields{
			"removed": removed,
		})
	}
	return removed
}

func (s *ExpirySweeper) Start() {
	s.logger.Info("sweeper started")
	s.cron.Start()
}

// Stop waits for a running sweep to finish
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("sweeper stopped")
}
