package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/de-tools/spend-atlas/pkg/models/domain"
	"github.com/de-tools/spend-atlas/pkg/services/aggregator"
	"github.com/rs/zerolog"
)

const DefaultInterval = 6 * time.Hour

type Runner interface {
	Run(ctx context.Context) (*domain.Snapshot, error)
	Running() bool
}

// Scheduler drives the runner on a fixed interval and on manual triggers.
// Runs are executed one after another from a single loop.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	trigger  chan struct{}
}

func New(runner Runner, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests a manual run. It returns false when the request was
// absorbed by a run in progress or one already pending.
func (s *Scheduler) Trigger() bool {
	if s.runner.Running() {
		return false
	}
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start runs once immediately, then on every tick or trigger until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	logger.Info().Dur("interval", s.interval).Msg("scheduler started")

	s.runOnce(ctx, "startup")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx, "interval")
		case <-s.trigger:
			s.runOnce(ctx, "manual")
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, reason string) {
	logger := zerolog.Ctx(ctx).With().Str("trigger", reason).Logger()

	_, err := s.runner.Run(logger.WithContext(ctx))
	switch {
	case errors.Is(err, aggregator.ErrRunInProgress):
		logger.Debug().Msg("run absorbed, another run is in progress")
	case err != nil:
		logger.Error().Err(err).Msg("aggregation run failed")
	}
}
