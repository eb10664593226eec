// Package sweeper runs the periodic reclaim of abandoned paid reservations.
// Registrations whose payment never settled within the grace window are
// cancelled and their slots returned to the pool.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

type Reclaimer interface {
	ReclaimAbandoned(ctx context.Context) (int, error)
}

type Config struct {
	PollInterval time.Duration
}

type Sweeper struct {
	cfg       Config
	reclaimer Reclaimer
	log       *slog.Logger

	// consecutive failures, drives the backoff between polls
	failures int
}

func New(cfg Config, reclaimer Reclaimer, log *slog.Logger) *Sweeper {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}

	return &Sweeper{
		cfg:       cfg,
		reclaimer: reclaimer,
		log:       log,
	}
}

// Run polls until the context is cancelled. Storage errors back off
// exponentially instead of hammering a struggling database.
func (s *Sweeper) Run(ctx context.Context) error {
	timer := time.NewTimer(s.cfg.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper received shutdown signal")
			return nil

		case <-timer.C:
			s.sweep(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.reclaimer.ReclaimAbandoned(ctx)

	if err != nil {
		s.failures++
		s.log.ErrorContext(ctx, "reclaim sweep failed", "err", err, "failures", s.failures)
		return
	}

	s.failures = 0

	if n > 0 {
		s.log.InfoContext(ctx, "reclaim sweep released slots", "count", n)
	}
}

func (s *Sweeper) nextDelay() time.Duration {
	if s.failures == 0 {
		return s.cfg.PollInterval
	}
	return ExponentialBackoff(s.failures - 1)
}
