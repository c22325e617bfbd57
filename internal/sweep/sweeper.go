// Package sweep runs the periodic status sweep that advances expired
// active events to complete.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StatusSweeper is the sweep operation the sweeper drives. Implemented
// by service.EventService.
type StatusSweeper interface {
	SweepStatuses(ctx context.Context) (completed, failed int, err error)
}

// Sweeper invokes the status sweep on a fixed interval. Overlapping
// runs are skipped rather than queued: the sweep is idempotent, so a
// skipped tick is recovered by the next one.
type Sweeper struct {
	svc      StatusSweeper
	interval time.Duration
	log      zerolog.Logger

	mu sync.Mutex
}

// New constructs a Sweeper.
func New(svc StatusSweeper, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. If another sweep is still in flight
// the call returns without doing anything.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if !s.mu.TryLock() {
		s.log.Debug().Msg("sweep already running, skipping")
		return
	}
	defer s.mu.Unlock()

	completed, failed, err := s.svc.SweepStatuses(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("status sweep failed")
		return
	}
	if completed > 0 || failed > 0 {
		s.log.Info().Int("completed", completed).Int("failed", failed).Msg("status sweep finished")
	}
}
