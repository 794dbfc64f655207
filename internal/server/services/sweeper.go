package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/logging"
)

// Expirer drops staging sessions idle for longer than window.
type Expirer interface {
	ExpireOlderThan(ctx context.Context, window time.Duration) (int, error)
}

// Sweeper periodically removes abandoned staging sessions.
type Sweeper struct {
	expirer   Expirer
	interval  time.Duration
	retention time.Duration
	log       logging.Logger
}

func NewSweeper(expirer Expirer, interval, retention time.Duration, log logging.Logger) *Sweeper {
	return &Sweeper{
		expirer:   expirer,
		interval:  interval,
		retention: retention,
		log:       log.With("component", "sweeper"),
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info(ctx, "staging sweeper started", "interval", s.interval.String(), "retention", s.retention.String())
	for {
		select {
		case <-ctx.Done():
			s.log.Info(ctx, "staging sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single expiration pass and returns the number of
// sessions removed.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.expirer.ExpireOlderThan(ctx, s.retention)
	if err != nil {
		s.log.Error(ctx, "expire staging sessions", "error", err)
	}
	if n > 0 {
		s.log.Info(ctx, "expired staging sessions", "count", n)
	}
	return n
}
