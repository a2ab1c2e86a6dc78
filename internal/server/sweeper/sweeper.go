// Package sweeper periodically removes refresh-token rows that can no longer
// authenticate anyone. Expiry is still checked when a token is verified, so
// the sweeper only bounds table growth.
package sweeper

import (
	"context"
	"time"

	"github.com/dmitrijs2005/donationhub/internal/logging"
)

// Purger deletes rows expired before expiredBefore or revoked before
// revokedBefore.
type Purger interface {
	PurgeExpired(ctx context.Context, expiredBefore, revokedBefore time.Time) (int64, error)
}

type Sweeper struct {
	purger    Purger
	interval  time.Duration
	retention time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// New returns a Sweeper that runs every interval and keeps revoked rows for
// retention.
func New(purger Purger, interval, retention time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{
		purger:    purger,
		interval:  interval,
		retention: retention,
		logger:    logger.With("module", "sweeper"),
		now:       time.Now,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "token sweeper started", "interval", s.interval, "retention", s.retention)

	for {
		s.SweepOnce(ctx)

		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "token sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single purge and returns the number of removed rows.
func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	now := s.now()
	n, err := s.purger.PurgeExpired(ctx, now, now.Add(-s.retention))
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error(ctx, "token sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.Info(ctx, "token sweep", "removed", n)
	}
	return n
}
