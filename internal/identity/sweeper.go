package identity

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 5 * time.Minute

// SweepCallback runs after each sweep, e.g. to purge other expiring state.
type SweepCallback func()

// StartSweeper runs a background goroutine that periodically deletes expired
// sessions until ctx is cancelled.
func (s *Sessions) StartSweeper(ctx context.Context, interval time.Duration, onSweep SweepCallback) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		s.logger.Info("session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				s.sweep(ctx)
				if onSweep != nil {
					onSweep()
				}
			case <-ctx.Done():
				s.logger.Info("session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func (s *Sessions) sweep(ctx context.Context) {
	n, err := s.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}
