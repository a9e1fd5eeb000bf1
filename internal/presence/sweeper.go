package presence

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically clears geo/detail entries for drivers whose heartbeat
// expired, so the directory does not accumulate ghosts when clients vanish
// without disconnecting cleanly.
type Sweeper struct {
	dir      *RedisDirectory
	interval time.Duration
	log      *slog.Logger
}

func NewSweeper(dir *RedisDirectory, interval time.Duration, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	return &Sweeper{dir: dir, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for _, pool := range []Pool{PoolAvailable, PoolOnRide} {
		stale, err := s.dir.StaleGeoMembers(ctx, pool)
		if err != nil {
			s.log.Error("presence sweep failed", "pool", string(pool), "error", err)
			continue
		}
		for _, id := range stale {
			if err := s.dir.Remove(ctx, id, pool); err != nil {
				s.log.Error("stale driver removal failed", "driver_id", id, "error", err)
				continue
			}
			s.log.Info("removed stale driver", "driver_id", id, "pool", string(pool))
		}
	}
}
