package meetings

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often the background expiry sweep runs.
const DefaultSweepInterval = time.Hour

// StartSweeper launches the background expiry sweep on a fixed interval and
// returns immediately. The sweeper shares the store with request handling;
// a cancel racing the sweep on the same record is benign since both outcomes
// converge on the record being gone. The goroutine exits when ctx is
// cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("expiry sweeper started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("expiry sweeper stopped")
				return
			case now := <-ticker.C:
				if _, err := s.SweepExpired(ctx, now); err != nil {
					log.Error().Err(err).Msg("expiry sweep failed")
				}
			}
		}
	}()
}
