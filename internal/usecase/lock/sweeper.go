package lock

import (
	"context"
	"time"

	"collections-backend/internal/logger"

	"go.uber.org/zap"
)

// Sweeper periodically reclaims expired locks so Status reflects reality even
// for resources nobody tries to acquire again.
type Sweeper struct {
	locks    *Manager
	interval time.Duration
	log      *zap.Logger
}

func NewSweeper(locks *Manager, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{locks: locks, interval: interval, log: logger.OrNop(log)}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("lock sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		case <-ctx.Done():
			s.log.Info("lock sweeper stopped")
			return
		}
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.locks.SweepExpired(ctx)
	if err != nil {
		s.log.Error("lock sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("swept expired locks", zap.Int64("count", n))
	}
	return n, nil
}
