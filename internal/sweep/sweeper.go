package sweep

import (
	"context"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
	"go.uber.org/zap"
)

type StatusStore interface {
	SweepStatuses(ctx context.Context, now time.Time, grace time.Duration) (int64, error)
}

// Sweeper keeps the stored poll and survey status in line with the clock.
// Reads derive status on their own; the stored copy is for queries that
// filter on status.
type Sweeper struct {
	Store    StatusStore
	Grace    time.Duration
	Interval time.Duration
	Now      func() time.Time
}

func New(store StatusStore, grace, interval time.Duration) *Sweeper {
	return &Sweeper{Store: store, Grace: grace, Interval: interval, Now: time.Now}
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.Store.SweepStatuses(ctx, s.Now().UTC(), s.Grace)
	if err != nil {
		return n, err
	}
	metrics.SweepChanged.Add(float64(n))
	metrics.SweepLastRun.SetToCurrentTime()
	return n, nil
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		if n, err := s.RunOnce(ctx); err != nil {
			log.L().Error("status sweep", zap.Error(err))
		} else if n > 0 {
			log.L().Info("status sweep", zap.Int64("changed", n))
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
