package worker

import (
	"context"
	"log/slog"
	"time"

	"lusterd/internal/store"
)

// Sweeper periodically fails and refunds jobs stuck in processing whose
// lease expired with no retry budget left, catching anything ClaimNext
// alone would leave orphaned if every worker crashed mid-lease.
type Sweeper struct {
	jobs     *store.JobStore
	credits  *store.CreditStore
	interval time.Duration
}

func NewSweeper(jobs *store.JobStore, credits *store.CreditStore, interval time.Duration) *Sweeper {
	return &Sweeper{jobs: jobs, credits: credits, interval: interval}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := s.jobs.SweepExhausted(ctx, s.credits)
			if err != nil {
				slog.Error("sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("swept exhausted jobs", "count", n)
			}
		}
	}
}
