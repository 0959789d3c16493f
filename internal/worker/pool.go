// Package worker implements the lease-based polling pool that claims queued
// jobs and runs them through the enhancement pipeline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"lusterd/internal/store"
)

// Pool runs a fixed number of concurrent claim/process loops against the
// job store, each paced by a rate limiter so an empty queue doesn't spin.
type Pool struct {
	jobs          *store.JobStore
	pipeline      *Pipeline
	leaseDuration time.Duration
	pollInterval  time.Duration
	concurrency   int
}

func NewPool(jobs *store.JobStore, pipeline *Pipeline, leaseDuration, pollInterval time.Duration, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{
		jobs:          jobs,
		pipeline:      pipeline,
		leaseDuration: leaseDuration,
		pollInterval:  pollInterval,
		concurrency:   concurrency,
	}
}

// Run starts concurrency worker loops and blocks until ctx is cancelled or
// one of them returns a non-context error.
func (p *Pool) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	for i := 0; i < p.concurrency; i++ {
		workerID := i
		g.Go(func() error {
			return p.loop(gCtx, workerID)
		})
	}
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, workerID int) error {
	// Burst of 1 keeps a worker from hammering Postgres with back-to-back
	// claim attempts once the queue empties out.
	limiter := rate.NewLimiter(rate.Every(p.pollInterval), 1)
	log := slog.With("worker_id", workerID)

	for {
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}

		job, err := p.jobs.ClaimNext(ctx, p.leaseDuration)
		if err != nil {
			log.Error("claim failed", "error", err)
			continue
		}
		if job == nil {
			continue
		}

		log.Info("claimed job", "job_id", job.ID, "retry_count", job.RetryCount)
		if err := p.pipeline.Run(ctx, job); err != nil {
			log.Error("pipeline run failed", "job_id", job.ID, "error", err)
		}
	}
}
