package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/database"
	"lusterd/internal/models"
)

// JobStore persists enhancement jobs and their append-only event trail, and
// implements the lease-based claim protocol the worker pool polls against.
type JobStore struct {
	db         *database.DB
	maxRetries int
}

func NewJobStore(db *database.DB, maxRetries int) *JobStore {
	return &JobStore{db: db, maxRetries: maxRetries}
}

// Create reserves credits and inserts the job row plus its EventCreated
// event in one transaction, so a job is never visible to the worker without
// its funding reservation already committed. The job's max_retries is set to
// the retry budget the store was constructed with.
func (s *JobStore) Create(ctx context.Context, credits *CreditStore, job *models.Job) error {
	if s.maxRetries > 0 {
		job.MaxRetries = s.maxRetries
	}

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin create job tx", err)
	}
	defer tx.Rollback()

	if err := credits.Reserve(ctx, tx, job.UserID, job.CreditsUsed); err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (id, asset_id, user_id, prompt, tier, status, credits_used, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`
	if err := tx.QueryRowContext(ctx, query,
		job.ID, job.AssetID, job.UserID, job.Prompt, job.Tier, job.Status, job.CreditsUsed, job.MaxRetries,
	).Scan(&job.CreatedAt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert job", err)
	}

	details, _ := json.Marshal(map[string]any{"tier": job.Tier, "credits_used": job.CreditsUsed})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), job.ID, models.EventCreated, details); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert job created event", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit create job tx", err)
	}
	return nil
}

func (s *JobStore) GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Job, error) {
	var job models.Job
	query := `
		SELECT id, asset_id, user_id, prompt, tier, status, credits_used, output_key,
			error_message, started_at, completed_at, lease_expires_at, retry_count, max_retries, created_at
		FROM jobs WHERE id = $1 AND user_id = $2`
	err := s.db.GetContext(ctx, &job, query, id, userID)
	if err == sql.ErrNoRows {
		return nil, apperr.New(apperr.KindNotFound, "job not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get job", err)
	}
	return &job, nil
}

// ListByUser returns jobs newest-first with keyset pagination on created_at.
func (s *JobStore) ListByUser(ctx context.Context, userID uuid.UUID, before *time.Time, limit int) ([]models.Job, error) {
	var jobs []models.Job
	query := `
		SELECT id, asset_id, user_id, prompt, tier, status, credits_used, output_key,
			error_message, started_at, completed_at, lease_expires_at, retry_count, max_retries, created_at
		FROM jobs
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3`
	if err := s.db.SelectContext(ctx, &jobs, query, userID, before, limit); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "list jobs", err)
	}
	return jobs, nil
}

// ClaimNext locks and returns the next claimable job: a freshly queued job,
// or a processing job whose lease expired before it exceeded max_retries.
// Uses SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers never block
// on or double-claim the same row, then stamps status/lease/retry_count
// before releasing the lock. Returns (nil, nil) when no job is claimable.
func (s *JobStore) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*models.Job, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "begin claim tx", err)
	}
	defer tx.Rollback()

	var job models.Job
	query := `
		SELECT id, asset_id, user_id, prompt, tier, status, credits_used, output_key,
			error_message, started_at, completed_at, lease_expires_at, retry_count, max_retries, created_at
		FROM jobs
		WHERE status = $1
			OR (status = $2 AND lease_expires_at IS NOT NULL AND lease_expires_at < now() AND retry_count < max_retries)
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED`
	err = tx.GetContext(ctx, &job, query, models.JobQueued, models.JobProcessing)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "select claimable job", err)
	}

	isRetry := job.Status == models.JobProcessing
	if isRetry {
		job.RetryCount++
	}

	now := time.Now().UTC()
	lease := now.Add(leaseDuration)
	job.Status = models.JobProcessing
	job.StartedAt = &now
	job.LeaseExpiresAt = &lease

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = $1, started_at = $2, lease_expires_at = $3, retry_count = $4 WHERE id = $5`,
		job.Status, job.StartedAt, job.LeaseExpiresAt, job.RetryCount, job.ID,
	); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "claim job update", err)
	}

	details, _ := json.Marshal(map[string]any{
		"started_at":       job.StartedAt,
		"lease_expires_at": job.LeaseExpiresAt,
		"retry_count":      job.RetryCount,
		"is_retry":         isRetry,
	})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), job.ID, models.EventStarted, details); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "insert started event", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "commit claim tx", err)
	}
	return &job, nil
}

// CompleteSuccess marks a job succeeded, clears its lease and records the
// output key and a completed event.
func (s *JobStore) CompleteSuccess(ctx context.Context, jobID uuid.UUID, outputKey string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin complete tx", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = $1, output_key = $2, completed_at = $3, lease_expires_at = NULL WHERE id = $4`,
		models.JobSucceeded, outputKey, now, jobID,
	); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark job succeeded", err)
	}

	details, _ := json.Marshal(map[string]any{"output_key": outputKey})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), jobID, models.EventCompleted, details); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert completed event", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit complete tx", err)
	}
	return nil
}

// CompleteFailure marks a job permanently failed (retries exhausted or the
// provider returned a non-retryable error) and refunds its reservation in
// the same transaction, so the status transition and the refund commit
// together per the store's atomicity contract.
func (s *JobStore) CompleteFailure(ctx context.Context, credits *CreditStore, job *models.Job, reason string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin fail tx", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET status = $1, error_message = $2, completed_at = $3, lease_expires_at = NULL WHERE id = $4`,
		models.JobFailed, reason, now, job.ID,
	); err != nil {
		return apperr.Wrap(apperr.KindInternal, "mark job failed", err)
	}

	details, _ := json.Marshal(map[string]any{"error": reason, "retry_count": job.RetryCount})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), job.ID, models.EventFailed, details); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert failed event", err)
	}

	if job.CreditsUsed > 0 {
		if err := credits.RefundTx(ctx, tx, job.ID, job.UserID, job.CreditsUsed, "job_failed"); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit fail tx", err)
	}
	return nil
}

// ScheduleRetry leaves a job in the processing state to await its next
// ClaimNext pickup when a transient provider error still leaves retry
// budget; it simply expires the lease early so a worker doesn't need to wait
// out the full lease window before reclaiming it.
func (s *JobStore) ScheduleRetry(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET lease_expires_at = now() WHERE id = $1 AND status = $2`,
		jobID, models.JobProcessing)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "schedule retry", err)
	}
	return nil
}

// FailExhausted marks job permanently failed because its retry budget is
// exhausted (as opposed to a single permanent provider error) and refunds its
// reservation via CompleteFailure, additionally recording a
// max_retries_exceeded event so the job's history distinguishes this case
// from an ordinary failure.
func (s *JobStore) FailExhausted(ctx context.Context, credits *CreditStore, job *models.Job, reason string) error {
	if err := s.CompleteFailure(ctx, credits, job, reason); err != nil {
		return err
	}
	details, _ := json.Marshal(map[string]any{
		"retry_count": job.RetryCount,
		"max_retries": job.MaxRetries,
	})
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), job.ID, models.EventMaxRetriesExceeded, details); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert max retries event", err)
	}
	return nil
}

// SweepExhausted finds jobs stuck in processing whose lease expired and
// whose retry budget is exhausted, fails them and refunds their credits.
// Run periodically by the worker pool's sweeper alongside ClaimNext, which
// only reclaims jobs that still have retries left.
func (s *JobStore) SweepExhausted(ctx context.Context, credits *CreditStore) (int, error) {
	var stuck []models.Job
	query := `
		SELECT id, asset_id, user_id, prompt, tier, status, credits_used, output_key,
			error_message, started_at, completed_at, lease_expires_at, retry_count, max_retries, created_at
		FROM jobs
		WHERE status = $1 AND lease_expires_at IS NOT NULL AND lease_expires_at < now() AND retry_count >= max_retries`
	if err := s.db.SelectContext(ctx, &stuck, query, models.JobProcessing); err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "select exhausted jobs", err)
	}

	for i := range stuck {
		job := &stuck[i]
		if err := s.FailExhausted(ctx, credits, job, "job failed after max retries"); err != nil {
			return i, err
		}
	}
	return len(stuck), nil
}
