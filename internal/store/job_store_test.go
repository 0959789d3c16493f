package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"lusterd/internal/database"
	"lusterd/internal/models"
)

// jobFixture customizes the fields seedJob writes directly; zero values fall
// back to a fresh queued job with one credit and three max retries.
type jobFixture struct {
	Status         models.JobStatus
	RetryCount     int
	MaxRetries     int
	LeaseExpiresAt *time.Time
	CreditsUsed    int
}

// seedJob inserts a shoot, an asset and a job row directly, bypassing
// JobStore.Create so tests can put a job into states Create can't produce
// (e.g. an expired lease on a processing job).
func seedJob(t *testing.T, db *database.DB, userID uuid.UUID, f jobFixture) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	shootID := uuid.New()
	_, err := db.ExecContext(ctx,
		`INSERT INTO shoots (id, user_id, name) VALUES ($1, $2, $3)`,
		shootID, userID, "test shoot")
	require.NoError(t, err)

	assetID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO assets (id, shoot_id, user_id, object_key, filename, size, mime_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		assetID, shootID, userID, "originals/"+assetID.String()+".jpg", "test.jpg", 1024, "image/jpeg")
	require.NoError(t, err)

	if f.MaxRetries == 0 {
		f.MaxRetries = 3
	}
	if f.Status == "" {
		f.Status = models.JobQueued
	}
	if f.CreditsUsed == 0 {
		f.CreditsUsed = 1
	}

	jobID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO jobs (id, asset_id, user_id, prompt, tier, status, credits_used, retry_count, max_retries, lease_expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		jobID, assetID, userID, "enhance test prompt", models.TierFree, f.Status, f.CreditsUsed,
		f.RetryCount, f.MaxRetries, f.LeaseExpiresAt)
	require.NoError(t, err)

	return jobID
}

func TestJobStoreClaimNextClaimsQueuedJob(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 5)
	jobID := seedJob(t, db, userID, jobFixture{Status: models.JobQueued})

	claimed, err := jobs.ClaimNext(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, jobID, claimed.ID)
	require.Equal(t, models.JobProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)
	require.NotNil(t, claimed.LeaseExpiresAt)
	require.Equal(t, 0, claimed.RetryCount, "claiming a fresh queued job must not count as a retry")
}

func TestJobStoreClaimNextSkipsUnexpiredLease(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 5)
	future := time.Now().Add(time.Hour)
	seedJob(t, db, userID, jobFixture{
		Status:         models.JobProcessing,
		LeaseExpiresAt: &future,
	})

	claimed, err := jobs.ClaimNext(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Nil(t, claimed, "a job whose lease hasn't expired must not be claimable")
}

// TestJobStoreClaimNextReclaimExhaustsRetryBudget proves the boundary the
// worker pipeline's proactive exhaustion check depends on: a job reclaimed
// with retry_count already at max_retries-1 comes back with RetryCount ==
// MaxRetries, not silently capped or rejected at the store layer.
func TestJobStoreClaimNextReclaimExhaustsRetryBudget(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 5)
	expired := time.Now().Add(-time.Minute)
	jobID := seedJob(t, db, userID, jobFixture{
		Status:         models.JobProcessing,
		RetryCount:     2,
		MaxRetries:     3,
		LeaseExpiresAt: &expired,
	})

	claimed, err := jobs.ClaimNext(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	require.Equal(t, jobID, claimed.ID)
	require.Equal(t, 3, claimed.RetryCount)
	require.Equal(t, claimed.MaxRetries, claimed.RetryCount,
		"reclaim must be allowed to bump retry_count up to max_retries; the pipeline is responsible for refusing to process it further")
}

func TestJobStoreClaimNextIgnoresExhaustedLease(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 5)
	expired := time.Now().Add(-time.Minute)
	seedJob(t, db, userID, jobFixture{
		Status:         models.JobProcessing,
		RetryCount:     3,
		MaxRetries:     3,
		LeaseExpiresAt: &expired,
	})

	claimed, err := jobs.ClaimNext(ctx, 15*time.Minute)
	require.NoError(t, err)
	require.Nil(t, claimed, "a job already at max_retries must not be reclaimed; SweepExhausted owns it instead")
}

func TestJobStoreCompleteSuccess(t *testing.T) {
	db := newTestDB(t)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 5)
	jobID := seedJob(t, db, userID, jobFixture{Status: models.JobQueued})

	require.NoError(t, jobs.CompleteSuccess(ctx, jobID, "outputs/result.jpg"))

	got, err := jobs.GetOwned(ctx, jobID, userID)
	require.NoError(t, err)
	require.Equal(t, models.JobSucceeded, got.Status)
	require.NotNil(t, got.OutputKey)
	require.Equal(t, "outputs/result.jpg", *got.OutputKey)
	require.Nil(t, got.LeaseExpiresAt)
}

func TestJobStoreCompleteFailureRefundsCredits(t *testing.T) {
	db := newTestDB(t)
	credits := NewCreditStore(db)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 0)
	jobID := seedJob(t, db, userID, jobFixture{Status: models.JobProcessing, CreditsUsed: 2})
	job, err := jobs.GetOwned(ctx, jobID, userID)
	require.NoError(t, err)

	require.NoError(t, jobs.CompleteFailure(ctx, credits, job, "provider rejected prompt"))

	balance, err := credits.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, balance)

	// A second CompleteFailure on the same job must not double-refund:
	// RefundTx's idempotency check on job_events short-circuits the refund.
	err = jobs.CompleteFailure(ctx, credits, job, "provider rejected prompt")
	require.Error(t, err)

	balance, err = credits.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 2, balance, "balance must not change on a rejected duplicate failure refund")
}

func TestJobStoreFailExhaustedRecordsEvent(t *testing.T) {
	db := newTestDB(t)
	credits := NewCreditStore(db)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 0)
	jobID := seedJob(t, db, userID, jobFixture{
		Status: models.JobProcessing, CreditsUsed: 1, RetryCount: 3, MaxRetries: 3,
	})
	job, err := jobs.GetOwned(ctx, jobID, userID)
	require.NoError(t, err)

	require.NoError(t, jobs.FailExhausted(ctx, credits, job, "max retries exceeded on lease reclaim"))

	got, err := jobs.GetOwned(ctx, jobID, userID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, got.Status)

	var eventCount int
	require.NoError(t, db.GetContext(ctx, &eventCount,
		`SELECT COUNT(*) FROM job_events WHERE job_id = $1 AND event_type = $2`,
		jobID, models.EventMaxRetriesExceeded))
	require.Equal(t, 1, eventCount)

	balance, err := credits.Balance(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, balance, "FailExhausted must refund the reservation like any other terminal failure")
}

func TestJobStoreSweepExhaustedFailsStuckJobs(t *testing.T) {
	db := newTestDB(t)
	credits := NewCreditStore(db)
	jobs := NewJobStore(db, 3)
	ctx := context.Background()

	userID := seedUserWithBalance(t, db, 0)
	expired := time.Now().Add(-time.Hour)
	stuckID := seedJob(t, db, userID, jobFixture{
		Status: models.JobProcessing, CreditsUsed: 1, RetryCount: 3, MaxRetries: 3, LeaseExpiresAt: &expired,
	})
	// A second processing job that still has retry budget left must be
	// left alone; ClaimNext, not the sweeper, owns that case.
	seedJob(t, db, userID, jobFixture{
		Status: models.JobProcessing, CreditsUsed: 1, RetryCount: 1, MaxRetries: 3, LeaseExpiresAt: &expired,
	})

	n, err := jobs.SweepExhausted(ctx, credits)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := jobs.GetOwned(ctx, stuckID, userID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, got.Status)
}
