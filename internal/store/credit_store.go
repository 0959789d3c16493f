package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"lusterd/internal/apperr"
	"lusterd/internal/database"
	"lusterd/internal/models"
)

// CreditStore implements the reserve/refund/grant ledger. Reserve locks the
// user's credit row; refunds are guarded by an idempotency check against
// job_events and webhook grants by one against credit_deltas, so retried
// calls (webhook redelivery, worker re-processing a claimed job) are safe to
// repeat.
type CreditStore struct {
	db *database.DB
}

func NewCreditStore(db *database.DB) *CreditStore {
	return &CreditStore{db: db}
}

// Balance returns the user's current credit balance.
func (s *CreditStore) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	var balance int
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM credits WHERE user_id = $1`, userID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "get credit balance", err)
	}
	return balance, nil
}

// Reserve deducts amount from the user's balance inside tx, failing with
// apperr.KindPaymentRequired if insufficient. Caller is expected to insert
// the job row and an EventCreated job_event in the same transaction so the
// reservation and the job it funds commit or roll back together.
func (s *CreditStore) Reserve(ctx context.Context, tx *sqlTx, userID uuid.UUID, amount int) error {
	var balance int
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM credits WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&balance)
	if err == sql.ErrNoRows {
		return apperr.New(apperr.KindPaymentRequired, "no credit balance for user")
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "lock credit row", err)
	}
	if balance < amount {
		return apperr.New(apperr.KindPaymentRequired, "insufficient credits")
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE credits SET balance = balance - $1, updated_at = now() WHERE user_id = $2`,
		amount, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "deduct credits", err)
	}
	return nil
}

// Refund returns amount to the user's balance and records a credits_refunded
// job_event in its own transaction, used by the user-facing /jobs/{id}/refund
// endpoint. Job completion uses RefundTx instead so the status transition and
// the refund commit together.
func (s *CreditStore) Refund(ctx context.Context, jobID, userID uuid.UUID, amount int, reason string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin refund tx", err)
	}
	defer tx.Rollback()

	if err := s.RefundTx(ctx, tx, jobID, userID, amount, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit refund tx", err)
	}
	return nil
}

// RefundTx performs the refund within an existing transaction, but only if a
// credits_refunded job_event doesn't already exist for jobID — this closes
// the double-refund race the original Python service left open by checking
// existence at the ORM level rather than inside the same transaction as the
// mutation. The job row is locked first so concurrent refunds of one job
// run the existence check one after the other.
func (s *CreditStore) RefundTx(ctx context.Context, tx *sqlTx, jobID, userID uuid.UUID, amount int, reason string) error {
	if _, err := tx.ExecContext(ctx, `SELECT 1 FROM jobs WHERE id = $1 FOR UPDATE`, jobID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "lock job row for refund", err)
	}

	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM job_events WHERE job_id = $1 AND event_type = $2)`,
		jobID, models.EventCreditsRefunded,
	).Scan(&exists)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "check existing refund", err)
	}
	if exists {
		return apperr.New(apperr.KindFailedPrecondition, "credits already refunded for job")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE credits SET balance = balance + $1, updated_at = now() WHERE user_id = $2`,
		amount, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "credit refund", err)
	}

	var newBalance int
	if err := tx.QueryRowContext(ctx,
		`SELECT balance FROM credits WHERE user_id = $1`, userID,
	).Scan(&newBalance); err != nil {
		return apperr.Wrap(apperr.KindInternal, "read balance after refund", err)
	}

	details, _ := json.Marshal(map[string]any{
		"credits_refunded": amount,
		"new_balance":      newBalance,
		"reason":           reason,
	})
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_events (id, job_id, event_type, details) VALUES ($1, $2, $3, $4)`,
		uuid.New(), jobID, models.EventCreditsRefunded, details); err != nil {
		return apperr.Wrap(apperr.KindInternal, "insert refund event", err)
	}
	return nil
}

// ApplyDelta adjusts balance by delta (positive for a billing grant,
// negative for a revoke), guarded by an idempotency key so a redelivered
// webhook event never double-applies. eventKey is typically the provider's
// event id.
func (s *CreditStore) ApplyDelta(ctx context.Context, userID uuid.UUID, delta int, eventKey string) error {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "begin apply-delta tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO credit_deltas (event_key, user_id, delta) VALUES ($1, $2, $3)
		 ON CONFLICT (event_key) DO NOTHING`,
		eventKey, userID, delta)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "record credit delta", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already applied for this event key; nothing further to do.
		return nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credits (user_id, balance) VALUES ($1, GREATEST($2, 0))
		 ON CONFLICT (user_id) DO UPDATE SET balance = GREATEST(credits.balance + $2, 0), updated_at = now()`,
		userID, delta)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "apply credit delta", err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindInternal, "commit apply-delta tx", err)
	}
	return nil
}
