package models

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the four-state lifecycle enum for a Job.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobSucceeded  JobStatus = "succeeded"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status never transitions further.
func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

// Job is a unit of enhancement work bound to one asset and one prompt.
type Job struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	AssetID        uuid.UUID  `db:"asset_id" json:"asset_id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Prompt         string     `db:"prompt" json:"prompt"`
	Tier           Tier       `db:"tier" json:"tier"`
	Status         JobStatus  `db:"status" json:"status"`
	CreditsUsed    int        `db:"credits_used" json:"credits_used"`
	OutputKey      *string    `db:"output_key" json:"output_key,omitempty"`
	Error          *string    `db:"error_message" json:"error,omitempty"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	LeaseExpiresAt *time.Time `db:"lease_expires_at" json:"-"`
	RetryCount     int        `db:"retry_count" json:"retry_count"`
	MaxRetries     int        `db:"max_retries" json:"max_retries"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// JobEvent is an append-only audit record for a job's lifecycle.
type JobEvent struct {
	ID        uuid.UUID `db:"id" json:"id"`
	JobID     uuid.UUID `db:"job_id" json:"job_id"`
	Type      string    `db:"event_type" json:"type"`
	Details   []byte    `db:"details" json:"details,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Event type constants used across the job lifecycle.
const (
	EventCreated            = "created"
	EventStarted            = "started"
	EventCompleted          = "completed"
	EventFailed             = "failed"
	EventCreditsRefunded    = "credits_refunded"
	EventMaxRetriesExceeded = "max_retries_exceeded"
)
