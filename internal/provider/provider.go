// Package provider abstracts the external image-enhancement backend the
// worker calls for each job. Exactly one concrete implementation (genai.go)
// is wired at startup; the interface exists so the pipeline's retry/backoff
// logic never depends on a specific vendor SDK.
package provider

import (
	"context"
	"errors"

	"lusterd/internal/models"
)

// Request carries everything an Enhancer needs to produce one output image.
type Request struct {
	Prompt    string
	Quality   models.QualityParams
	ImageData []byte
	MimeType  string
}

// Result is the enhanced image returned by the provider.
type Result struct {
	ImageData []byte
	MimeType  string
}

// Enhancer performs one enhancement call against an external provider.
type Enhancer interface {
	Enhance(ctx context.Context, req Request) (*Result, error)
}

// TransientError wraps a provider failure the worker should retry (rate
// limits, timeouts, 5xx-class responses).
type TransientError struct {
	err error
}

func NewTransientError(err error) *TransientError { return &TransientError{err: err} }
func (e *TransientError) Error() string           { return "transient provider error: " + e.err.Error() }
func (e *TransientError) Unwrap() error           { return e.err }

// PermanentError wraps a provider failure the worker should not retry
// (content policy rejection, malformed input, invalid prompt).
type PermanentError struct {
	err error
}

func NewPermanentError(err error) *PermanentError { return &PermanentError{err: err} }
func (e *PermanentError) Error() string           { return "permanent provider error: " + e.err.Error() }
func (e *PermanentError) Unwrap() error           { return e.err }

// IsTransient reports whether err should be retried by the worker.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsPermanent reports whether err should fail the job immediately.
func IsPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
