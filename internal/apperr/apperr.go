// Package apperr defines the error taxonomy shared by the intake API,
// worker, and webhook sink. Kinds map to transport status codes at the
// edges; internal callers should compare against the sentinel Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a coarse error classification, not a concrete error type.
type Kind string

const (
	KindInvalidArgument    Kind = "invalid_argument"
	KindUnauthenticated    Kind = "unauthenticated"
	KindNotFound           Kind = "not_found"
	KindPaymentRequired    Kind = "payment_required"
	KindFailedPrecondition Kind = "failed_precondition"
	KindTransientProvider  Kind = "transient_provider"
	KindPermanentProvider  Kind = "permanent_provider"
	KindInternal           Kind = "internal"
)

// Error wraps an underlying cause with a Kind for classification.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.err }

// New builds an Error of the given kind with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind wrapping an existing error.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, err: err}
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the status code the intake API should return.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusUnprocessableEntity
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindPaymentRequired:
		return http.StatusPaymentRequired
	case KindFailedPrecondition:
		return http.StatusBadRequest
	case KindTransientProvider, KindPermanentProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
