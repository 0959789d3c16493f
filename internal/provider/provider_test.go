package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransientErrorClassification(t *testing.T) {
	cause := errors.New("rate limited")
	err := NewTransientError(cause)

	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestPermanentErrorClassification(t *testing.T) {
	cause := errors.New("content policy violation")
	err := NewPermanentError(cause)

	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
	assert.ErrorIs(t, err, cause)
}

func TestPlainErrorIsNeither(t *testing.T) {
	err := errors.New("unrelated failure")
	assert.False(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
}
