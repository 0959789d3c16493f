package provider

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransientGenAIError(t *testing.T) {
	transient := []string{
		"rate limit exceeded",
		"RESOURCE_EXHAUSTED: quota",
		"context deadline exceeded",
		"service unavailable",
		"internal error occurred",
		"request timeout",
	}
	for _, msg := range transient {
		assert.True(t, isTransientGenAIError(errors.New(msg)), "expected transient for %q", msg)
	}

	permanent := []string{
		"invalid argument: prompt too long",
		"content policy violation",
	}
	for _, msg := range permanent {
		assert.False(t, isTransientGenAIError(errors.New(msg)), "expected permanent for %q", msg)
	}
}

func TestBuildPromptIncludesQuality(t *testing.T) {
	req := Request{
		Prompt: "brighten the photo",
	}
	req.Quality.Resolution = "2048x2048"
	req.Quality.Steps = 40

	prompt := buildPrompt(req)
	assert.Contains(t, prompt, "brighten the photo")
	assert.Contains(t, prompt, "2048x2048")
	assert.Contains(t, prompt, "40")
}
