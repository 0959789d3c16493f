package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash-image"

// GenAIEnhancer calls Google's genai API to perform the enhancement,
// sending the source image plus the prompt as multimodal content and
// reading the generated image back out of the response parts.
type GenAIEnhancer struct {
	client *genai.Client
	model  string
}

// NewGenAIEnhancer builds an Enhancer backed by the Gemini image model.
func NewGenAIEnhancer(ctx context.Context, apiKey string) (*GenAIEnhancer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("provider: create genai client: %w", err)
	}
	return &GenAIEnhancer{client: client, model: defaultModel}, nil
}

// Enhance sends the source image and prompt to the model and returns the
// first inline image part found in the response.
func (g *GenAIEnhancer) Enhance(ctx context.Context, req Request) (*Result, error) {
	promptText := buildPrompt(req)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(promptText),
			genai.NewPartFromBytes(req.ImageData, req.MimeType),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		if isTransientGenAIError(err) {
			return nil, NewTransientError(err)
		}
		return nil, NewPermanentError(err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/jpeg"
				}
				return &Result{ImageData: part.InlineData.Data, MimeType: mime}, nil
			}
		}
	}

	return nil, NewPermanentError(fmt.Errorf("provider: no image returned for prompt %q", req.Prompt))
}

func buildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString(req.Prompt)
	sb.WriteString(fmt.Sprintf("\n\nTarget resolution: %s. Quality steps: %d.",
		req.Quality.Resolution, req.Quality.Steps))
	return sb.String()
}

// isTransientGenAIError classifies rate-limit/server-side failures as
// retryable; content-policy and invalid-argument failures are not.
func isTransientGenAIError(err error) bool {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "internal error"),
		strings.Contains(msg, "timeout"):
		return true
	default:
		return false
	}
}
