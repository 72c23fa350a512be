package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const annotatorInstruction = "You explain existing code structure. " +
	"You are not allowed to infer behavior, invent relationships, or guess intent.\n\n"

const (
	annotateMaxRetries = 3
	annotateRetryDelay = 6 * time.Second
)

// GeminiAnnotator implements Annotator using Gemini text generation.
type GeminiAnnotator struct {
	client *genai.Client
	model  string
}

func NewGeminiAnnotator(ctx context.Context, apiKey string, modelName string) (*GeminiAnnotator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiAnnotator{client: client, model: modelName}, nil
}

func (g *GeminiAnnotator) Annotate(ctx context.Context, id string, snippet string) (string, error) {
	contents := genai.Text(annotatorInstruction + snippet)

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= annotateMaxRetries; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err == nil {
			break
		}
		if !isRateLimitError(err) || attempt == annotateMaxRetries {
			return "", fmt.Errorf("annotating %s: %w", id, err)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(annotateRetryDelay):
		}
	}

	return strings.TrimSpace(resp.Text()), nil
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "429") || strings.Contains(s, "RESOURCE_EXHAUSTED") || strings.Contains(s, "quota")
}
