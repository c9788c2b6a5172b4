package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// ContentGenerator produces text for a single-turn prompt with the named model.
type ContentGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

// GenAIGenerator calls the Gemini API through the genai SDK.
type GenAIGenerator struct {
	client *genai.Client
}

// NewGenAIGenerator creates an SDK client for the Gemini API backend.
func NewGenAIGenerator(ctx context.Context, apiKey string) (*GenAIGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("ai: create genai client: %w", err)
	}
	return &GenAIGenerator{client: client}, nil
}

// GenerateText implements ContentGenerator.
func (g *GenAIGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return firstText(resp)
}

// firstText returns the first non-thought text part of the first candidate.
func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates")
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", fmt.Errorf("candidate has no content")
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		return part.Text, nil
	}
	return "", errEmptyText
}
