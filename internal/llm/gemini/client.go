package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Generator using the Gemini API.
type Client struct {
	models   contentGenerator
	model    string
	jsonMode bool
}

// Option configures a Client.
type Option func(*Client)

// WithJSONResponse asks the model for an application/json response.
func WithJSONResponse() Option {
	return func(c *Client) { c.jsonMode = true }
}

// NewClient constructs a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required for Gemini")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newWithModels(client.Models, model, opts...), nil
}

func newWithModels(models contentGenerator, model string, opts ...Option) *Client {
	c := &Client{models: models, model: model}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	}
	if c.jsonMode {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini response missing candidates")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response empty content")
	}

	fields := map[string]any{"model": c.model}
	if resp.UsageMetadata != nil {
		fields["prompt_tokens"] = resp.UsageMetadata.PromptTokenCount
		fields["completion_tokens"] = resp.UsageMetadata.CandidatesTokenCount
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.gemini.response", fields)
	return text, nil
}

var _ llm.Generator = (*Client)(nil)
