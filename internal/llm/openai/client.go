package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"atsbeaters-backend/internal/llm"
	"atsbeaters-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultTemperature = 0.2
	maxResponseBytes   = 4 << 20
)

// Client implements llm.Generator on the Chat Completions endpoint.
type Client struct {
	apiKey      string
	model       string
	baseURL     string
	jsonMode    bool
	temperature float32
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithJSONResponse asks the model for a single JSON object.
func WithJSONResponse() Option {
	return func(c *Client) { c.jsonMode = true }
}

// WithHTTPTimeout overrides the transport timeout.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithBaseURL points the client at a compatible gateway.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// APIError is a non-2xx answer from the provider.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai http status %d: %s (%s)", e.StatusCode, e.Message, e.Type)
	}
	return fmt.Sprintf("openai http status %d: %s", e.StatusCode, e.Message)
}

// NewClient validates credentials and returns a client for model.
func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("model is required for OpenAI")
	}
	c := &Client{
		apiKey:      apiKey,
		model:       strings.TrimSpace(model),
		baseURL:     defaultBaseURL,
		temperature: defaultTemperature,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string     `json:"model"`
	Messages       []message  `json:"messages"`
	Temperature    *float32   `json:"temperature,omitempty"`
	ResponseFormat *outFormat `json:"response_format,omitempty"`
}

type outFormat struct {
	Type string `json:"type"`
}

type completionResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *Client) buildRequest(prompt string) completionRequest {
	body := completionRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: prompt}},
	}
	if c.jsonMode {
		body.ResponseFormat = &outFormat{Type: "json_object"}
	}
	// gpt-5 models reject any temperature other than the default.
	if !isGPT5(c.model) {
		t := c.temperature
		body.Temperature = &t
	}
	return body
}

// Generate sends prompt as a single user message and returns the trimmed reply.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(c.buildRequest(prompt))
	if err != nil {
		return "", fmt.Errorf("encode openai request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return "", fmt.Errorf("%w: openai: %v", llm.ErrTimeout, err)
		}
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}
	return c.decode(resp.StatusCode, raw, time.Since(started))
}

func (c *Client) decode(status int, raw []byte, took time.Duration) (string, error) {
	var parsed completionResponse
	jsonErr := json.Unmarshal(raw, &parsed)

	if status >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: status, Message: strings.TrimSpace(string(raw))}
		if jsonErr == nil && parsed.Error != nil {
			apiErr.Message, apiErr.Type = parsed.Error.Message, parsed.Error.Type
		}
		return "", apiErr
	}
	if jsonErr != nil {
		return "", fmt.Errorf("openai response parse: %w", jsonErr)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai response missing choices")
	}

	choice := parsed.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("openai response empty content (finish_reason=%s)", choice.FinishReason)
	}

	fields := map[string]any{
		"model":         c.model,
		"latency_ms":    took.Milliseconds(),
		"finish_reason": choice.FinishReason,
	}
	if u := parsed.Usage; u != nil {
		fields["prompt_tokens"] = u.PromptTokens
		fields["completion_tokens"] = u.CompletionTokens
		fields["total_tokens"] = u.TotalTokens
	}
	telemetry.Info("llm.openai.response", fields)
	return content, nil
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var _ llm.Generator = (*Client)(nil)
