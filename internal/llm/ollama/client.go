package ollama

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

	"resumegen-backend/internal/llm"
	"resumegen-backend/internal/shared/resilience"
)

const (
	// DefaultURL is the local inference endpoint Ollama listens on.
	DefaultURL = "http://localhost:11434"

	// DefaultModel is the model used for resume optimization.
	DefaultModel = "mistral"

	availabilityTimeout = 5 * time.Second
)

// Client calls a local Ollama instance for resume optimization.
type Client struct {
	baseURL  string
	model    string
	http     *http.Client
	executor *resilience.Executor
}

// New constructs a Client. Empty baseURL and model fall back to defaults.
func New(baseURL, model string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		http:     &http.Client{Timeout: timeout},
		executor: resilience.NewExecutor(resilience.DefaultConfig()),
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Optimize rewrites the resume via /api/generate. Calls go through the
// circuit breaker and retry executor; callers fall back to rule-based
// optimization on ErrUnavailable.
func (c *Client) Optimize(ctx context.Context, input llm.OptimizeInput) (llm.OptimizeResult, error) {
	prompt := llm.BuildOptimizationPrompt(input.ResumeText, input.JobDescription, input.Tone)

	payload := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": 0.7,
			"top_p":       0.9,
		},
	}

	var out generateResponse
	err := c.executor.Execute(ctx, "ollama.generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", payload, &out)
	}, classifyError)
	if err != nil {
		return llm.OptimizeResult{}, mapError(err)
	}

	text := strings.TrimSpace(out.Response)
	if text == "" {
		return llm.OptimizeResult{}, fmt.Errorf("ollama generate: %w", llm.ErrUnavailable)
	}

	return llm.OptimizeResult{
		Text:   text,
		Model:  c.model,
		Method: "ai_optimization",
	}, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels probes /api/tags and returns the locally available model names.
// Used by the readiness endpoint and as the availability check.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama tags: %w", llm.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama tags status %d: %w", resp.StatusCode, llm.ErrUnavailable)
	}

	var out tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("ollama tags decode: %w", err)
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Available reports whether the Ollama service answers its tags probe.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &HTTPStatusError{
			Operation:  path,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// HTTPStatusError carries a non-200 answer from Ollama.
type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	// Transport failures (connection refused, resets) are retryable.
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func isRetryableHTTPStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("ollama generate: %w", llm.ErrTimeout)
	case errors.Is(err, context.Canceled):
		return err
	case resilience.IsCircuitOpen(err):
		return fmt.Errorf("ollama generate: %w", llm.ErrUnavailable)
	default:
		return fmt.Errorf("ollama generate: %v: %w", err, llm.ErrUnavailable)
	}
}

var _ llm.Client = (*Client)(nil)
