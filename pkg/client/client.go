// Package client is a small Go client for the attempts API. Submission goes
// through a bounded exponential-backoff retry loop; polling is a plain GET
// since callers drive their own poll cadence.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/3CBolt/promptpractice-kiro-sub000/pkg/retryx"
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Code, e.Body)
}

// Client talks to one deployment of the attempts API.
type Client struct {
	baseURL string
	hc      *http.Client
	retry   retryx.Config
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithRetryConfig overrides the submission retry policy.
func WithRetryConfig(cfg retryx.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// New builds a client for the API at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
		retry:   retryx.DefaultConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateAttemptRequest is the submission payload.
type CreateAttemptRequest struct {
	LabID        string   `json:"labId"`
	UserPrompt   string   `json:"userPrompt"`
	SystemPrompt string   `json:"systemPrompt,omitempty"`
	Models       []string `json:"models"`
}

// CreateAttemptResponse acknowledges a created attempt.
type CreateAttemptResponse struct {
	AttemptID string    `json:"attemptId"`
	LabID     string    `json:"labId"`
	CreatedAt time.Time `json:"createdAt"`
}

// shouldRetrySubmit retries transport failures and 5xx responses. Client
// errors (validation, unknown model) are terminal by construction.
func shouldRetrySubmit(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Anything else here is transport-level (DNS, connect, timeout) and
	// worth another attempt.
	return true
}

// CreateAttempt submits a prompt for evaluation, retrying transient
// failures under the client's retry policy.
func (c *Client) CreateAttempt(ctx context.Context, req CreateAttemptRequest) (CreateAttemptResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return CreateAttemptResponse{}, fmt.Errorf("op=client.CreateAttempt: %w", err)
	}
	return retryx.Do(ctx, c.retry, func(ctx context.Context) (CreateAttemptResponse, error) {
		return c.postAttempt(ctx, body)
	}, shouldRetrySubmit)
}

func (c *Client) postAttempt(ctx context.Context, body []byte) (CreateAttemptResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attempts", bytes.NewReader(body))
	if err != nil {
		return CreateAttemptResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return CreateAttemptResponse{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return CreateAttemptResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CreateAttemptResponse{}, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	var out CreateAttemptResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return CreateAttemptResponse{}, fmt.Errorf("op=client.CreateAttempt: decode: %w", err)
	}
	return out, nil
}

// AttemptResult mirrors the poll envelope.
type AttemptResult struct {
	AttemptID string            `json:"attemptId"`
	Status    string            `json:"status"`
	Results   []ModelResultView `json:"results,omitempty"`
	Error     *AttemptError     `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

type ModelResultView struct {
	ModelID    string    `json:"modelId"`
	Response   string    `json:"response"`
	Latency    int64     `json:"latency"`
	TokenCount int       `json:"tokenCount,omitempty"`
	Source     string    `json:"source"`
	Scores     *Scores   `json:"scores,omitempty"`
	Feedback   *Feedback `json:"feedback,omitempty"`
}

type Scores struct {
	Clarity      int `json:"clarity"`
	Completeness int `json:"completeness"`
	Total        int `json:"total"`
}

type Feedback struct {
	Explanation string `json:"explanation"`
	ExampleFix  string `json:"exampleFix,omitempty"`
}

type AttemptError struct {
	Stage     string `json:"stage"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// GetResult fetches the current evaluation state of an attempt.
func (c *Client) GetResult(ctx context.Context, attemptID string) (AttemptResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/attempts/"+attemptID, nil)
	if err != nil {
		return AttemptResult{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return AttemptResult{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return AttemptResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return AttemptResult{}, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	var out AttemptResult
	if err := json.Unmarshal(b, &out); err != nil {
		return AttemptResult{}, fmt.Errorf("op=client.GetResult: decode: %w", err)
	}
	return out, nil
}

// WaitForTerminal polls until the attempt reaches a terminal status or ctx
// expires.
func (c *Client) WaitForTerminal(ctx context.Context, attemptID string, interval time.Duration) (AttemptResult, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		res, err := c.GetResult(ctx, attemptID)
		if err == nil {
			switch res.Status {
			case "success", "partial", "error", "timeout":
				return res, nil
			}
		}
		select {
		case <-ctx.Done():
			return AttemptResult{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
