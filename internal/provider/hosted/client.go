// Package hosted calls the external text-generation endpoint and classifies
// its failures for the dispatcher's fallback handling.
package hosted

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/config"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/pkg/textx"
)

// defaultRateLimitCooldown applies when a 429 carries no retry-after header.
const defaultRateLimitCooldown = time.Hour

// Client issues one outbound inference call per Call invocation. It does
// not retry; transient failures surface to the dispatcher which substitutes
// the local fallback instead.
type Client struct {
	cfg     config.Config
	hc      *http.Client
	limiter domain.RateLimiter
	now     func() time.Time
}

// New constructs a hosted client with an otel-instrumented transport.
func New(cfg config.Config, limiter domain.RateLimiter) *Client {
	transport := otelhttp.NewTransport(http.DefaultTransport,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return fmt.Sprintf("Inference %s %s", r.Method, r.URL.Host)
		}),
	)
	return &Client{
		cfg: cfg,
		hc: &http.Client{
			Timeout:   cfg.HostedTimeout,
			Transport: transport,
		},
		limiter: limiter,
		now:     time.Now,
	}
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

// buildInput concatenates system and user prompts with the fixed template
// the external endpoint expects.
func buildInput(prompt, systemPrompt string) string {
	if systemPrompt == "" {
		return prompt
	}
	return fmt.Sprintf("System: %s\n\nUser: %s", systemPrompt, prompt)
}

// Call performs the outbound request for one hosted model. Side effects on
// the shared limiter: success increments the window counter, 429 marks the
// window limited until the provider's reset time.
func (c *Client) Call(ctx context.Context, desc domain.ModelDescriptor, prompt, systemPrompt string) (domain.ModelResult, error) {
	if c.cfg.HFAPIKey == "" {
		return domain.ModelResult{}, ErrNoAPIKey
	}

	body := map[string]any{
		"inputs": buildInput(prompt, systemPrompt),
		"parameters": map[string]any{
			"max_new_tokens":   desc.MaxTokens,
			"return_full_text": false,
		},
	}
	b, _ := json.Marshal(body)

	url := c.cfg.HFBaseURL + "/models/" + desc.ProviderModel
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return domain.ModelResult{}, &NetworkError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.HFAPIKey)
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.hc.Do(req)
	elapsed := c.now().Sub(start)
	if err != nil {
		observability.ObserveProviderCall("hosted", "network_error", elapsed)
		slog.Warn("hosted call transport failure", slog.String("model", desc.ID), slog.Any("error", err))
		return domain.ModelResult{}, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.ObserveProviderCall("hosted", "network_error", elapsed)
		return domain.ModelResult{}, &NetworkError{Err: err}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		resetAt := c.now().Add(retryAfter(resp.Header))
		c.limiter.RecordRateLimited(ctx, resetAt)
		observability.ObserveProviderCall("hosted", "rate_limited", elapsed)
		slog.Warn("hosted provider rate limited",
			slog.String("model", desc.ID),
			slog.Time("reset_at", resetAt))
		return domain.ModelResult{}, &RateLimitedError{ResetAt: resetAt}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.ObserveProviderCall("hosted", "api_error", elapsed)
		slog.Warn("hosted provider non-2xx",
			slog.String("model", desc.ID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", textx.Snippet(string(bodyBytes), 512)))
		return domain.ModelResult{}, &APIError{Status: resp.StatusCode}
	}

	text, ok := parseGeneration(bodyBytes)
	if !ok {
		observability.ObserveProviderCall("hosted", "malformed", elapsed)
		slog.Warn("hosted provider malformed success body", slog.String("model", desc.ID))
		return domain.ModelResult{}, &APIError{}
	}

	c.limiter.RecordSuccess(ctx)
	observability.ObserveProviderCall("hosted", "success", elapsed)
	return domain.ModelResult{
		ModelID:    desc.ID,
		Text:       text,
		LatencyMs:  elapsed.Milliseconds(),
		TokenCount: domain.EstimateTokens(text),
		Source:     domain.SourceHosted,
	}, nil
}

// parseGeneration normalizes the two success shapes the endpoint produces:
// an array of generations or a single generation object.
func parseGeneration(body []byte) (string, bool) {
	var arr []generation
	if err := json.Unmarshal(body, &arr); err == nil {
		if len(arr) > 0 && arr[0].GeneratedText != "" {
			return arr[0].GeneratedText, true
		}
		return "", false
	}
	var single generation
	if err := json.Unmarshal(body, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText, true
	}
	return "", false
}

// retryAfter reads the provider's cooldown hint in seconds.
func retryAfter(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRateLimitCooldown
}
