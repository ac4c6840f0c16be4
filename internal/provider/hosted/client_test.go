package hosted

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/config"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

type recordingLimiter struct {
	successes   int
	rateLimited int
	resetAt     time.Time
}

func (l *recordingLimiter) CheckLimited(context.Context) bool { return false }

func (l *recordingLimiter) RecordSuccess(context.Context) { l.successes++ }

func (l *recordingLimiter) RecordRateLimited(_ context.Context, resetAt time.Time) {
	l.rateLimited++
	l.resetAt = resetAt
}
func (l *recordingLimiter) Status(context.Context) domain.RateLimitStatus {
	return domain.RateLimitStatus{}
}

func testDescriptor() domain.ModelDescriptor {
	return domain.ModelDescriptor{
		ID:            "hosted-general",
		Source:        domain.SourceHosted,
		MaxTokens:     250,
		ProviderModel: "acme/test-model",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *recordingLimiter) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	lim := &recordingLimiter{}
	cfg := config.Config{
		HFAPIKey:      "test-key",
		HFBaseURL:     srv.URL,
		HostedTimeout: 5 * time.Second,
	}
	return New(cfg, lim), lim
}

func TestCallSuccessArrayShape(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/acme/test-model", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Inputs     string         `json:"inputs"`
			Parameters map[string]any `json:"parameters"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "System: Be brief\n\nUser: Explain tides", body.Inputs)
		assert.EqualValues(t, 250, body.Parameters["max_new_tokens"])

		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": "Tides follow the moon."}})
	})

	res, err := c.Call(context.Background(), testDescriptor(), "Explain tides", "Be brief")
	require.NoError(t, err)
	assert.Equal(t, "hosted-general", res.ModelID)
	assert.Equal(t, "Tides follow the moon.", res.Text)
	assert.Equal(t, domain.SourceHosted, res.Source)
	assert.Equal(t, domain.EstimateTokens(res.Text), res.TokenCount)
	assert.Equal(t, 1, lim.successes)
}

func TestCallSuccessObjectShape(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"generated_text": "Gravity pulls."})
	})

	res, err := c.Call(context.Background(), testDescriptor(), "Explain gravity", "")
	require.NoError(t, err)
	assert.Equal(t, "Gravity pulls.", res.Text)
	assert.Equal(t, 1, lim.successes)
}

func TestCallNoSystemPromptOmitsTemplate(t *testing.T) {
	t.Parallel()
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Inputs string `json:"inputs"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Explain gravity", body.Inputs)
		_ = json.NewEncoder(w).Encode(map[string]string{"generated_text": "ok"})
	})

	_, err := c.Call(context.Background(), testDescriptor(), "Explain gravity", "")
	require.NoError(t, err)
}

func TestCallNoAPIKey(t *testing.T) {
	t.Parallel()
	lim := &recordingLimiter{}
	c := New(config.Config{HFBaseURL: "http://unused"}, lim)

	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.False(t, Retryable(err))
	assert.Zero(t, lim.successes)
}

func TestCallRateLimited(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	before := time.Now()
	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)

	var rl *RateLimitedError
	require.ErrorAs(t, err, &rl)
	assert.ErrorIs(t, err, domain.ErrUpstreamRateLimit)
	assert.False(t, Retryable(err))

	assert.Equal(t, 1, lim.rateLimited)
	assert.WithinRange(t, lim.resetAt, before.Add(119*time.Second), before.Add(121*time.Second))
	assert.Equal(t, lim.resetAt, rl.ResetAt)
}

func TestCallRateLimitedDefaultCooldown(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	before := time.Now()
	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)
	assert.WithinRange(t, lim.resetAt, before.Add(59*time.Minute), before.Add(61*time.Minute))
}

func TestCallServerError(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.True(t, Retryable(err))
	assert.Zero(t, lim.successes)
}

func TestCallMalformedBody(t *testing.T) {
	t.Parallel()
	c, lim := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected": true}`))
	})

	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, apiErr.Status)
	assert.True(t, Retryable(err))
	assert.Zero(t, lim.successes)
}

func TestCallNetworkError(t *testing.T) {
	t.Parallel()
	lim := &recordingLimiter{}
	cfg := config.Config{
		HFAPIKey:      "test-key",
		HFBaseURL:     "http://127.0.0.1:1", // nothing listens here
		HostedTimeout: time.Second,
	}
	c := New(cfg, lim)

	_, err := c.Call(context.Background(), testDescriptor(), "p", "")
	require.Error(t, err)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, Retryable(err))
}

func TestRetryableTaxonomy(t *testing.T) {
	t.Parallel()
	assert.True(t, Retryable(&APIError{Status: 502}))
	assert.True(t, Retryable(&NetworkError{Err: errors.New("dial tcp: refused")}))
	assert.False(t, Retryable(&RateLimitedError{ResetAt: time.Now()}))
	assert.False(t, Retryable(ErrNoAPIKey))
}
