package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3CBolt/promptpractice-kiro-sub000/pkg/retryx"
)

func fastRetry() retryx.Config {
	return retryx.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func validRequest() CreateAttemptRequest {
	return CreateAttemptRequest{
		LabID:      "lab-1",
		UserPrompt: "Explain tides",
		Models:     []string{"sample-stub"},
	}
}

func TestCreateAttemptRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(CreateAttemptResponse{AttemptID: "att-1", LabID: "lab-1", CreatedAt: time.Now()})
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryConfig(fastRetry()))
	resp, err := c.CreateAttempt(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "att-1", resp.AttemptID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCreateAttemptNoRetryOnClientError(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"INVALID_ARGUMENT"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryConfig(fastRetry()))
	_, err := c.CreateAttempt(context.Background(), validRequest())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.EqualValues(t, 1, calls.Load(), "4xx must not be retried")
}

func TestCreateAttemptExhaustsRetries(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetryConfig(fastRetry()))
	_, err := c.CreateAttempt(context.Background(), validRequest())
	require.Error(t, err)
	assert.EqualValues(t, 4, calls.Load(), "initial attempt plus three retries")
}

func TestGetResult(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/attempts/att-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(AttemptResult{AttemptID: "att-1", Status: "success"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.GetResult(context.Background(), "att-1")
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
}

func TestWaitForTerminal(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "running"
		if calls.Add(1) >= 3 {
			status = "partial"
		}
		_ = json.NewEncoder(w).Encode(AttemptResult{AttemptID: "att-1", Status: status})
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := c.WaitForTerminal(ctx, "att-1", 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, "partial", res.Status)
}
