// Package domain holds the core entities, status machine and ports of the
// prompt evaluation pipeline.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrUnknownModel      = errors.New("unknown model")
	ErrRateLimited       = errors.New("rate limited")
	ErrUpstreamTimeout   = errors.New("upstream timeout")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrInternal          = errors.New("internal error")
)

// SchemaVersion is stamped on every persisted attempt/evaluation document.
const SchemaVersion = "1.0"

// Attempt is one user submission: prompt plus model selection. Immutable
// once created; the dispatcher and evaluation engine read it, never write.
type Attempt struct {
	ID            string    `json:"attemptId"`
	LabID         string    `json:"labId"`
	UserPrompt    string    `json:"userPrompt"`
	SystemPrompt  string    `json:"systemPrompt,omitempty"`
	Models        []string  `json:"models"`
	CreatedAt     time.Time `json:"timestamp"`
	SchemaVersion string    `json:"schemaVersion"`
	RubricVersion string    `json:"rubricVersion"`
}

// ScoreBreakdown carries the per-criterion sub-scores, each in [0,5].
type ScoreBreakdown struct {
	Clarity      int `json:"clarity"`
	Completeness int `json:"completeness"`
}

// EvaluationResult is the deterministic score for one model response.
// Score is always Clarity + Completeness.
type EvaluationResult struct {
	Score     int            `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Notes     string         `json:"notes"`
}

// ModelEvaluation pairs a model's raw result with its score. Scores is nil
// while evaluation is still pending for that model.
type ModelEvaluation struct {
	ModelResult
	Scores *EvaluationResult `json:"scores,omitempty"`
}

// EvaluationStatus is the lifecycle state of an attempt's evaluation.
type EvaluationStatus string

const (
	EvalQueued  EvaluationStatus = "queued"
	EvalRunning EvaluationStatus = "running"
	EvalSuccess EvaluationStatus = "success"
	EvalPartial EvaluationStatus = "partial"
	EvalError   EvaluationStatus = "error"
	EvalTimeout EvaluationStatus = "timeout"
)

// Terminal reports whether the status permits no further transitions.
// A terminal evaluation is never reopened; retrying means a new attempt.
func (s EvaluationStatus) Terminal() bool {
	switch s {
	case EvalSuccess, EvalPartial, EvalError, EvalTimeout:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is legal:
// queued -> running -> {success, partial, error, timeout}. An error before
// dispatch may also close a queued evaluation directly.
func (s EvaluationStatus) CanTransition(next EvaluationStatus) bool {
	switch s {
	case EvalQueued:
		return next == EvalRunning || next == EvalError
	case EvalRunning:
		return next.Terminal()
	}
	return false
}

// EvaluationError describes a non-model-specific failure surfaced to callers.
type EvaluationError struct {
	Stage     string `json:"stage"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// Evaluation is the scored outcome of an attempt, 1:1 by AttemptID.
// Results may be empty only in the error state.
type Evaluation struct {
	AttemptID     string            `json:"attemptId"`
	Status        EvaluationStatus  `json:"status"`
	Results       []ModelEvaluation `json:"results"`
	Error         *EvaluationError  `json:"error,omitempty"`
	UpdatedAt     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schemaVersion"`
	RubricVersion string            `json:"rubricVersion"`
}

// RateLimitStatus is a snapshot of the shared hosted-quota window.
type RateLimitStatus struct {
	Limited      bool       `json:"isLimited"`
	RequestCount int        `json:"requestCount"`
	WindowStart  time.Time  `json:"windowStart"`
	ResetAt      *time.Time `json:"resetTime,omitempty"`
}

// Repositories (ports)

type AttemptRepository interface {
	Create(ctx context.Context, a Attempt) error
	Get(ctx context.Context, id string) (Attempt, error)
}

type EvaluationRepository interface {
	Upsert(ctx context.Context, e Evaluation) error
	// UpdateStatus mutates only the status/error fields, leaving results
	// accumulated so far in place.
	UpdateStatus(ctx context.Context, attemptID string, status EvaluationStatus, evalErr *EvaluationError) error
	// MergeResult inserts or replaces one model's entry keyed by ModelID
	// (last-write-wins on the fan-in).
	MergeResult(ctx context.Context, attemptID string, r ModelEvaluation) error
	GetByAttemptID(ctx context.Context, attemptID string) (Evaluation, error)
}

// RateLimiter (port)
//
// Modeled as an injectable service rather than package state so tests can
// substitute a fake clock and deployments can swap in a shared-store
// implementation without touching call sites.
type RateLimiter interface {
	// CheckLimited reports whether hosted calls should be skipped. It also
	// performs the lazy window reset.
	CheckLimited(ctx context.Context) bool
	RecordSuccess(ctx context.Context)
	RecordRateLimited(ctx context.Context, resetAt time.Time)
	Status(ctx context.Context) RateLimitStatus
}
