package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/eval"
)

// PollResult is the envelope callers poll for attempt progress.
type PollResult struct {
	AttemptID string                  `json:"attemptId"`
	Status    domain.EvaluationStatus `json:"status"`
	Results   []ModelResultView       `json:"results,omitempty"`
	Error     *domain.EvaluationError `json:"error,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// ModelResultView is one model's scored entry in the poll envelope.
type ModelResultView struct {
	ModelID    string             `json:"modelId"`
	Response   string             `json:"response"`
	Latency    int64              `json:"latency"`
	TokenCount int                `json:"tokenCount,omitempty"`
	Source     domain.SourceClass `json:"source"`
	Scores     *ScoresView        `json:"scores,omitempty"`
	Feedback   *FeedbackView      `json:"feedback,omitempty"`
}

type ScoresView struct {
	Clarity      int `json:"clarity"`
	Completeness int `json:"completeness"`
	Total        int `json:"total"`
}

type FeedbackView struct {
	Explanation string `json:"explanation"`
	ExampleFix  string `json:"exampleFix,omitempty"`
}

// ResultService reads attempts and their evaluations for polling clients.
type ResultService struct {
	attempts domain.AttemptRepository
	evals    domain.EvaluationRepository
}

func NewResultService(attempts domain.AttemptRepository, evals domain.EvaluationRepository) *ResultService {
	return &ResultService{attempts: attempts, evals: evals}
}

// GetAttempt returns the immutable attempt record.
func (s *ResultService) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	return s.attempts.Get(ctx, id)
}

// Fetch builds the poll envelope for an attempt. The second return value is
// an ETag derived from status and last update, usable for conditional GETs.
func (s *ResultService) Fetch(ctx context.Context, attemptID string) (PollResult, string, error) {
	attempt, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return PollResult{}, "", err
	}
	ev, err := s.evals.GetByAttemptID(ctx, attemptID)
	if err != nil {
		return PollResult{}, "", err
	}

	out := PollResult{
		AttemptID: attemptID,
		Status:    ev.Status,
		Error:     ev.Error,
		Timestamp: ev.UpdatedAt,
	}
	for _, r := range ev.Results {
		view := ModelResultView{
			ModelID:    r.ModelID,
			Response:   r.Text,
			Latency:    r.LatencyMs,
			TokenCount: r.TokenCount,
			Source:     r.Source,
		}
		if r.Scores != nil {
			view.Scores = &ScoresView{
				Clarity:      r.Scores.Breakdown.Clarity,
				Completeness: r.Scores.Breakdown.Completeness,
				Total:        r.Scores.Score,
			}
			fb := &FeedbackView{Explanation: r.Scores.Notes}
			if r.Scores.Breakdown.Clarity <= 3 && r.Scores.Breakdown.Completeness <= 3 {
				fb.ExampleFix = eval.RewritePrompt(attempt.UserPrompt)
			}
			view.Feedback = fb
		}
		out.Results = append(out.Results, view)
	}

	return out, etag(attemptID, ev), nil
}

// etag fingerprints the mutable parts of an evaluation so pollers can use
// If-None-Match and skip unchanged bodies.
func etag(attemptID string, ev domain.Evaluation) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d",
		attemptID, ev.Status, len(ev.Results), ev.UpdatedAt.UnixNano())))
	return `"` + hex.EncodeToString(h[:8]) + `"`
}
