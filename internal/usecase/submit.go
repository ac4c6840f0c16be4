// Package usecase orchestrates attempt submission, the per-model fan-out
// and result retrieval.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/eval"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/dispatch"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/registry"
)

const (
	maxPromptLen = 2000
	minModels    = 1
	maxModels    = 3
)

// SubmitInput is the validated payload for creating an attempt.
type SubmitInput struct {
	LabID        string
	UserPrompt   string
	SystemPrompt string
	Models       []string
}

// SubmitService creates attempts and drives their evaluation to a terminal
// status in the background.
type SubmitService struct {
	attempts domain.AttemptRepository
	evals    domain.EvaluationRepository
	reg      *registry.Registry
	disp     *dispatch.Dispatcher
	engine   *eval.Engine
	timeout  time.Duration
	now      func() time.Time
}

func NewSubmitService(
	attempts domain.AttemptRepository,
	evals domain.EvaluationRepository,
	reg *registry.Registry,
	disp *dispatch.Dispatcher,
	engine *eval.Engine,
	timeout time.Duration,
) *SubmitService {
	return &SubmitService{
		attempts: attempts,
		evals:    evals,
		reg:      reg,
		disp:     disp,
		engine:   engine,
		timeout:  timeout,
		now:      time.Now,
	}
}

// validate enforces the request contract before anything is persisted or
// dispatched. Failures here are terminal and never retried.
func (s *SubmitService) validate(in SubmitInput) error {
	if in.LabID == "" {
		return fmt.Errorf("%w: labId is required", domain.ErrInvalidArgument)
	}
	if in.UserPrompt == "" {
		return fmt.Errorf("%w: userPrompt is required", domain.ErrInvalidArgument)
	}
	if len(in.UserPrompt) > maxPromptLen {
		return fmt.Errorf("%w: userPrompt exceeds %d characters", domain.ErrInvalidArgument, maxPromptLen)
	}
	if len(in.SystemPrompt) > maxPromptLen {
		return fmt.Errorf("%w: systemPrompt exceeds %d characters", domain.ErrInvalidArgument, maxPromptLen)
	}
	if len(in.Models) < minModels || len(in.Models) > maxModels {
		return fmt.Errorf("%w: models must contain between %d and %d entries", domain.ErrInvalidArgument, minModels, maxModels)
	}
	for _, id := range in.Models {
		if !s.reg.Has(id) {
			return fmt.Errorf("%w: %s", domain.ErrUnknownModel, id)
		}
	}
	return nil
}

// Submit validates, persists the attempt and its queued evaluation, and
// kicks off processing. The returned attempt is immutable; callers poll the
// evaluation for progress.
func (s *SubmitService) Submit(ctx context.Context, in SubmitInput) (domain.Attempt, error) {
	if err := s.validate(in); err != nil {
		return domain.Attempt{}, err
	}

	attempt := domain.Attempt{
		ID:            uuid.NewString(),
		LabID:         in.LabID,
		UserPrompt:    in.UserPrompt,
		SystemPrompt:  in.SystemPrompt,
		Models:        in.Models,
		CreatedAt:     s.now().UTC(),
		SchemaVersion: domain.SchemaVersion,
		RubricVersion: s.engine.Version(),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return domain.Attempt{}, err
	}
	if err := s.evals.Upsert(ctx, domain.Evaluation{
		AttemptID:     attempt.ID,
		Status:        domain.EvalQueued,
		Results:       []domain.ModelEvaluation{},
		UpdatedAt:     attempt.CreatedAt,
		SchemaVersion: domain.SchemaVersion,
		RubricVersion: attempt.RubricVersion,
	}); err != nil {
		return domain.Attempt{}, err
	}

	// Detach from the request context: processing outlives the HTTP call.
	go s.process(context.WithoutCancel(ctx), attempt)
	return attempt, nil
}

// process fans out one dispatch+evaluate task per model and closes the
// evaluation with a terminal status. Late results after the deadline still
// merge via MergeResult; only the status decision has a cutoff.
func (s *SubmitService) process(ctx context.Context, attempt domain.Attempt) {
	log := observability.LoggerFromContext(ctx).With(
		slog.String("attempt_id", attempt.ID),
		slog.String("lab_id", attempt.LabID),
	)

	if err := s.evals.UpdateStatus(ctx, attempt.ID, domain.EvalRunning, nil); err != nil {
		log.Error("failed to mark evaluation running", slog.Any("error", err))
		s.fail(ctx, attempt.ID, "dispatch", "internal", err.Error())
		return
	}
	observability.AttemptsProcessing.Inc()
	defer observability.AttemptsProcessing.Dec()

	done := make(chan string, len(attempt.Models))
	for _, modelID := range attempt.Models {
		go func(modelID string) {
			res, err := s.disp.Dispatch(ctx, modelID, attempt.UserPrompt, attempt.SystemPrompt)
			if err != nil {
				// Validation guarantees registered ids, so this is a
				// registry/config inconsistency, not a user error.
				log.Error("dispatch failed", slog.String("model", modelID), slog.Any("error", err))
				done <- ""
				return
			}
			scores := s.engine.Evaluate(attempt.UserPrompt, res)
			if err := s.evals.MergeResult(ctx, attempt.ID, domain.ModelEvaluation{
				ModelResult: res,
				Scores:      &scores,
			}); err != nil {
				log.Error("failed to merge result", slog.String("model", modelID), slog.Any("error", err))
				done <- ""
				return
			}
			done <- modelID
		}(modelID)
	}

	completed := 0
	deadline := time.NewTimer(s.timeout)
	defer deadline.Stop()
	remaining := len(attempt.Models)
wait:
	for remaining > 0 {
		select {
		case id := <-done:
			remaining--
			if id != "" {
				completed++
			}
		case <-deadline.C:
			break wait
		}
	}

	status := terminalStatus(completed, len(attempt.Models))
	if err := s.evals.UpdateStatus(ctx, attempt.ID, status, nil); err != nil {
		log.Error("failed to close evaluation", slog.Any("error", err))
		return
	}
	observability.AttemptsCompletedTotal.WithLabelValues(string(status)).Inc()
	log.Info("evaluation finished",
		slog.String("status", string(status)),
		slog.Int("completed", completed),
		slog.Int("requested", len(attempt.Models)))
}

// terminalStatus picks the closing status from how many model results
// landed before the deadline.
func terminalStatus(completed, requested int) domain.EvaluationStatus {
	switch {
	case completed == requested:
		return domain.EvalSuccess
	case completed > 0:
		return domain.EvalPartial
	default:
		return domain.EvalTimeout
	}
}

// fail closes the evaluation with an attempt-level error. Used only for
// failures before any dispatch produced a result.
func (s *SubmitService) fail(ctx context.Context, attemptID, stage, code, message string) {
	evalErr := &domain.EvaluationError{
		Stage:     stage,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
	if err := s.evals.UpdateStatus(ctx, attemptID, domain.EvalError, evalErr); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to mark evaluation errored",
			slog.String("attempt_id", attemptID), slog.Any("error", err))
		return
	}
	observability.AttemptsCompletedTotal.WithLabelValues(string(domain.EvalError)).Inc()
}
