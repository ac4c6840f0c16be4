package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func testAttempt(id string) domain.Attempt {
	return domain.Attempt{
		ID:            id,
		LabID:         "lab-1",
		UserPrompt:    "Explain tides",
		Models:        []string{"sample-stub"},
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SchemaVersion: domain.SchemaVersion,
		RubricVersion: "2025-01",
	}
}

func queuedEvaluation(attemptID string) domain.Evaluation {
	return domain.Evaluation{
		AttemptID:     attemptID,
		Status:        domain.EvalQueued,
		Results:       []domain.ModelEvaluation{},
		UpdatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SchemaVersion: domain.SchemaVersion,
		RubricVersion: "2025-01",
	}
}

func TestAttemptRoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	a := testAttempt("att-1")
	require.NoError(t, s.Create(ctx, a))

	got, err := s.Get(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestAttemptCreateConflict(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testAttempt("att-1")))
	err := s.Create(ctx, testAttempt("att-1"))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetMissingAttempt(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentsArePrettyPrinted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, testAttempt("att-1")))

	b, err := os.ReadFile(filepath.Join(dir, "attempts", "att-1.json"))
	require.NoError(t, err)
	text := string(b)
	assert.True(t, strings.HasPrefix(text, "{\n  \""), "expected 2-space indented JSON, got: %s", text)
	assert.Contains(t, text, `"attemptId": "att-1"`)
	assert.Contains(t, text, `"schemaVersion": "1.0"`)
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, queuedEvaluation("att-1")))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalRunning, nil))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalSuccess, nil))

	got, err := s.GetByAttemptID(ctx, "att-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EvalSuccess, got.Status)
}

func TestStatusTransitionGuard(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, queuedEvaluation("att-1")))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalRunning, nil))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalTimeout, nil))

	// Terminal states accept no further transitions.
	err := s.UpdateStatus(ctx, "att-1", domain.EvalSuccess, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestUpdateStatusPreservesResults(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, queuedEvaluation("att-1")))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalRunning, nil))
	require.NoError(t, s.MergeResult(ctx, "att-1", domain.ModelEvaluation{
		ModelResult: domain.ModelResult{ModelID: "sample-stub", Text: "a"},
	}))
	require.NoError(t, s.UpdateStatus(ctx, "att-1", domain.EvalPartial, nil))

	got, err := s.GetByAttemptID(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, domain.EvalPartial, got.Status)
}

func TestMergeResultReplacesByModelID(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, queuedEvaluation("att-1")))
	require.NoError(t, s.MergeResult(ctx, "att-1", domain.ModelEvaluation{
		ModelResult: domain.ModelResult{ModelID: "hosted-general", Text: "first"},
	}))
	require.NoError(t, s.MergeResult(ctx, "att-1", domain.ModelEvaluation{
		ModelResult: domain.ModelResult{ModelID: "sample-stub", Text: "other"},
	}))
	require.NoError(t, s.MergeResult(ctx, "att-1", domain.ModelEvaluation{
		ModelResult: domain.ModelResult{ModelID: "hosted-general", Text: "second"},
	}))

	got, err := s.GetByAttemptID(ctx, "att-1")
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	for _, r := range got.Results {
		if r.ModelID == "hosted-general" {
			assert.Equal(t, "second", r.Text)
		}
	}
}
