package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcdef"))
	assert.Equal(t, 25, EstimateTokens(string(make([]byte, 100))))
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()
	for _, s := range []EvaluationStatus{EvalSuccess, EvalPartial, EvalError, EvalTimeout} {
		assert.True(t, s.Terminal(), s)
	}
	assert.False(t, EvalQueued.Terminal())
	assert.False(t, EvalRunning.Terminal())
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	assert.True(t, EvalQueued.CanTransition(EvalRunning))
	assert.True(t, EvalQueued.CanTransition(EvalError))
	assert.False(t, EvalQueued.CanTransition(EvalSuccess))

	for _, next := range []EvaluationStatus{EvalSuccess, EvalPartial, EvalError, EvalTimeout} {
		assert.True(t, EvalRunning.CanTransition(next), next)
	}
	assert.False(t, EvalRunning.CanTransition(EvalQueued))

	assert.False(t, EvalSuccess.CanTransition(EvalRunning))
	assert.False(t, EvalTimeout.CanTransition(EvalPartial))
}
