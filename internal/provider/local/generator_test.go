package local_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/local"
)

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()
	gen := local.New()

	for _, v := range []domain.Variant{domain.VariantStub, domain.VariantCreative, domain.VariantAnalytical} {
		a := gen.Generate(v, "What is photosynthesis?", "Answer like a tutor")
		b := gen.Generate(v, "What is photosynthesis?", "Answer like a tutor")
		assert.Equal(t, a.Text, b.Text, v)
		assert.Equal(t, a.LatencyMs, b.LatencyMs, v)
		assert.Equal(t, a.TokenCount, b.TokenCount, v)
	}
}

func TestVariantsDiffer(t *testing.T) {
	t.Parallel()
	gen := local.New()

	stub := gen.Generate(domain.VariantStub, "Explain gravity", "")
	creative := gen.Generate(domain.VariantCreative, "Explain gravity", "")
	analytical := gen.Generate(domain.VariantAnalytical, "Explain gravity", "")

	assert.NotEqual(t, stub.Text, creative.Text)
	assert.NotEqual(t, stub.Text, analytical.Text)
	assert.NotEqual(t, creative.Text, analytical.Text)
}

func TestSystemPromptChangesOutput(t *testing.T) {
	t.Parallel()
	gen := local.New()

	plain := gen.Generate(domain.VariantStub, "Explain gravity", "")
	guided := gen.Generate(domain.VariantStub, "Explain gravity", "Be concise")
	assert.NotEqual(t, plain.Text, guided.Text)
	assert.Contains(t, guided.Text, "Be concise")
}

func TestPromptKindChangesOutput(t *testing.T) {
	t.Parallel()
	gen := local.New()

	question := gen.Generate(domain.VariantStub, "Why is the sky blue?", "")
	instruction := gen.Generate(domain.VariantStub, "Write about the sky", "")
	statement := gen.Generate(domain.VariantStub, "The sky at dusk", "")

	assert.NotEqual(t, question.Text, instruction.Text)
	assert.NotEqual(t, question.Text, statement.Text)
}

func TestLatencyMonotonicInInputLength(t *testing.T) {
	t.Parallel()
	gen := local.New()

	short := gen.Generate(domain.VariantAnalytical, "Explain tides", "")
	long := gen.Generate(domain.VariantAnalytical, "Explain tides and their relation to the moon's orbit in detail", "")
	assert.Greater(t, long.LatencyMs, short.LatencyMs)
}

func TestResultShape(t *testing.T) {
	t.Parallel()
	gen := local.New()

	res := gen.Generate(domain.VariantCreative, "Describe a sunset", "")
	require.NotEmpty(t, res.Text)
	assert.Equal(t, "sample-creative", res.ModelID)
	assert.Equal(t, domain.SourceSample, res.Source)
	assert.Equal(t, domain.EstimateTokens(res.Text), res.TokenCount)
	assert.Positive(t, res.LatencyMs)
}

func TestEmptyPrompt(t *testing.T) {
	t.Parallel()
	gen := local.New()

	res := gen.Generate(domain.VariantStub, "", "")
	assert.NotEmpty(t, res.Text)
	assert.Contains(t, res.Text, "your prompt")
}
