package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	t.Parallel()
	st := ComputeStats("First sentence. Second sentence.")
	assert.True(t, st.HasTerminalPunct)
	assert.True(t, st.MultiStructure)

	st = ComputeStats("no punctuation here")
	assert.False(t, st.HasTerminalPunct)
	assert.False(t, st.MultiStructure)

	st = ComputeStats("line one\nline two")
	assert.True(t, st.MultiStructure)
}

func TestRelevanceRatioFull(t *testing.T) {
	t.Parallel()
	ratio := RelevanceRatio("explain gravity waves", "Gravity waves are explained by relativity")
	assert.InDelta(t, 1.0, ratio, 0.001)
}

func TestRelevanceRatioZero(t *testing.T) {
	t.Parallel()
	assert.Zero(t, RelevanceRatio("explain quantum physics", "unrelated text about cooking"))
}

func TestRelevanceRatioShortWordsIgnored(t *testing.T) {
	t.Parallel()
	// All prompt words are length <= 3; denominator floors at 1.
	assert.Zero(t, RelevanceRatio("is it ok", "yes it is ok"))
}

func TestRelevanceRatioSubstringMatch(t *testing.T) {
	t.Parallel()
	// "work" matches inside "working"; substring matching is intentional.
	ratio := RelevanceRatio("will it work", "the working parts")
	assert.InDelta(t, 0.5, ratio, 0.001)
}

func TestClarityScoreBands(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, clarityScore(TextStats{Length: 120, HasTerminalPunct: true, MultiStructure: true}))
	assert.Equal(t, 3, clarityScore(TextStats{Length: 40, HasTerminalPunct: true, MultiStructure: false}))
	assert.Equal(t, 2, clarityScore(TextStats{Length: 10, HasTerminalPunct: true}))
	assert.Equal(t, 2, clarityScore(TextStats{Length: 200, HasTerminalPunct: false, MultiStructure: true}))
}

func TestCompletenessScoreBands(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 4, completenessScore(0.8, 150))
	assert.Equal(t, 3, completenessScore(0.4, 150))
	assert.Equal(t, 3, completenessScore(0.8, 80))
	assert.Equal(t, 2, completenessScore(0.1, 150))
	assert.Equal(t, 2, completenessScore(0.8, 20))
}
