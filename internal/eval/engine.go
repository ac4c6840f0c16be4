// Package eval scores model responses against the user prompt. Scoring is a
// pure function of (prompt, text); the rubric document contributes wording
// for the notes, not numbers.
package eval

import (
	"fmt"
	"strings"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

// Engine evaluates responses under one rubric version. Safe for concurrent
// use; it holds no mutable state.
type Engine struct {
	rubric *Rubric
}

// NewEngine builds an engine. rubric may be nil, in which case notes use the
// built-in heuristic wording and Version reports HeuristicVersion.
func NewEngine(rubric *Rubric) *Engine {
	return &Engine{rubric: rubric}
}

// Version is the rubric version stamped on attempts scored by this engine.
func (e *Engine) Version() string {
	if e.rubric == nil {
		return HeuristicVersion
	}
	return e.rubric.Version
}

// Evaluate scores one model response. Deterministic: the same
// (userPrompt, text) pair yields an identical result every time.
func (e *Engine) Evaluate(userPrompt string, res domain.ModelResult) domain.EvaluationResult {
	st := ComputeStats(res.Text)
	ratio := RelevanceRatio(userPrompt, res.Text)

	br := domain.ScoreBreakdown{
		Clarity:      clarityScore(st),
		Completeness: completenessScore(ratio, st.Length),
	}
	out := domain.EvaluationResult{
		Score:     br.Clarity + br.Completeness,
		Breakdown: br,
		Notes:     e.notes(userPrompt, br),
	}
	observability.ObserveScore(out.Score)
	return out
}

// notes assembles per-criterion feedback and names the weakest criterion
// when neither reaches a good band.
func (e *Engine) notes(userPrompt string, br domain.ScoreBreakdown) string {
	var parts []string
	parts = append(parts, e.criterionNote("clarity", br.Clarity, userPrompt))
	parts = append(parts, e.criterionNote("completeness", br.Completeness, userPrompt))

	if br.Clarity <= 3 && br.Completeness <= 3 {
		weakest := "completeness"
		if br.Clarity <= br.Completeness {
			weakest = "clarity"
		}
		parts = append(parts, fmt.Sprintf("Focus first on %s, the weakest criterion here.", weakest))
	}
	return strings.Join(parts, " ")
}

func (e *Engine) criterionNote(criterion string, score int, userPrompt string) string {
	var msg string
	switch {
	case score >= 4:
		msg = praiseNote(criterion)
	case score == 3:
		msg = neutralNote(criterion)
	default:
		msg = correctiveNote(criterion, userPrompt)
	}
	if v := e.rubric.Vocabulary(criterion, score); v != "" {
		msg = fmt.Sprintf("%s Rubric: %s", msg, v)
	}
	return msg
}

func praiseNote(criterion string) string {
	if criterion == "clarity" {
		return "Clarity is strong: the response is well structured with complete sentences. To refine further, try asking for a specific format such as a numbered list."
	}
	return "Completeness is strong: the response engages directly with the prompt's subject. To refine further, ask for a concrete example or counterpoint."
}

func neutralNote(criterion string) string {
	if criterion == "clarity" {
		return "Clarity is adequate. Consider asking for shorter sentences, requesting an explicit structure, or specifying the intended audience."
	}
	return "Completeness is adequate. Consider restating the key terms you care about, asking the model to address each one, or setting a minimum level of detail."
}

func correctiveNote(criterion, userPrompt string) string {
	example := RewritePrompt(userPrompt)
	if criterion == "clarity" {
		return fmt.Sprintf("Clarity needs work: the response reads as fragmented or too short to parse. A more directive prompt helps, for example: %q", example)
	}
	return fmt.Sprintf("Completeness needs work: the response barely touches the prompt's subject. Anchor the model with key terms, for example: %q", example)
}

// RewritePrompt produces the example-fix prompt surfaced in feedback for
// low-scoring results. Deterministic and purely textual.
func RewritePrompt(userPrompt string) string {
	trimmed := strings.TrimSpace(userPrompt)
	trimmed = strings.TrimRight(trimmed, ".!?")
	if trimmed == "" {
		trimmed = "your topic"
	}
	return fmt.Sprintf("Explain %s in 3-5 complete sentences, covering what it is, how it works, and one concrete example.", trimmed)
}
