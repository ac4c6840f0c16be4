// Package local generates deterministic, prompt-derived responses. It
// serves the sample models directly and doubles as the fallback body for
// failed hosted calls.
package local

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

// Generator synthesizes responses as a pure function of
// (variant, prompt, systemPrompt): identical inputs always yield identical
// text, latency and token estimate.
type Generator struct{}

func New() *Generator { return &Generator{} }

type promptKind int

const (
	kindStatement promptKind = iota
	kindQuestion
	kindInstruction
)

var questionWords = map[string]bool{
	"what": true, "why": true, "how": true, "when": true,
	"where": true, "who": true, "which": true, "can": true, "does": true,
}

var instructionVerbs = map[string]bool{
	"write": true, "create": true, "list": true, "summarize": true,
	"describe": true, "explain": true, "generate": true, "compose": true,
	"draft": true, "compare": true, "translate": true, "outline": true,
}

func classify(prompt string) promptKind {
	trimmed := strings.TrimSpace(prompt)
	if strings.HasSuffix(trimmed, "?") {
		return kindQuestion
	}
	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) == 0 {
		return kindStatement
	}
	first := strings.Trim(fields[0], ".,!?:;")
	switch {
	case questionWords[first]:
		return kindQuestion
	case instructionVerbs[first]:
		return kindInstruction
	}
	return kindStatement
}

// topic extracts a short subject phrase from the prompt for echoing back.
func topic(prompt string) string {
	fields := strings.Fields(strings.TrimSpace(prompt))
	// Drop a leading question word or instruction verb so the topic reads
	// as the subject, not the request.
	if len(fields) > 1 {
		first := strings.Trim(strings.ToLower(fields[0]), ".,!?:;")
		if questionWords[first] || instructionVerbs[first] {
			fields = fields[1:]
		}
	}
	if len(fields) > 6 {
		fields = fields[:6]
	}
	t := strings.Join(fields, " ")
	t = strings.TrimRight(t, ".,!?:;")
	if t == "" {
		t = "your prompt"
	}
	return t
}

// digest gives a small stable number derived from all inputs, used to pick
// among canned phrasings without any randomness.
func digest(parts ...string) uint32 {
	h := sha1.Sum([]byte(strings.Join(parts, "|")))
	return binary.BigEndian.Uint32(h[:4])
}

// Generate synthesizes a response for the given variant. The returned
// ModelID is the variant's sample model id; the dispatcher overwrites it
// when substituting for a failed hosted model.
func (g *Generator) Generate(variant domain.Variant, prompt, systemPrompt string) domain.ModelResult {
	text := g.compose(variant, prompt, systemPrompt)
	return domain.ModelResult{
		ModelID:    "sample-" + string(variant),
		Text:       text,
		LatencyMs:  synthLatency(variant, len(prompt)+len(systemPrompt)),
		TokenCount: domain.EstimateTokens(text),
		Source:     domain.SourceSample,
	}
}

func (g *Generator) compose(variant domain.Variant, prompt, systemPrompt string) string {
	kind := classify(prompt)
	subj := topic(prompt)
	d := digest(string(variant), prompt, systemPrompt)

	var b strings.Builder
	if systemPrompt != "" {
		// Acknowledging the system prompt guarantees the output differs
		// from the no-system-prompt rendition of the same user prompt.
		fmt.Fprintf(&b, "Guided by the instruction %q, here is a response.\n\n", firstWords(systemPrompt, 8))
	}

	switch variant {
	case domain.VariantCreative:
		openers := []string{"Picture this:", "Imagine for a moment:", "Here is one way to see it:"}
		fmt.Fprintf(&b, "%s %s is richer than it first appears. ", openers[d%3], capitalize(subj))
		if kind == kindQuestion {
			fmt.Fprintf(&b, "The question invites more than a factual answer; it opens a small door. ")
		}
		fmt.Fprintf(&b, "Think of %s as a story with a beginning, a tension, and a resolution. ", subj)
		fmt.Fprintf(&b, "The beginning sets the scene, the tension is what makes %s matter, and the resolution is what you take away from it.", subj)
	case domain.VariantAnalytical:
		fmt.Fprintf(&b, "Breaking down %s into its parts:\n", subj)
		fmt.Fprintf(&b, "1. Definition: %s, stated plainly, is the subject under discussion.\n", capitalize(subj))
		fmt.Fprintf(&b, "2. Mechanism: the key factors behind %s interact in a predictable order.\n", subj)
		fmt.Fprintf(&b, "3. Implication: once the mechanism is clear, the consequences of %s follow directly.\n", subj)
		if kind == kindInstruction {
			fmt.Fprintf(&b, "Each step above addresses one part of the requested task.")
		} else {
			fmt.Fprintf(&b, "Taken together these points give a structured view of the topic.")
		}
	default: // stub
		switch kind {
		case kindQuestion:
			fmt.Fprintf(&b, "Good question about %s. ", subj)
			fmt.Fprintf(&b, "In short, %s comes down to a few core ideas that build on each other. ", subj)
			fmt.Fprintf(&b, "Start with the basics, then layer in the details as they become relevant.")
		case kindInstruction:
			fmt.Fprintf(&b, "Here is a response covering %s. ", subj)
			fmt.Fprintf(&b, "The main points are laid out in order, starting with what matters most. ")
			fmt.Fprintf(&b, "Each point about %s can be expanded further if you narrow the request.", subj)
		default:
			fmt.Fprintf(&b, "Regarding %s: there are several angles worth considering. ", subj)
			fmt.Fprintf(&b, "A useful first step is to state what you already know about %s and what is missing.", subj)
		}
	}
	return b.String()
}

// synthLatency scales with input length so longer prompts simulate slower
// responses, supporting loading-state behavior upstream. Strictly
// monotone in inputLen for a fixed variant.
func synthLatency(variant domain.Variant, inputLen int) int64 {
	base := int64(120)
	switch variant {
	case domain.VariantCreative:
		base = 180
	case domain.VariantAnalytical:
		base = 220
	}
	return base + int64(inputLen)*2
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
