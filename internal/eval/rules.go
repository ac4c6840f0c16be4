package eval

import "strings"

// Sub-score bounds and the shared starting point for both criteria.
const (
	minSubScore  = 0
	maxSubScore  = 5
	baseSubScore = 3
)

// TextStats are the structural facts the clarity rules key on.
type TextStats struct {
	Length           int
	HasTerminalPunct bool
	MultiStructure   bool
}

// ComputeStats derives structural stats from a response text.
func ComputeStats(text string) TextStats {
	trimmed := strings.TrimSpace(text)
	return TextStats{
		Length:           len(text),
		HasTerminalPunct: strings.ContainsAny(trimmed, ".!?"),
		MultiStructure:   multiStructure(trimmed),
	}
}

// multiStructure reports whether the text has multi-sentence or multi-line
// shape, as opposed to a single run-on fragment.
func multiStructure(text string) bool {
	if strings.Contains(text, "\n") {
		return true
	}
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	return sentences > 1
}

// RelevanceRatio measures how much of the prompt's vocabulary the response
// picks up: the share of prompt content words (length > 3) appearing as a
// substring of any response word. The denominator is never below 1, so an
// all-short-words prompt scores 0 rather than dividing by zero.
func RelevanceRatio(prompt, response string) float64 {
	promptWords := contentWords(prompt)
	respWords := strings.Fields(strings.ToLower(response))

	denom := len(promptWords)
	if denom < 1 {
		denom = 1
	}
	matched := 0
	for _, pw := range promptWords {
		for _, rw := range respWords {
			if strings.Contains(rw, pw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(denom)
}

func contentWords(s string) []string {
	var out []string
	for _, f := range strings.Fields(strings.ToLower(s)) {
		w := strings.Trim(f, ".,!?:;\"'()[]")
		if len(w) > 3 {
			out = append(out, w)
		}
	}
	return out
}

// clarityScore starts satisfactory and moves one band on structural
// evidence. Raising and lowering conditions are mutually exclusive.
func clarityScore(st TextStats) int {
	score := baseSubScore
	switch {
	case st.Length >= 50 && st.Length <= 1000 && st.HasTerminalPunct && st.MultiStructure:
		score = baseSubScore + 1
	case !st.HasTerminalPunct || st.Length < 20:
		score = baseSubScore - 1
	}
	return clamp(score)
}

// completenessScore keys on relevance to the prompt's vocabulary plus
// response length.
func completenessScore(ratio float64, length int) int {
	score := baseSubScore
	switch {
	case ratio > 0.5 && length > 100:
		score = baseSubScore + 1
	case ratio < 0.2 || length < 30:
		score = baseSubScore - 1
	}
	return clamp(score)
}

func clamp(v int) int {
	if v < minSubScore {
		return minSubScore
	}
	if v > maxSubScore {
		return maxSubScore
	}
	return v
}
