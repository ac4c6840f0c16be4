package domain

import "math"

// SourceClass identifies where a model response actually came from.
type SourceClass string

const (
	// SourceHosted means a live remote inference call succeeded.
	SourceHosted SourceClass = "hosted"
	// SourceSample means deterministic local text, either selected directly
	// or substituted after a hosted failure.
	SourceSample SourceClass = "sample"
	// SourceLocal is reserved for in-browser/in-process inference variants.
	SourceLocal SourceClass = "local"
)

// Variant selects a local generation strategy.
type Variant string

const (
	VariantStub       Variant = "stub"
	VariantCreative   Variant = "creative"
	VariantAnalytical Variant = "analytical"
)

// ModelDescriptor is an immutable registry entry for a selectable model.
// ProviderModel maps the internal id to the external provider's identifier
// and is never exposed to callers. Fallback names the local variant used
// when a hosted call cannot be served.
type ModelDescriptor struct {
	ID            string      `json:"id"`
	DisplayName   string      `json:"displayName"`
	Source        SourceClass `json:"sourceClass"`
	MaxTokens     int         `json:"maxTokens"`
	ProviderModel string      `json:"-"`
	Fallback      Variant     `json:"-"`
}

// ModelResult is one model's raw output for an attempt. Source reflects the
// actual origin: a hosted model that fell back to local generation reports
// SourceSample while keeping the originally requested ModelID.
type ModelResult struct {
	ModelID    string      `json:"modelId"`
	Text       string      `json:"text"`
	LatencyMs  int64       `json:"latencyMs"`
	TokenCount int         `json:"tokenCountEstimate"`
	Source     SourceClass `json:"sourceClass"`
}

// EstimateTokens approximates token usage as round(len/4). Both the local
// generator and the hosted client use it so their counts stay comparable.
func EstimateTokens(text string) int {
	return int(math.Round(float64(len(text)) / 4.0))
}
