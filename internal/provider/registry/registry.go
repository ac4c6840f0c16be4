// Package registry is the static catalog of selectable models.
package registry

import (
	"fmt"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

// Registry is a pure lookup table over immutable model descriptors,
// populated once at process start.
type Registry struct {
	byID  map[string]domain.ModelDescriptor
	order []string
}

// New builds a registry from the given descriptors. Later duplicates of an
// id silently win; descriptors are not validated beyond that.
func New(models ...domain.ModelDescriptor) *Registry {
	r := &Registry{byID: make(map[string]domain.ModelDescriptor, len(models))}
	for _, m := range models {
		if _, ok := r.byID[m.ID]; !ok {
			r.order = append(r.order, m.ID)
		}
		r.byID[m.ID] = m
	}
	return r
}

// Default returns the catalog shipped with the application: three
// deterministic sample variants and three hosted models, each hosted entry
// carrying its registry-internal provider identifier and fallback variant.
func Default() *Registry {
	return New(
		domain.ModelDescriptor{
			ID:          "sample-stub",
			DisplayName: "Sample (Stub)",
			Source:      domain.SourceSample,
			MaxTokens:   512,
			Fallback:    domain.VariantStub,
		},
		domain.ModelDescriptor{
			ID:          "sample-creative",
			DisplayName: "Sample (Creative)",
			Source:      domain.SourceSample,
			MaxTokens:   512,
			Fallback:    domain.VariantCreative,
		},
		domain.ModelDescriptor{
			ID:          "sample-analytical",
			DisplayName: "Sample (Analytical)",
			Source:      domain.SourceSample,
			MaxTokens:   512,
			Fallback:    domain.VariantAnalytical,
		},
		domain.ModelDescriptor{
			ID:            "hosted-general",
			DisplayName:   "Hosted (General)",
			Source:        domain.SourceHosted,
			MaxTokens:     250,
			ProviderModel: "mistralai/Mistral-7B-Instruct-v0.2",
			Fallback:      domain.VariantStub,
		},
		domain.ModelDescriptor{
			ID:            "hosted-creative",
			DisplayName:   "Hosted (Creative)",
			Source:        domain.SourceHosted,
			MaxTokens:     250,
			ProviderModel: "HuggingFaceH4/zephyr-7b-beta",
			Fallback:      domain.VariantCreative,
		},
		domain.ModelDescriptor{
			ID:            "hosted-reasoning",
			DisplayName:   "Hosted (Reasoning)",
			Source:        domain.SourceHosted,
			MaxTokens:     250,
			ProviderModel: "google/flan-t5-large",
			Fallback:      domain.VariantAnalytical,
		},
	)
}

// GetByID resolves a model id, failing with domain.ErrUnknownModel.
func (r *Registry) GetByID(id string) (domain.ModelDescriptor, error) {
	m, ok := r.byID[id]
	if !ok {
		return domain.ModelDescriptor{}, fmt.Errorf("%w: %s", domain.ErrUnknownModel, id)
	}
	return m, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// List returns all descriptors in registration order.
func (r *Registry) List() []domain.ModelDescriptor {
	out := make([]domain.ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ListBySource returns descriptors matching the given source class, in
// registration order.
func (r *Registry) ListBySource(sc domain.SourceClass) []domain.ModelDescriptor {
	var out []domain.ModelDescriptor
	for _, id := range r.order {
		if m := r.byID[id]; m.Source == sc {
			out = append(out, m)
		}
	}
	return out
}
