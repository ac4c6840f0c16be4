// Package dispatch routes a model invocation to the hosted client or the
// local generator, degrading gracefully instead of failing the attempt.
package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/hosted"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/local"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/provider/registry"
)

// HostedCaller is the outbound inference dependency. Satisfied by
// *hosted.Client; tests substitute fakes.
type HostedCaller interface {
	Call(ctx context.Context, desc domain.ModelDescriptor, prompt, systemPrompt string) (domain.ModelResult, error)
}

// Dispatcher resolves a model id and produces a result for it. Hosted
// failures never propagate: the descriptor's fallback variant is generated
// locally and returned under the originally requested model id, with the
// source class downgraded to sample so callers can tell.
type Dispatcher struct {
	reg     *registry.Registry
	local   *local.Generator
	hosted  HostedCaller
	limiter domain.RateLimiter
}

func New(reg *registry.Registry, gen *local.Generator, hc HostedCaller, limiter domain.RateLimiter) *Dispatcher {
	return &Dispatcher{reg: reg, local: gen, hosted: hc, limiter: limiter}
}

// Dispatch invokes one model. The only error it returns is an unknown
// model id; every provider-side failure is absorbed by the fallback.
func (d *Dispatcher) Dispatch(ctx context.Context, modelID, prompt, systemPrompt string) (domain.ModelResult, error) {
	desc, err := d.reg.GetByID(modelID)
	if err != nil {
		return domain.ModelResult{}, err
	}

	if desc.Source != domain.SourceHosted {
		return d.local.Generate(desc.Fallback, prompt, systemPrompt), nil
	}
	return d.attemptHosted(ctx, desc, prompt, systemPrompt), nil
}

func (d *Dispatcher) attemptHosted(ctx context.Context, desc domain.ModelDescriptor, prompt, systemPrompt string) domain.ModelResult {
	if d.limiter.CheckLimited(ctx) {
		// Known-limited window: skip the network round trip entirely.
		return d.resolveFallback(desc, prompt, systemPrompt, "rate_limited", nil)
	}

	res, err := d.hosted.Call(ctx, desc, prompt, systemPrompt)
	if err == nil {
		return res
	}
	return d.resolveFallback(desc, prompt, systemPrompt, fallbackReason(err), err)
}

// resolveFallback substitutes local generation for a hosted model. The
// requested model id is preserved so the caller's selection stays visible;
// only the source class reveals the substitution.
func (d *Dispatcher) resolveFallback(desc domain.ModelDescriptor, prompt, systemPrompt, reason string, cause error) domain.ModelResult {
	observability.FallbacksTotal.WithLabelValues(reason).Inc()
	if cause != nil {
		slog.Warn("hosted model fell back to local generation",
			slog.String("model", desc.ID),
			slog.String("reason", reason),
			slog.Any("error", cause))
	} else {
		slog.Info("hosted model served locally",
			slog.String("model", desc.ID),
			slog.String("reason", reason))
	}
	res := d.local.Generate(desc.Fallback, prompt, systemPrompt)
	res.ModelID = desc.ID
	return res
}

func fallbackReason(err error) string {
	var rl *hosted.RateLimitedError
	var api *hosted.APIError
	var net *hosted.NetworkError
	switch {
	case errors.Is(err, hosted.ErrNoAPIKey):
		return "no_api_key"
	case errors.As(err, &rl):
		return "rate_limited"
	case errors.As(err, &api):
		return "api_error"
	case errors.As(err, &net):
		return "network_error"
	}
	return "unknown"
}
