// Package ratelimit tracks the shared hosted-provider quota window.
//
// The window is intentionally coarse and global, not per-user: it
// approximates the hosted free-tier budget shared by the whole deployment.
// State lives behind the domain.RateLimiter port so tests can inject a fake
// clock and multi-instance deployments can swap in the Redis-backed
// implementation without touching call sites.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/adapter/observability"
	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

// WindowLimiter is the in-process sliding-bucket limiter.
type WindowLimiter struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu          sync.Mutex
	limited     bool
	count       int
	windowStart time.Time
	resetAt     *time.Time
}

// Option configures a WindowLimiter.
type Option func(*WindowLimiter)

// WithClock substitutes the time source; tests use this.
func WithClock(now func() time.Time) Option {
	return func(l *WindowLimiter) { l.now = now }
}

// NewWindowLimiter builds a limiter over a fixed window with a request cap.
func NewWindowLimiter(window time.Duration, maxRequests int, opts ...Option) *WindowLimiter {
	l := &WindowLimiter{
		window: window,
		max:    maxRequests,
		now:    time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	l.windowStart = l.now()
	return l
}

// resetIfElapsed clears the window lazily. Callers must hold mu.
func (l *WindowLimiter) resetIfElapsed(now time.Time) {
	if now.Sub(l.windowStart) > l.window {
		l.count = 0
		l.windowStart = now
		l.limited = false
		l.resetAt = nil
		observability.RateLimitedGauge.Set(0)
	}
	if l.limited && l.resetAt != nil && !now.Before(*l.resetAt) {
		l.limited = false
		l.resetAt = nil
		observability.RateLimitedGauge.Set(0)
	}
}

// CheckLimited reports whether hosted calls should be skipped right now.
func (l *WindowLimiter) CheckLimited(_ context.Context) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.resetIfElapsed(now)
	return l.limited || l.count >= l.max
}

// RecordSuccess counts one successful hosted request against the window.
func (l *WindowLimiter) RecordSuccess(_ context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfElapsed(l.now())
	l.count++
}

// RecordRateLimited marks the window limited until resetAt.
func (l *WindowLimiter) RecordRateLimited(_ context.Context, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limited = true
	l.resetAt = &resetAt
	observability.RateLimitedGauge.Set(1)
}

// Status returns a snapshot. It performs the same lazy reset as
// CheckLimited so inspection paths never see a stale limited flag.
func (l *WindowLimiter) Status(_ context.Context) domain.RateLimitStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.resetIfElapsed(now)
	st := domain.RateLimitStatus{
		Limited:      l.limited || l.count >= l.max,
		RequestCount: l.count,
		WindowStart:  l.windowStart,
	}
	if l.resetAt != nil {
		t := *l.resetAt
		st.ResetAt = &t
	}
	return st
}

var _ domain.RateLimiter = (*WindowLimiter)(nil)
