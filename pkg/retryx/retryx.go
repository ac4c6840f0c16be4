// Package retryx wraps exponential backoff with the retry policy used by
// callers of the evaluation API: bounded attempts, no jitter, capped delay.
package retryx

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config is the retry policy. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	// MaxRetries counts retries after the first attempt, so MaxRetries=3
	// allows at most four invocations.
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultConfig retries up to three times with delays of 1s, 2s and 4s.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
	}
}

// RetryableFunc decides whether a failure is worth another attempt.
type RetryableFunc func(error) bool

// Do runs op under cfg's policy, returning its last result. Errors that
// shouldRetry rejects stop the loop immediately. Delays are deterministic:
// jitter is disabled so callers can reason about worst-case wait.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error), shouldRetry RetryableFunc) (T, error) {
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.BaseDelay
	eb.MaxInterval = cfg.MaxDelay
	eb.Multiplier = cfg.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()

	b := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.MaxRetries), ctx)

	return backoff.RetryWithData(func() (T, error) {
		v, err := op(ctx)
		if err != nil && !shouldRetry(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, b)
}

// DefaultShouldRetry retries transport failures and timeouts; anything else
// is treated as permanent. HTTP-aware callers supply their own predicate
// keyed on status codes.
func DefaultShouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
