package hosted

import (
	"errors"
	"fmt"
	"time"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

// Failure taxonomy for outbound inference calls. Each type unwraps to a
// domain sentinel so HTTP error mapping and tests can use errors.Is.

// ErrNoAPIKey means the inference credential is absent. Terminal: from this
// subsystem's perspective it is equivalent to permanent rate limiting.
var ErrNoAPIKey = fmt.Errorf("%w: inference api key missing", domain.ErrInvalidArgument)

// RateLimitedError is an HTTP 429 from the provider. Retryable only after
// ResetAt; the shared limiter is updated before this error is returned.
type RateLimitedError struct {
	ResetAt time.Time
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("provider rate limited until %s", e.ResetAt.UTC().Format(time.RFC3339))
}

func (e *RateLimitedError) Unwrap() error { return domain.ErrUpstreamRateLimit }

// APIError is a 5xx or a malformed success body. Retryable.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "provider returned malformed response"
	}
	return fmt.Sprintf("provider status %d", e.Status)
}

func (e *APIError) Unwrap() error { return domain.ErrInternal }

// NetworkError is a transport-level failure (DNS, connect, timeout). Retryable.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("provider network failure: %v", e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable classifies a provider failure for retry decisions. Rate limits
// are excluded: they are terminal until their reset time.
func Retryable(err error) bool {
	var apiErr *APIError
	var netErr *NetworkError
	switch {
	case errors.As(err, &netErr):
		return true
	case errors.As(err, &apiErr):
		return true
	}
	return false
}
