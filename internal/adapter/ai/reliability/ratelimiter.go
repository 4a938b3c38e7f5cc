package reliability

import (
	"context"

	"golang.org/x/time/rate"
)

const (
	defaultRequestsPerSecond = 10.0
	defaultBurst             = 5
)

// RateLimiter throttles outbound provider calls to a steady rate,
// replacing the ad hoc global limiter the teacher referenced but never
// shipped a concrete type for.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter returns a RateLimiter allowing requestsPerSecond steady
// state with a burst allowance of burst. Non-positive values fall back
// to sane defaults.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}
	if burst <= 0 {
		burst = defaultBurst
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
