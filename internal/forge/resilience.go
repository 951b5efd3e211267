package forge

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/simili-bot/issuebot/internal/core/errs"
)

// Resilience wraps a forge call with a token-bucket rate limiter, a
// circuit breaker, and capped exponential backoff on *errs.Retryable.
// Every forge implementation's network calls should be routed through
// Do.
type Resilience struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewResilience builds a per-forge resilience wrapper. burst controls how
// many calls may proceed immediately before the rate limiter starts
// delaying; ratePerSecond is the steady-state outbound call budget.
func NewResilience(name string, ratePerSecond float64, burst int) *Resilience {
	return &Resilience{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Do runs fn under the rate limiter and circuit breaker, retrying with
// capped exponential backoff while fn returns *errs.Retryable. A
// *errs.Permanent or *errs.NotFound short-circuits immediately so a
// poisoned event can't block the pipeline.
func (r *Resilience) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)

	return backoff.Retry(func() error {
		_, err := r.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}

		var retryable *errs.Retryable
		if errors.As(err, &retryable) {
			return err // retried by backoff.Retry
		}
		return backoff.Permanent(err)
	}, policy)
}
