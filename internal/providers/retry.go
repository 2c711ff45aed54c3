package providers

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
)

// RetryPolicy bounds how many times a provider adapter retries a
// retryable error and the backoff schedule between attempts.
type RetryPolicy struct {
	MaxRetries      uint32
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// OnRetry, if set, is called once per retry attempt before the
	// backoff delay is waited out. It exists so a caller can mirror
	// retries into telemetry without this package importing it.
	OnRetry func(attempt uint32)
}

// DefaultRetryPolicy matches the providers' historical three-retry,
// exponential-backoff-from-one-second behavior.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// WithRetry runs op, retrying while its error is retryable per
// providererr.Error.Retryable, honoring any RetryDelay the error
// specifies and otherwise following an exponential backoff. It gives up
// immediately on a non-retryable error or once MaxRetries is exhausted.
func WithRetry(ctx context.Context, policy RetryPolicy, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialInterval
	eb.MaxInterval = policy.MaxInterval
	eb.MaxElapsedTime = 0
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.Reset()

	var attempt uint32
	for {
		err := op()
		if err == nil {
			return nil
		}

		var perr *providererr.Error
		if !errors.As(err, &perr) || !perr.Retryable() {
			return err
		}

		attempt++
		if attempt > policy.MaxRetries {
			return err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt)
		}

		delay, ok := perr.RetryDelay()
		if !ok {
			delay = eb.NextBackOff()
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
