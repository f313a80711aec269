package bank

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"
)

// RetryPolicy retries transport failures and retryable BankErrors with
// exponential backoff plus up to a second of jitter. Every attempt reuses the
// same idempotency key, so the bank applies the operation at most once.
type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxRetries int

	sleep func(ctx context.Context, d time.Duration) error
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

func retry[T any](ctx context.Context, p RetryPolicy, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < p.attempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < p.attempts()-1 {
			if err := p.wait(ctx, p.backoff(attempt)); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if bankErr, ok := IsBankError(err); ok {
		return bankErr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Timeouts and connection failures.
	return true
}

// backoff calculation with exponential delay and jitter
func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.IntN(1000)) * time.Millisecond
	return base + jitter
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
