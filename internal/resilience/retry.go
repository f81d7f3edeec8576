package resilience

import (
	"context"
	"time"
)

// RetryPolicy configures the exponential backoff of Retry and RetryBatch.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRetryPolicy mirrors spec.md's resilience defaults: 1s/2s/4s/8s
// capped backoff across four retries after the first attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 4, BaseBackoff: time.Second, MaxBackoff: 8 * time.Second}
}

// Backoff returns the delay before retry attempt n (0-indexed), doubling
// from BaseBackoff and capping at MaxBackoff.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	return d
}

// Retry runs fn up to policy.MaxRetries+1 times, sleeping with exponential
// backoff between attempts, and returns the last error if every attempt
// fails. It stops early and returns ctx.Err() if ctx is cancelled between
// attempts, so a caller's deadline always takes priority over finishing
// the retry schedule.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == policy.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(policy.Backoff(attempt)):
		}
	}
	return lastErr
}

// RetryBatch runs fn once per item, retrying only the items that failed
// on the previous pass, and returns the final per-item errors in the
// items' original order (nil for items that eventually succeeded); fn
// delivers any per-item result itself, e.g. through a pointer item. This preserves a partial batch's successes instead of
// discarding the whole batch on a single item's persistent failure.
func RetryBatch[T any](ctx context.Context, policy RetryPolicy, items []T, fn func(T) error) []error {
	errs := make([]error, len(items))
	pending := make([]int, len(items))
	for i := range items {
		pending[i] = i
	}

	for attempt := 0; attempt <= policy.MaxRetries && len(pending) > 0; attempt++ {
		if err := ctx.Err(); err != nil {
			for _, idx := range pending {
				errs[idx] = err
			}
			return errs
		}
		var nextPending []int
		for _, idx := range pending {
			if err := fn(items[idx]); err != nil {
				errs[idx] = err
				nextPending = append(nextPending, idx)
			} else {
				errs[idx] = nil
			}
		}
		pending = nextPending
		if len(pending) == 0 || attempt == policy.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			for _, idx := range pending {
				errs[idx] = ctx.Err()
			}
			return errs
		case <-time.After(policy.Backoff(attempt)):
		}
	}
	return errs
}
