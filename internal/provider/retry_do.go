package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/zeebo/errs"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Retryable is implemented by errors that carry provider response
// headers, which Do reads to honor a Retry-After delay. It does not make
// an error eligible for retry: Do decides that by error class alone
// (spec.md §5: only RateLimited and NetworkError are retried, everything
// else fails the attempt immediately).
type Retryable interface {
	RetryHeaders() http.Header
}

// Do runs op up to MaxAttempts times, retrying only on mgiterrors.RateLimited
// or mgiterrors.Network class errors with the exponential-backoff-with-jitter
// policy from retry.go. It is built on cenkalti/backoff/v4's retry
// primitive so the attempt bookkeeping and permanent-vs-transient
// distinction follow the same idiom the teacher's HTTP bridges use.
func Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempt := 0
	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(MaxAttempts-1)), ctx)

	return backoff.RetryNotify(func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}
		var headers http.Header
		if rh, ok := err.(Retryable); ok {
			headers = rh.RetryHeaders()
		}
		if sleepErr := SleepForRetry(ctx, attempt, headers); sleepErr != nil {
			return backoff.Permanent(sleepErr)
		}
		return err
	}, policy, func(err error, d time.Duration) {})
}

func isRetryable(err error) bool {
	return errs.Is(err, mgiterrors.RateLimited) || errs.Is(err, mgiterrors.Network)
}
