package provider_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/provider"
)

func TestRetryAfterDelayParsesSeconds(t *testing.T) {
	h := http.Header{"Retry-After": []string{"5"}}
	d, ok := provider.RetryAfterDelay(h)
	require.True(t, ok)
	require.Equal(t, 5*time.Second, d)
}

func TestRetryAfterDelayMissing(t *testing.T) {
	_, ok := provider.RetryAfterDelay(http.Header{})
	require.False(t, ok)
}

func TestBackoffJitterDelayGrowsAndCaps(t *testing.T) {
	d1 := provider.BackoffJitterDelay(1)
	d3 := provider.BackoffJitterDelay(3)
	require.LessOrEqual(t, d1, 1*time.Second)
	require.LessOrEqual(t, d3, 8*time.Second)
}

func TestDoRetriesOnlyRetryableClasses(t *testing.T) {
	attempts := 0
	err := provider.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return mgiterrors.Validation.New("bad input")
	})
	require.Error(t, err)
	require.Equal(t, 1, attempts)
}

func TestDoRetriesNetworkErrorsUpToMaxAttempts(t *testing.T) {
	attempts := 0
	err := provider.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return mgiterrors.Network.Wrap(errors.New("dial tcp: timeout"))
	})
	require.Error(t, err)
	require.Equal(t, provider.MaxAttempts, attempts)
}

func TestDoSucceedsAfterTransientFailure(t *testing.T) {
	attempts := 0
	err := provider.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return mgiterrors.RateLimited.New("rate limited")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}
