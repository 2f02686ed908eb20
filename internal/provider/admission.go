package provider

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Admission bounds how many in-flight requests a single provider config
// may have outstanding at once, on top of the resolver/bulk engine's
// global concurrency cap (spec.md §5: "a per-provider semaphore/rate cap
// sits underneath the global concurrency limit").
type Admission struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// NewAdmission builds an Admission gate with maxConcurrency in-flight
// requests and a token-bucket limiter of ratePerSec/burst.
func NewAdmission(maxConcurrency int, ratePerSec float64, burst int) *Admission {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if burst < 1 {
		burst = 1
	}
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
	return &Admission{
		sem:     semaphore.NewWeighted(int64(maxConcurrency)),
		limiter: limiter,
	}
}

// Acquire blocks until both the concurrency slot and (if configured) the
// rate-limiter token are available, or ctx is done.
func (a *Admission) Acquire(ctx context.Context) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			a.sem.Release(1)
			return err
		}
	}
	return nil
}

// Release frees the concurrency slot acquired by a matching Acquire.
func (a *Admission) Release() { a.sem.Release(1) }

// DefaultCapabilities returns the per-provider concurrency and rate caps
// named in spec.md §5: github=10, azuredevops=4, bitbucket=5, and a
// default=4 for any provider kind not explicitly tuned.
func DefaultCapabilities(kind string) Capabilities {
	switch kind {
	case "github":
		return Capabilities{Kind: kind, HierarchyDepth: 2, MaxConcurrency: 10, RateRPS: 10, RateBurst: 20}
	case "azuredevops":
		return Capabilities{Kind: kind, HierarchyDepth: 3, MaxConcurrency: 4, RateRPS: 4, RateBurst: 8}
	case "bitbucket":
		return Capabilities{Kind: kind, HierarchyDepth: 2, MaxConcurrency: 5, RateRPS: 5, RateBurst: 10}
	default:
		return Capabilities{Kind: kind, HierarchyDepth: 2, MaxConcurrency: 4, RateRPS: 4, RateBurst: 8}
	}
}
