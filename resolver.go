package mgit

import (
	"context"

	"github.com/AeyeOps/mgit/internal/resolver"
)

// ResolveOptions narrows a resolution to a single registered provider
// config, or bounds the result count.
type ResolveOptions struct {
	ConfigName string
	Limit      int
}

// ResolveResult is the aggregate outcome of Resolve.
type ResolveResult struct {
	Repositories      []Repository
	PerProviderCounts map[string]int
	PerProviderErrors map[string]error
	ElapsedMS         int64
}

// Resolve expands pattern against every provider in reg (or just
// opts.ConfigName, when set), deduplicating repositories by identity and
// tolerating individual provider failures (spec.md §4.4).
func Resolve(ctx context.Context, reg *Registry, pattern PatternSpec, opts ResolveOptions) (ResolveResult, error) {
	res, err := resolver.Resolve(ctx, reg.internal(), pattern.toInternal(), resolver.Options{
		ConfigName: opts.ConfigName,
		Limit:      opts.Limit,
	})
	if err != nil {
		return ResolveResult{}, err
	}

	repos := make([]Repository, len(res.Repositories))
	for i, rr := range res.Repositories {
		repos[i] = Repository{
			ProviderKind:  ProviderKind(rr.ProviderKind),
			ConfigName:    rr.ConfigName,
			Organization:  rr.Listing.Organization,
			Project:       rr.Listing.Project,
			Name:          rr.Listing.Name,
			CloneURL:      rr.Listing.CloneURL,
			DefaultBranch: rr.Listing.DefaultBranch,
			Disabled:      rr.Listing.Disabled,
			Private:       rr.Listing.Private,
			SizeHintBytes: rr.Listing.SizeHintBytes,
			LastActivityAt: rr.Listing.LastActivity,
		}
	}
	return ResolveResult{
		Repositories:      repos,
		PerProviderCounts: res.PerProviderCounts,
		PerProviderErrors: res.PerProviderErrors,
		ElapsedMS:         res.ElapsedMS,
	}, nil
}
