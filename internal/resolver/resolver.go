// Package resolver implements the Multi-Provider Resolver (spec.md
// §4.4): expanding a pattern against every registered provider
// concurrently, then deduplicating by identity key.
package resolver

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/patternlang"
	"github.com/AeyeOps/mgit/internal/provider"
)

// ResolvedRepository pairs a provider.RepoListing with the registry
// entry it came from.
type ResolvedRepository struct {
	ConfigName   string
	ProviderKind string
	Listing      provider.RepoListing
}

// IdentityKey matches mgit.Repository.IdentityKey's shape so the
// resolver and the changeset store agree on identity.
func (r ResolvedRepository) IdentityKey() string {
	return r.ProviderKind + "|" + r.ConfigName + "|" + r.Listing.Organization + "|" + r.Listing.Project + "|" + r.Listing.Name
}

// Result is the aggregate outcome of one Resolve call.
type Result struct {
	Repositories       []ResolvedRepository
	PerProviderCounts  map[string]int
	PerProviderErrors  map[string]error
	ElapsedMS          int64
}

// Options narrows a resolution to a single registry entry, when the
// caller already knows the target rather than wanting the full
// multi-provider fan-out, and optionally caps the result count.
type Options struct {
	ConfigName string // empty: fan out across every registered provider
	Limit      int    // 0: unbounded
}

// Resolve expands pat against every provider in reg (or just
// opts.ConfigName, if set), deduplicating results by identity key with
// registry order breaking ties, and tolerating individual provider
// failures (spec.md §9: duplicate identities resolve to registry-order
// priority, not an error).
func Resolve(ctx context.Context, reg *provider.Registry, pat patternlang.Pattern, opts Options) (Result, error) {
	start := time.Now()

	names := reg.ListNames()
	if opts.ConfigName != "" {
		found := false
		for _, n := range names {
			if n == opts.ConfigName {
				found = true
				break
			}
		}
		if !found {
			return Result{}, mgiterrors.WithCode(mgiterrors.CodeUnknownProvider,
				"unknown provider config: "+opts.ConfigName,
				mgiterrors.Config.New("unknown provider config %q", opts.ConfigName))
		}
		names = []string{opts.ConfigName}
	}
	if len(names) == 0 {
		return Result{}, mgiterrors.WithCode(mgiterrors.CodeUnconfigured,
			"no providers configured", mgiterrors.Config.New("registry is empty"))
	}
	// A non-literal org segment is rejected for every provider alike, so
	// it fails the whole resolution before any driver is called.
	if _, err := discoverOrgs(pat, provider.Capabilities{}); err != nil {
		return Result{}, err
	}

	type partial struct {
		name    string
		kind    string
		repos   []provider.RepoListing
		err     error
	}
	results := make([]partial, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			entry, err := reg.Get(name)
			if err != nil {
				results[i] = partial{name: name, err: err}
				return nil // tolerate: per-provider failure does not abort the fan-out
			}
			repos, err := listForPattern(gctx, entry, pat)
			results[i] = partial{name: name, kind: entry.Driver.Capabilities().Kind, repos: repos, err: err}
			return nil
		})
	}
	// errgroup's ctx cancellation only matters if a goroutine returns a
	// non-nil error, which never happens here: every failure is captured
	// per-provider instead of aborting siblings.
	_ = g.Wait()

	res := Result{
		PerProviderCounts: make(map[string]int),
		PerProviderErrors: make(map[string]error),
	}
	seen := make(map[string]struct{})
	var mu sync.Mutex
	_ = mu // reserved: results slice is already index-isolated, no lock needed

	for _, p := range results {
		if p.err != nil {
			res.PerProviderErrors[p.name] = p.err
			continue
		}
		count := 0
		for _, listing := range p.repos {
			rr := ResolvedRepository{ConfigName: p.name, ProviderKind: p.kind, Listing: listing}
			key := rr.IdentityKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			res.Repositories = append(res.Repositories, rr)
			count++
			if opts.Limit > 0 && len(res.Repositories) >= opts.Limit {
				res.PerProviderCounts[p.name] = count
				res.ElapsedMS = time.Since(start).Milliseconds()
				return sortResult(res), nil
			}
		}
		res.PerProviderCounts[p.name] = count
	}

	res.ElapsedMS = time.Since(start).Milliseconds()
	return sortResult(res), nil
}

func sortResult(res Result) Result {
	sort.Slice(res.Repositories, func(i, j int) bool {
		return res.Repositories[i].IdentityKey() < res.Repositories[j].IdentityKey()
	})
	return res
}

// listForPattern expands pat against a single registry entry, honoring
// its admission gate and the provider's hierarchy depth.
func listForPattern(ctx context.Context, entry *provider.Entry, pat patternlang.Pattern) ([]provider.RepoListing, error) {
	caps := entry.Driver.Capabilities()

	orgs, err := discoverOrgs(pat, caps)
	if err != nil {
		return nil, err
	}

	var out []provider.RepoListing
	for _, org := range orgs {
		project := ""
		if caps.HierarchyDepth == 3 && pat.Project != "*" {
			project = pat.Project
		}
		if err := entry.Admit.Acquire(ctx); err != nil {
			return nil, mgiterrors.Cancelled.Wrap(err)
		}
		listing, err := entry.Driver.ListRepositories(ctx, org, project)
		entry.Admit.Release()
		if err != nil {
			return nil, err
		}
		for _, l := range listing {
			if pat.Matches(l.Organization, l.Project, l.Name) {
				out = append(out, l)
			}
		}
	}
	return out, nil
}

// discoverOrgs returns the literal organizations to query. A wildcard
// org glob cannot be resolved without an org-listing API, which most
// providers don't expose cheaply; mgit requires a literal org segment
// and rejects any glob org. No default organization is consulted.
func discoverOrgs(pat patternlang.Pattern, caps provider.Capabilities) ([]string, error) {
	if pat.Org != "*" && !containsGlobChars(pat.Org) {
		return []string{pat.Org}, nil
	}
	return nil, mgiterrors.WithCode(mgiterrors.CodeInvalidPattern,
		"a literal organization segment is required: wildcard/glob organizations are not supported",
		mgiterrors.Pattern.New("org segment %q is not a literal", pat.Org))
}

func containsGlobChars(s string) bool {
	for _, r := range s {
		if r == '*' || r == '?' {
			return true
		}
	}
	return false
}
