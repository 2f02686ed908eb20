// Package provider defines the driver abstraction every hosting backend
// implements, plus the admission-control and retry policy shared by all
// of them (spec.md §4.2, §5).
package provider

import (
	"context"
	"time"
)

// RepoListing is the provider-native repository summary returned by a
// driver's ListRepositories, before it is lifted into a mgit.Repository
// by the caller (which knows the ConfigName).
type RepoListing struct {
	Organization  string
	Project       string // empty for 2-level providers
	Name          string
	CloneURL      string
	DefaultBranch string
	Disabled      bool
	Private       bool
	SizeHintBytes int64
	LastActivity  *time.Time
}

// AuthScheme selects how CloneURL embeds credentials into the returned
// URL (spec.md §4.2).
type AuthScheme string

const (
	AuthEmbed AuthScheme = "embed"
	AuthSSH   AuthScheme = "ssh"
	AuthBasic AuthScheme = "basic"
)

// Capabilities describes what a driver supports, used by the resolver
// and bulk engine to decide whether a 3-segment pattern is even
// meaningful for this provider and what its native concurrency budget
// looks like.
type Capabilities struct {
	Kind          string
	HierarchyDepth int // 2 (org/repo) or 3 (org/project/repo)
	MaxConcurrency int
	RateRPS        float64
	RateBurst      int
}

// Driver is the abstraction every hosting backend (GitHub, Azure DevOps,
// Bitbucket, ...) implements. Drivers never mutate remote state: they
// authenticate, enumerate, and hand back clone URLs.
type Driver interface {
	// Authenticate verifies the driver's credential is usable, returning
	// a mgiterrors Auth-class error on failure.
	Authenticate(ctx context.Context) error

	// ListRepositories enumerates repositories under org (and, for
	// 3-level providers, project; project is ignored by 2-level
	// drivers). An empty project lists every project's repositories.
	ListRepositories(ctx context.Context, org, project string) ([]RepoListing, error)

	// CloneURL returns a clone URL for r built for the requested auth
	// scheme. A driver that cannot honor scheme returns a
	// mgiterrors-coded Unsupported error (spec.md §4.2).
	CloneURL(ctx context.Context, r RepoListing, scheme AuthScheme) (string, error)

	Capabilities() Capabilities
}
