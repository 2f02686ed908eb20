package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	"github.com/AeyeOps/mgit/internal/patternlang"
	"github.com/AeyeOps/mgit/internal/provider"
	"github.com/AeyeOps/mgit/internal/resolver"
)

type stubDriver struct {
	kind    string
	repos   []provider.RepoListing
	err     error
	calls   int
}

func (s *stubDriver) Authenticate(ctx context.Context) error { return nil }
func (s *stubDriver) ListRepositories(ctx context.Context, org, project string) ([]provider.RepoListing, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.repos, nil
}
func (s *stubDriver) CloneURL(ctx context.Context, r provider.RepoListing, scheme provider.AuthScheme) (string, error) {
	return r.CloneURL, nil
}
func (s *stubDriver) Capabilities() provider.Capabilities {
	return provider.DefaultCapabilities(s.kind)
}

func newReg(entries map[string]*stubDriver) *provider.Registry {
	reg := provider.NewRegistry()
	for name, d := range entries {
		reg.Register(name, d, provider.NewAdmission(4, 0, 1))
	}
	return reg
}

func TestResolveFansOutAcrossProviders(t *testing.T) {
	gh := &stubDriver{kind: "github", repos: []provider.RepoListing{
		{Organization: "acme", Name: "widget"},
	}}
	bb := &stubDriver{kind: "bitbucket", repos: []provider.RepoListing{
		{Organization: "acme", Name: "gadget"},
	}}
	reg := newReg(map[string]*stubDriver{"gh": gh, "bb": bb})

	pat, err := patternlang.Parse("acme/*/*")
	require.NoError(t, err)

	res, err := resolver.Resolve(context.Background(), reg, pat, resolver.Options{})
	require.NoError(t, err)
	require.Len(t, res.Repositories, 2)
	require.Equal(t, 1, gh.calls)
	require.Equal(t, 1, bb.calls)
}

func TestResolveKeepsSameRepoFromTwoConfigsDistinct(t *testing.T) {
	first := &stubDriver{kind: "github", repos: []provider.RepoListing{{Organization: "acme", Name: "widget", CloneURL: "from-first"}}}
	second := &stubDriver{kind: "github", repos: []provider.RepoListing{{Organization: "acme", Name: "widget", CloneURL: "from-second"}}}
	reg := newReg(map[string]*stubDriver{})
	reg.Register("first", first, provider.NewAdmission(4, 0, 1))
	reg.Register("second", second, provider.NewAdmission(4, 0, 1))

	pat, err := patternlang.Parse("acme/*/widget")
	require.NoError(t, err)

	res, err := resolver.Resolve(context.Background(), reg, pat, resolver.Options{})
	require.NoError(t, err)
	require.Len(t, res.Repositories, 2) // distinct identities: ConfigName differs
}

func TestResolveTeratesPerProviderFailure(t *testing.T) {
	ok := &stubDriver{kind: "github", repos: []provider.RepoListing{{Organization: "acme", Name: "widget"}}}
	bad := &stubDriver{kind: "bitbucket", err: mgiterrors.Network.New("boom")}
	reg := newReg(map[string]*stubDriver{"ok": ok, "bad": bad})

	pat, err := patternlang.Parse("acme/*/*")
	require.NoError(t, err)

	res, err := resolver.Resolve(context.Background(), reg, pat, resolver.Options{})
	require.NoError(t, err)
	require.Len(t, res.Repositories, 1)
	require.Contains(t, res.PerProviderErrors, "bad")
}

func TestResolveRejectsGlobOrganization(t *testing.T) {
	reg := newReg(map[string]*stubDriver{"gh": {kind: "github"}})
	pat, err := patternlang.Parse("*/*/widget")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), reg, pat, resolver.Options{})
	require.Error(t, err)
	code, _, ok := mgiterrors.AsCoded(err)
	require.True(t, ok)
	require.Equal(t, mgiterrors.CodeInvalidPattern, code)
}

func TestResolveUnknownConfigName(t *testing.T) {
	reg := newReg(map[string]*stubDriver{"gh": {kind: "github"}})
	pat, err := patternlang.Parse("acme/*/widget")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), reg, pat, resolver.Options{ConfigName: "missing"})
	require.Error(t, err)
}

func TestResolveEmptyRegistry(t *testing.T) {
	reg := provider.NewRegistry()
	pat, err := patternlang.Parse("acme/*/widget")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), reg, pat, resolver.Options{})
	require.Error(t, err)
	code, _, ok := mgiterrors.AsCoded(err)
	require.True(t, ok)
	require.Equal(t, mgiterrors.CodeUnconfigured, code)
}
