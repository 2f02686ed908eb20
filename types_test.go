package mgit_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
	mgit "github.com/AeyeOps/mgit"
)

func TestRepositoryIdentityKeyIsStableAndDistinguishesProject(t *testing.T) {
	a := mgit.Repository{ProviderKind: mgit.ProviderAzureDevOps, ConfigName: "work", Organization: "acme", Project: "core", Name: "widget"}
	b := a
	b.Project = "platform"

	require.Equal(t, a.IdentityKey(), a.IdentityKey())
	require.NotEqual(t, a.IdentityKey(), b.IdentityKey())
	require.True(t, a.Is3Level())
}

func TestRepositoryIdentityHashIsDeterministic(t *testing.T) {
	r := mgit.Repository{ProviderKind: mgit.ProviderGitHub, ConfigName: "oss", Organization: "acme", Name: "widget"}
	require.Equal(t, r.IdentityHash(), r.IdentityHash())
	require.Len(t, r.IdentityHash(), 64) // hex-encoded sha256
}

func TestProviderConfigFingerprintNeverLeaksCredential(t *testing.T) {
	cfg := mgit.ProviderConfig{Name: "oss", Kind: mgit.ProviderGitHub, Credential: []byte("super-secret-token")}
	fp := cfg.Fingerprint()
	require.NotEmpty(t, fp)
	require.NotContains(t, fp, "super-secret-token")
	require.Len(t, fp, 12)

	empty := mgit.ProviderConfig{}
	require.Empty(t, empty.Fingerprint())
}

func TestChangeRecordIsCompletionMarker(t *testing.T) {
	file := mgit.ChangeRecord{Repo: "acme/widget", Op: mgit.ChangeAdd, Path: "a.txt"}
	require.False(t, file.IsCompletionMarker())

	marker := mgit.ChangeRecord{Repo: "acme/widget", NewChangeset: &mgit.ChangesetWire{Commit: "abc"}}
	require.True(t, marker.IsCompletionMarker())
}

func TestAsCodeRoundTripsThroughPublicFacade(t *testing.T) {
	err := mgiterrors.WithCode(mgiterrors.CodeInvalidPattern, "bad pattern", mgiterrors.Pattern.New("boom"))
	code, reason, ok := mgit.AsCode(err)
	require.True(t, ok)
	require.Equal(t, mgit.CodeInvalidPattern, code)
	require.Equal(t, "bad pattern", reason)
}
