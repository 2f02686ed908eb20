package mgiterrors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

func TestGitErrorClassMembership(t *testing.T) {
	err := mgiterrors.NewGitError(mgiterrors.GitDirtyWorkingTree, "worktree dirty", nil)
	require.True(t, errs.Is(err, mgiterrors.Git))
	require.False(t, errs.Is(err, mgiterrors.Network))

	var ge *mgiterrors.GitError
	require.True(t, errors.As(err, &ge))
	require.Equal(t, mgiterrors.GitDirtyWorkingTree, ge.Reason)
}

func TestCodedErrorRoundTrip(t *testing.T) {
	base := mgiterrors.Config.New("no providers configured")
	err := mgiterrors.WithCode(mgiterrors.CodeUnconfigured, "no providers configured", base)

	code, reason, ok := mgiterrors.AsCoded(err)
	require.True(t, ok)
	require.Equal(t, mgiterrors.CodeUnconfigured, code)
	require.Equal(t, "no providers configured", reason)
}

func TestAsCodedFalseForPlainError(t *testing.T) {
	_, _, ok := mgiterrors.AsCoded(errors.New("plain"))
	require.False(t, ok)
}
