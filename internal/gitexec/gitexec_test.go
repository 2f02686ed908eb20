package gitexec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/gitexec"
	"github.com/AeyeOps/mgit/internal/gittest"
	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

func TestRevParseAndStatusPorcelain(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("README.md", []byte("hello\n"))
	want := repo.Commit("initial")

	e := gitexec.New()
	ctx := context.Background()

	got, err := e.RevParseHEAD(ctx, repo.Dir)
	require.NoError(t, err)
	require.Equal(t, want, got)

	clean, err := e.StatusPorcelain(ctx, repo.Dir)
	require.NoError(t, err)
	require.True(t, clean)

	repo.WriteFile("README.md", []byte("hello again\n"))
	clean, err = e.StatusPorcelain(ctx, repo.Dir)
	require.NoError(t, err)
	require.False(t, clean)
}

func TestDiffTreeFromEmptyTree(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("a"))
	repo.WriteFile("b/c.txt", []byte("c"))
	head := repo.Commit("initial")

	e := gitexec.New()
	entries, err := e.DiffTree(context.Background(), repo.Dir, "", head)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		require.Equal(t, "A", e.Status)
	}
}

func TestDiffTreeBetweenCommits(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("a"))
	first := repo.Commit("first")

	repo.WriteFile("a.txt", []byte("a changed"))
	repo.WriteFile("new.txt", []byte("new"))
	second := repo.Commit("second")

	e := gitexec.New()
	entries, err := e.DiffTree(context.Background(), repo.Dir, first, second)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestShowFileReturnsContentAtCommit(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("version one"))
	first := repo.Commit("first")

	e := gitexec.New()
	content, err := e.ShowFile(context.Background(), repo.Dir, first, "a.txt")
	require.NoError(t, err)
	require.Equal(t, "version one", string(content))
}

func TestClassifyNotAGitRepo(t *testing.T) {
	dir := t.TempDir()
	e := gitexec.New()
	_, err := e.StatusPorcelain(context.Background(), dir)
	require.Error(t, err)

	var ge *mgiterrors.GitError
	require.True(t, errors.As(err, &ge))
	require.Equal(t, mgiterrors.GitNotARepo, ge.Reason)
}

func TestRevListCount(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("a"))
	first := repo.Commit("first")
	repo.WriteFile("a.txt", []byte("a2"))
	second := repo.Commit("second")

	e := gitexec.New()
	n, err := e.RevListCount(context.Background(), repo.Dir, first, second)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
