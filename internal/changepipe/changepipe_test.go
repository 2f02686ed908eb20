package changepipe_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/changepipe"
	"github.com/AeyeOps/mgit/internal/gitexec"
	"github.com/AeyeOps/mgit/internal/gittest"
)

func TestDiffFromEmptyTreeOrdersAddsThenMarker(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("b.txt", []byte("b"))
	repo.WriteFile("a.txt", []byte("a"))
	head := repo.Commit("initial")

	e := gitexec.New()
	var recs []changepipe.Record
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: head, Branch: "main",
	}, func(r changepipe.Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, recs, 3) // a.txt, b.txt, completion marker

	require.Equal(t, "a.txt", recs[0].Path)
	require.Equal(t, "b.txt", recs[1].Path)
	require.NotNil(t, recs[2].NewAnchor)
	require.Equal(t, head, recs[2].NewAnchor.Commit)
}

func TestDiffInlinesSmallTextContent(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("hello world"))
	head := repo.Commit("initial")

	e := gitexec.New()
	var recs []changepipe.Record
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: head,
	}, func(r changepipe.Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "hello world", recs[0].Content)
	require.Empty(t, recs[0].ContentBase64)
}

func TestDiffBase64TiersMidSizeContent(t *testing.T) {
	repo := gittest.New(t)
	big := bytes.Repeat([]byte("x"), changepipe.InlineThreshold+1)
	repo.WriteFile("big.txt", big)
	head := repo.Commit("initial")

	e := gitexec.New()
	var recs []changepipe.Record
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: head,
	}, func(r changepipe.Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, recs[0].Content)
	require.NotEmpty(t, recs[0].ContentBase64)
}

func TestDiffContentRefForOversizedFilesRequiresWriter(t *testing.T) {
	repo := gittest.New(t)
	huge := bytes.Repeat([]byte("y"), changepipe.Base64Threshold+1)
	repo.WriteFile("huge.bin", huge)
	head := repo.Commit("initial")

	e := gitexec.New()
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: head,
	}, func(r changepipe.Record) error { return nil })
	require.Error(t, err)

	dir := t.TempDir()
	err = changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: head,
		RefWriter: &changepipe.LocalContentRefStore{Dir: dir},
	}, func(r changepipe.Record) error { return nil })
	require.NoError(t, err)
}

func TestDiffDeletesAreSortedAfterUpserts(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("keep.txt", []byte("keep"))
	repo.WriteFile("gone.txt", []byte("gone"))
	first := repo.Commit("first")

	repo.WriteFile("keep.txt", []byte("keep v2"))
	require.NoError(t, os.Remove(filepath.Join(repo.Dir, "gone.txt")))
	repo.Commit("second")

	e := gitexec.New()
	head := repo.Head()
	var recs []changepipe.Record
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, FromCommit: first, ToCommit: head,
	}, func(r changepipe.Record) error {
		recs = append(recs, r)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, changepipe.OpModify, recs[0].Op)
	require.Equal(t, changepipe.OpDelete, recs[1].Op)
}

func TestDiffFailsFastOnInvalidCommit(t *testing.T) {
	repo := gittest.New(t)
	repo.WriteFile("a.txt", []byte("a"))
	repo.Commit("initial")

	e := gitexec.New()
	err := changepipe.Diff(context.Background(), e, changepipe.Options{
		Repo: "acme/widget", Dir: repo.Dir, ToCommit: "not-a-real-commit",
		Recovery: changepipe.RecoveryIgnore,
	}, func(r changepipe.Record) error { return nil })
	require.Error(t, err) // DiffTree itself fails against an invalid commit, before recovery applies
}

func TestWriteLineDelimitedJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := changepipe.WriteLineDelimitedJSON(&buf)
	require.NoError(t, sink(changepipe.Record{Repo: "acme/widget", Path: "a.txt"}))
	require.Contains(t, buf.String(), `"repo":"acme/widget"`)
}
