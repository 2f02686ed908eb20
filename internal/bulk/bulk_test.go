package bulk_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AeyeOps/mgit/internal/bulk"
	"github.com/AeyeOps/mgit/internal/gitexec"
	"github.com/AeyeOps/mgit/internal/gittest"
)

func TestDecideCloneMode(t *testing.T) {
	action, _ := bulk.Decide(bulk.ModeClone, bulk.StateMissing, false)
	require.Equal(t, bulk.ActionClone, action)

	action, _ = bulk.Decide(bulk.ModeClone, bulk.StateClean, false)
	require.Equal(t, bulk.ActionSkip, action)

	action, _ = bulk.Decide(bulk.ModeClone, bulk.StateNonGit, true)
	require.Equal(t, bulk.ActionForceReclone, action)
}

func TestDecidePullMode(t *testing.T) {
	action, _ := bulk.Decide(bulk.ModePull, bulk.StateClean, false)
	require.Equal(t, bulk.ActionPull, action)

	action, _ = bulk.Decide(bulk.ModePull, bulk.StateDirty, false)
	require.Equal(t, bulk.ActionSkip, action)

	action, _ = bulk.Decide(bulk.ModePull, bulk.StateDirty, true)
	require.Equal(t, bulk.ActionForceReclone, action)

	action, _ = bulk.Decide(bulk.ModePull, bulk.StateMissing, false)
	require.Equal(t, bulk.ActionSkip, action)
}

func TestDecideSyncMode(t *testing.T) {
	action, _ := bulk.Decide(bulk.ModeSync, bulk.StateMissing, false)
	require.Equal(t, bulk.ActionClone, action)

	action, _ = bulk.Decide(bulk.ModeSync, bulk.StateClean, false)
	require.Equal(t, bulk.ActionPull, action)
}

func TestDecideGoneOverridesEverything(t *testing.T) {
	action, _ := bulk.Decide(bulk.ModeClone, bulk.StateGone, true)
	require.Equal(t, bulk.ActionWarnDeleteLocal, action)

	action, _ = bulk.Decide(bulk.ModeSync, bulk.StateGone, true)
	require.Equal(t, bulk.ActionWarnDeleteLocal, action)

	// Gone wins even when force is false: the decision itself doesn't
	// depend on force, only whether Run actually executes it does.
	action, _ = bulk.Decide(bulk.ModeClone, bulk.StateGone, false)
	require.Equal(t, bulk.ActionWarnDeleteLocal, action)
}

func TestDecideDisabledIsNonDestructive(t *testing.T) {
	action, reason := bulk.Decide(bulk.ModeClone, bulk.StateDisabled, true)
	require.Equal(t, bulk.ActionSkip, action)
	require.Contains(t, reason, "disabled")

	action, _ = bulk.Decide(bulk.ModeSync, bulk.StateDisabled, true)
	require.Equal(t, bulk.ActionSkip, action)
}

func TestLocalPathRejectsTraversal(t *testing.T) {
	_, err := bulk.LocalPath("/base", bulk.RepoTarget{Organization: "..", Name: "widget"})
	require.Error(t, err)

	_, err = bulk.LocalPath("/base", bulk.RepoTarget{Organization: "acme", Name: "../../etc"})
	require.Error(t, err)
}

func TestLocalPathBuildsHierarchy(t *testing.T) {
	p, err := bulk.LocalPath("/base", bulk.RepoTarget{Organization: "acme", Project: "core", Name: "widget"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/base", "acme", "core", "widget"), p)

	p, err = bulk.LocalPath("/base", bulk.RepoTarget{Organization: "acme", Name: "widget"})
	require.NoError(t, err)
	require.Equal(t, filepath.Join("/base", "acme", "widget"), p)
}

func TestRunClonesMissingRepository(t *testing.T) {
	upstream := gittest.New(t)
	upstream.WriteFile("README.md", []byte("hi"))
	upstream.Commit("initial")

	base := t.TempDir()
	e := gitexec.New()
	targets := []bulk.RepoTarget{{Identity: "acme|widget", Organization: "acme", Name: "widget", CloneURL: upstream.Dir}}

	report, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModeClone, BaseDir: base})
	require.NoError(t, err)
	require.Equal(t, 1, report.Counts[bulk.ActionClone])

	_, statErr := os.Stat(filepath.Join(base, "acme", "widget", "README.md"))
	require.NoError(t, statErr)
}

func TestRunSkipsDirtyWithoutForce(t *testing.T) {
	upstream := gittest.New(t)
	upstream.WriteFile("a.txt", []byte("a"))
	upstream.Commit("initial")

	base := t.TempDir()
	e := gitexec.New()
	targets := []bulk.RepoTarget{{Identity: "acme|widget", Organization: "acme", Name: "widget", CloneURL: upstream.Dir}}

	_, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModeClone, BaseDir: base})
	require.NoError(t, err)

	localPath := filepath.Join(base, "acme", "widget")
	require.NoError(t, os.WriteFile(filepath.Join(localPath, "dirty.txt"), []byte("uncommitted"), 0o644))

	report, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModePull, BaseDir: base})
	require.NoError(t, err)
	require.Equal(t, 1, report.Counts[bulk.ActionSkip])
	require.True(t, report.Results[0].Skipped)
}

func TestRunWarnDeleteLocalRequiresForceAndConfirmation(t *testing.T) {
	upstream := gittest.New(t)
	upstream.WriteFile("a.txt", []byte("a"))
	upstream.Commit("initial")

	base := t.TempDir()
	e := gitexec.New()
	targets := []bulk.RepoTarget{{Identity: "acme|widget", Organization: "acme", Name: "widget", CloneURL: upstream.Dir}}

	_, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModeClone, BaseDir: base})
	require.NoError(t, err)

	targets[0].RemoteGone = true

	report, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModePull, BaseDir: base})
	require.NoError(t, err)
	require.Equal(t, bulk.ActionWarnDeleteLocal, report.Results[0].Action)
	require.True(t, report.Results[0].Skipped)
	_, statErr := os.Stat(filepath.Join(base, "acme", "widget"))
	require.NoError(t, statErr) // not deleted without confirmation

	report, err = bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModePull, BaseDir: base, Confirmed: true})
	require.NoError(t, err)
	require.True(t, report.Results[0].Skipped)
	_, statErr = os.Stat(filepath.Join(base, "acme", "widget"))
	require.NoError(t, statErr) // not deleted: confirmed without force

	report, err = bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModePull, BaseDir: base, Force: true, Confirmed: true})
	require.NoError(t, err)
	require.False(t, report.Results[0].Skipped)
	_, statErr = os.Stat(filepath.Join(base, "acme", "widget"))
	require.True(t, os.IsNotExist(statErr))
}

func TestRunSkipsDisabledRepositoryWithoutDeleting(t *testing.T) {
	upstream := gittest.New(t)
	upstream.WriteFile("a.txt", []byte("a"))
	upstream.Commit("initial")

	base := t.TempDir()
	e := gitexec.New()
	targets := []bulk.RepoTarget{{Identity: "acme|widget", Organization: "acme", Name: "widget", CloneURL: upstream.Dir}}

	_, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModeClone, BaseDir: base})
	require.NoError(t, err)

	targets[0].RemoteDisabled = true
	report, err := bulk.Run(context.Background(), e, targets, bulk.Options{Mode: bulk.ModePull, BaseDir: base, Force: true, Confirmed: true})
	require.NoError(t, err)
	require.Equal(t, bulk.ActionSkip, report.Results[0].Action)
	require.True(t, report.Results[0].Skipped)

	_, statErr := os.Stat(filepath.Join(base, "acme", "widget"))
	require.NoError(t, statErr) // disabled never deletes, even with force+confirmed
}
