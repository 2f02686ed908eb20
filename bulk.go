package mgit

import (
	"context"
	"os"

	"github.com/AeyeOps/mgit/internal/bulk"
	"github.com/AeyeOps/mgit/internal/gitexec"
)

// BulkMode selects the bulk operation requested for a run.
type BulkMode = bulk.Mode

const (
	BulkClone BulkMode = bulk.ModeClone
	BulkPull  BulkMode = bulk.ModePull
	BulkSync  BulkMode = bulk.ModeSync
)

// BulkOptions configures one Bulk run (spec.md §4.6, §5).
type BulkOptions struct {
	Mode        BulkMode
	BaseDir     string
	Force       bool
	Confirmed   bool
	Concurrency int
	CloneDepth  int
}

// BulkRepoResult is the outcome of one repository's plan+execute.
type BulkRepoResult struct {
	Repo    Repository
	Action  BulkAction
	Reason  string
	Err     error
	Skipped bool
}

// BulkReport aggregates every repository's outcome for a run.
type BulkReport struct {
	Results []BulkRepoResult
	Counts  map[BulkAction]int
}

// Bulk runs the decision table against repos with bounded concurrency,
// tolerating individual failures (spec.md §4.6).
func Bulk(ctx context.Context, repos []Repository, opts BulkOptions) (BulkReport, error) {
	exec := gitexec.New()

	targets := make([]bulk.RepoTarget, len(repos))
	byIdentity := make(map[string]Repository, len(repos))
	for i, r := range repos {
		targets[i] = bulk.RepoTarget{
			Identity:       r.IdentityKey(),
			Organization:   r.Organization,
			Project:        r.Project,
			Name:           r.Name,
			CloneURL:       r.CloneURL,
			RemoteDisabled: r.Disabled,
			RemoteGone:     r.Gone,
		}
		byIdentity[r.IdentityKey()] = r
	}

	report, err := bulk.Run(ctx, exec, targets, bulk.Options{
		Mode:        opts.Mode,
		BaseDir:     opts.BaseDir,
		Force:       opts.Force,
		Confirmed:   opts.Confirmed,
		Concurrency: opts.Concurrency,
		CloneDepth:  opts.CloneDepth,
	})
	if err != nil {
		return BulkReport{}, err
	}

	out := BulkReport{Counts: make(map[BulkAction]int)}
	for _, r := range report.Results {
		out.Results = append(out.Results, BulkRepoResult{
			Repo:    byIdentity[r.Identity],
			Action:  BulkAction(r.Action),
			Reason:  r.Reason,
			Err:     r.Err,
			Skipped: r.Skipped,
		})
	}
	for action, n := range report.Counts {
		out.Counts[BulkAction(action)] = n
	}
	return out, nil
}

// Plan computes, without executing anything, the decision and a
// best-effort change-count estimate for each repo against its local
// clone at baseDir (the SPEC_FULL.md dry-run supplement). The estimate
// is -1 when the repository has no local clone yet or the preflight
// `git rev-list --count` itself fails.
func Plan(ctx context.Context, repos []Repository, baseDir string, mode BulkMode, force bool) ([]OperationPlan, error) {
	exec := gitexec.New()
	plans := make([]OperationPlan, len(repos))

	for i, r := range repos {
		target := bulk.RepoTarget{
			Identity: r.IdentityKey(), Organization: r.Organization, Project: r.Project,
			Name: r.Name, CloneURL: r.CloneURL, RemoteDisabled: r.Disabled, RemoteGone: r.Gone,
		}
		path, err := bulk.LocalPath(baseDir, target)
		if err != nil {
			return nil, err
		}

		state := planLocalState(ctx, exec, path, r)
		action, reason := bulk.Decide(bulk.Mode(mode), state, force)

		// Plan never performs network I/O, so the estimate only reflects
		// commits already fetched locally but not yet merged (e.g. from a
		// prior `git fetch` the host ran out-of-band); it is -1 whenever
		// no upstream tracking ref is available to diff against.
		estimate := -1
		if action == BulkAction(bulk.ActionPull) {
			if n, cerr := exec.RevListCount(ctx, path, "HEAD", "@{upstream}"); cerr == nil {
				estimate = n
			}
		}

		plans[i] = OperationPlan{Repo: r, Action: BulkAction(action), Reason: reason, ExpectedChangeEstimate: estimate}
	}
	return plans, nil
}

func planLocalState(ctx context.Context, exec *gitexec.Executor, path string, r Repository) bulk.LocalState {
	if r.Gone {
		if _, err := exec.RevParseHEAD(ctx, path); err == nil {
			return bulk.StateGone
		}
	}
	if r.Disabled {
		if _, err := exec.RevParseHEAD(ctx, path); err == nil {
			return bulk.StateDisabled
		}
	}
	clean, err := exec.StatusPorcelain(ctx, path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return bulk.StateNonGit
		}
		return bulk.StateMissing
	}
	if clean {
		return bulk.StateClean
	}
	return bulk.StateDirty
}
