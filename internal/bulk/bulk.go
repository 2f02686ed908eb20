// Package bulk implements the Bulk Operation Engine (spec.md §4.6): a
// decision table mapping each repository's local state to an action,
// executed with bounded concurrency.
package bulk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AeyeOps/mgit/internal/gitexec"
	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Mode selects the bulk operation requested for a run.
type Mode string

const (
	ModeClone Mode = "clone"
	ModePull  Mode = "pull"
	ModeSync  Mode = "sync" // clone missing, pull existing
)

// LocalState is the observed state of a repository's working copy on
// disk, computed before the decision table runs.
type LocalState string

const (
	StateMissing  LocalState = "missing"
	StateClean    LocalState = "clean"
	StateDirty    LocalState = "dirty"
	StateNonGit   LocalState = "non_git"  // path exists, is not a git repo
	StateDisabled LocalState = "disabled" // repo still exists upstream but is archived/disabled
	StateGone     LocalState = "gone"     // repo exists locally but was deleted upstream
)

// Action is the per-repository decision made by Decide.
type Action string

const (
	ActionClone           Action = "clone"
	ActionPull            Action = "pull"
	ActionSkip            Action = "skip"
	ActionForceReclone    Action = "force_reclone"
	ActionWarnDeleteLocal Action = "warn_delete_local"
)

// Decide implements the decision table from spec.md §4.6. Force only
// changes the outcome for dirty/non-git conflicts; it never bypasses the
// warn_delete_local outcome for a repository the provider says is gone,
// and it never turns a merely-disabled repository into a deletion.
func Decide(mode Mode, state LocalState, force bool) (Action, string) {
	if state == StateDisabled {
		return ActionSkip, "repository disabled upstream"
	}
	if state == StateGone {
		return ActionWarnDeleteLocal, "repository no longer exists upstream"
	}
	switch mode {
	case ModeClone:
		switch state {
		case StateMissing:
			return ActionClone, "not present locally"
		case StateClean, StateDirty:
			return ActionSkip, "already present locally"
		case StateNonGit:
			if force {
				return ActionForceReclone, "path exists but is not a git repository (forced)"
			}
			return ActionSkip, "path exists but is not a git repository"
		}
	case ModePull:
		switch state {
		case StateMissing:
			return ActionSkip, "not present locally, nothing to pull"
		case StateClean:
			return ActionPull, "clean working tree"
		case StateDirty:
			if force {
				return ActionForceReclone, "dirty working tree (forced)"
			}
			return ActionSkip, "dirty working tree"
		case StateNonGit:
			if force {
				return ActionForceReclone, "path exists but is not a git repository (forced)"
			}
			return ActionSkip, "path exists but is not a git repository"
		}
	case ModeSync:
		switch state {
		case StateMissing:
			return ActionClone, "not present locally"
		case StateClean:
			return ActionPull, "clean working tree"
		case StateDirty:
			if force {
				return ActionForceReclone, "dirty working tree (forced)"
			}
			return ActionSkip, "dirty working tree"
		case StateNonGit:
			if force {
				return ActionForceReclone, "path exists but is not a git repository (forced)"
			}
			return ActionSkip, "path exists but is not a git repository"
		}
	}
	return ActionSkip, "no matching rule"
}

// RepoTarget is one repository's plan input: where it lives locally and
// how to fetch it.
type RepoTarget struct {
	Identity     string // stable key, used in Report and as the map key for local path construction
	Organization string
	Project      string // empty for 2-level providers
	Name         string
	CloneURL     string

	// RemoteDisabled reports that the provider still lists this
	// repository but flags it archived/disabled (non-destructive: the
	// decision table only skips it).
	RemoteDisabled bool

	// RemoteGone reports that this repository no longer exists upstream
	// at all (the host detected its absence from a fresh resolve). This
	// is the only state that can route to the destructive
	// warn_delete_local outcome.
	RemoteGone bool
}

// LocalPath builds the on-disk clone path for a target, sanitizing any
// path-traversal or absolute segment a malicious provider response
// might otherwise smuggle in (spec.md §4.6: local paths are always
// confined under base).
func LocalPath(base string, t RepoTarget) (string, error) {
	segs := []string{t.Organization}
	if t.Project != "" {
		segs = append(segs, t.Project)
	}
	segs = append(segs, t.Name)
	for _, s := range segs {
		if s == "" || s == "." || s == ".." || filepath.IsAbs(s) || strings.ContainsAny(s, `\/`) {
			return "", mgiterrors.WithCode(mgiterrors.CodeValidation,
				"repository path segment is unsafe: "+s,
				mgiterrors.Validation.New("unsafe path segment %q", s))
		}
	}
	return filepath.Join(append([]string{base}, segs...)...), nil
}

// Options configures one bulk run.
type Options struct {
	Mode        Mode
	BaseDir     string
	Force       bool
	Confirmed   bool // required before any ActionWarnDeleteLocal/ActionForceReclone actually executes
	Concurrency int  // default 4, hard cap 20 (spec.md §5)
	CloneDepth  int
}

func (o Options) concurrency() int64 {
	n := o.Concurrency
	if n <= 0 {
		n = 4
	}
	if n > 20 {
		n = 20
	}
	return int64(n)
}

// RepoResult is the outcome of one repository's plan+execute.
type RepoResult struct {
	Identity string
	Action   Action
	Reason   string
	Err      error
	Skipped  bool
}

// Report aggregates every repository's outcome for a run.
type Report struct {
	Results  []RepoResult
	Counts   map[Action]int
	Elapsed  time.Duration
}

// Run executes the decision table against every target with bounded
// concurrency, tolerating individual failures (one repository's error
// never aborts the others — spec.md §4.6).
func Run(ctx context.Context, exec *gitexec.Executor, targets []RepoTarget, opts Options) (Report, error) {
	if opts.Concurrency < 0 {
		return Report{}, mgiterrors.WithCode(mgiterrors.CodeValidation, "concurrency must not be negative",
			mgiterrors.Validation.New("concurrency=%d", opts.Concurrency))
	}
	start := time.Now()
	if len(targets) == 0 {
		return Report{Counts: map[Action]int{}}, nil
	}
	sem := semaphore.NewWeighted(opts.concurrency())
	results := make([]RepoResult, len(targets))

	var wg sync.WaitGroup
	wg.Add(len(targets))
	for i, target := range targets {
		i, target := i, target
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = RepoResult{Identity: target.Identity, Err: mgiterrors.Cancelled.Wrap(err)}
				return
			}
			defer sem.Release(1)
			results[i] = runOne(ctx, exec, target, opts)
		}()
	}
	wg.Wait()

	counts := make(map[Action]int)
	for _, r := range results {
		counts[r.Action]++
	}
	return Report{Results: results, Counts: counts, Elapsed: time.Since(start)}, nil
}

func runOne(ctx context.Context, exec *gitexec.Executor, target RepoTarget, opts Options) RepoResult {
	path, err := LocalPath(opts.BaseDir, target)
	if err != nil {
		return RepoResult{Identity: target.Identity, Err: err}
	}

	state := localState(ctx, exec, path, target)
	action, reason := Decide(opts.Mode, state, opts.Force)
	res := RepoResult{Identity: target.Identity, Action: action, Reason: reason}

	switch action {
	case ActionSkip:
		res.Skipped = true
		return res
	case ActionWarnDeleteLocal:
		if !(opts.Force && opts.Confirmed) {
			res.Skipped = true
			res.Reason = reason + " (force and confirmation required, not granted)"
			return res
		}
		if err := os.RemoveAll(path); err != nil {
			res.Err = mgiterrors.Storage.Wrap(fmt.Errorf("remove local copy of %s: %w", target.Identity, err))
		}
		return res
	case ActionForceReclone:
		if !opts.Confirmed {
			res.Skipped = true
			res.Reason = reason + " (confirmation required, not granted)"
			return res
		}
		if err := os.RemoveAll(path); err != nil {
			res.Err = mgiterrors.Storage.Wrap(fmt.Errorf("remove existing path %s: %w", path, err))
			return res
		}
		if err := exec.Clone(ctx, target.CloneURL, path, opts.CloneDepth); err != nil {
			res.Err = err
		}
		return res
	case ActionClone:
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			res.Err = mgiterrors.Storage.Wrap(err)
			return res
		}
		if err := exec.Clone(ctx, target.CloneURL, path, opts.CloneDepth); err != nil {
			res.Err = err
		}
		return res
	case ActionPull:
		if err := exec.Pull(ctx, path); err != nil {
			res.Err = err
		}
		return res
	}
	return res
}

func localState(ctx context.Context, exec *gitexec.Executor, path string, target RepoTarget) LocalState {
	info, statErr := os.Stat(path)
	exists := statErr == nil
	if target.RemoteGone && exists {
		return StateGone
	}
	if target.RemoteDisabled && exists {
		return StateDisabled
	}
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return StateMissing
		}
		return StateNonGit
	}
	if !info.IsDir() {
		return StateNonGit
	}
	clean, err := exec.StatusPorcelain(ctx, path)
	if err != nil {
		return StateNonGit
	}
	if clean {
		return StateClean
	}
	return StateDirty
}
