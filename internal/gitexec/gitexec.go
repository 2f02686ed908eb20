// Package gitexec wraps the external git binary for the operations the
// Bulk Operation Engine and Change Pipeline need (spec.md §4.5): clone,
// pull, status, rev-parse and diff-tree. It never shells out to
// anything other than git, and it never places credentials in a log
// line or an error message.
package gitexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Executor runs git subprocesses rooted at a working directory supplied
// per call.
type Executor struct {
	// Binary overrides the git executable path; empty uses the first
	// "git" found on PATH.
	Binary string
}

// New returns an Executor that looks up git on PATH.
func New() *Executor { return &Executor{} }

func (e *Executor) binary() string {
	if e.Binary != "" {
		return e.Binary
	}
	return "git"
}

// LookPath confirms a git binary is available before any operation runs.
func (e *Executor) LookPath() error {
	if _, err := exec.LookPath(e.binary()); err != nil {
		return mgiterrors.Git.Wrap(mgiterrors.NewGitError(mgiterrors.GitUnknown, "", err))
	}
	return nil
}

func (e *Executor) run(ctx context.Context, dir string, args ...string) (stdout string, err error) {
	cmd := exec.CommandContext(ctx, e.binary(), args...)
	cmd.Dir = dir
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	runErr := cmd.Run()
	if runErr == nil {
		return outBuf.String(), nil
	}
	return outBuf.String(), classify(runErr, errBuf.String())
}

func classify(runErr error, stderr string) error {
	if errors.Is(runErr, context.Canceled) {
		return mgiterrors.Cancelled.Wrap(runErr)
	}
	if errors.Is(runErr, context.DeadlineExceeded) {
		return mgiterrors.Timeout.Wrap(runErr)
	}
	reason := reasonFromStderr(stderr)
	return mgiterrors.NewGitError(reason, strings.TrimSpace(stderr), runErr)
}

func reasonFromStderr(stderr string) mgiterrors.GitReason {
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "not a git repository"):
		return mgiterrors.GitNotARepo
	case strings.Contains(s, "conflict") || strings.Contains(s, "not possible to fast-forward"):
		return mgiterrors.GitMergeConflict
	case strings.Contains(s, "uncommitted") || strings.Contains(s, "local changes"):
		return mgiterrors.GitDirtyWorkingTree
	case strings.Contains(s, "could not read username") ||
		strings.Contains(s, "authentication failed") ||
		strings.Contains(s, "permission denied"):
		return mgiterrors.GitNetworkAuth
	case strings.Contains(s, "does not appear to be a git repository") ||
		strings.Contains(s, "repository not found") ||
		strings.Contains(s, "remote: repository"):
		return mgiterrors.GitRemoteGone
	default:
		return mgiterrors.GitUnknown
	}
}

// Clone clones cloneURL into dir at the given depth (0 means full
// history).
func (e *Executor) Clone(ctx context.Context, cloneURL, dir string, depth int) error {
	args := []string{"clone", "--quiet"}
	if depth > 0 {
		args = append(args, "--depth", strconv.Itoa(depth))
	}
	args = append(args, cloneURL, dir)
	_, err := e.run(ctx, "", args...)
	return err
}

// Pull runs a fast-forward-only pull in dir, failing with
// GitMergeConflict semantics if a merge would be required.
func (e *Executor) Pull(ctx context.Context, dir string) error {
	_, err := e.run(ctx, dir, "pull", "--ff-only", "--quiet")
	return err
}

// StatusPorcelain reports whether dir's working tree is clean.
func (e *Executor) StatusPorcelain(ctx context.Context, dir string) (clean bool, err error) {
	out, err := e.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

// RevParseHEAD returns the current commit hash of dir's HEAD.
func (e *Executor) RevParseHEAD(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns dir's checked-out branch name, or "" when HEAD
// is detached.
func (e *Executor) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "symbolic-ref", "--short", "-q", "HEAD")
	if err != nil {
		var ge *mgiterrors.GitError
		if errors.As(err, &ge) {
			return "", nil // detached HEAD; symbolic-ref exits non-zero
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// DiffTreeEntry is one line of `git diff-tree`'s name-status output.
type DiffTreeEntry struct {
	Status string // "A", "M", "D"
	Path   string
}

// DiffTree lists the files that changed between from and to (from may be
// empty, meaning "the empty tree" — the very first changeset).
func (e *Executor) DiffTree(ctx context.Context, dir, from, to string) ([]DiffTreeEntry, error) {
	// emptyTree is the object id git gives a tree with no entries.
	const emptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"
	if from == "" {
		from = emptyTree
	}
	args := []string{"diff-tree", "--no-commit-id", "--name-status", "-r", from, to}
	out, err := e.run(ctx, dir, args...)
	if err != nil {
		return nil, err
	}
	var entries []DiffTreeEntry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		entries = append(entries, DiffTreeEntry{Status: fields[0], Path: fields[1]})
	}
	return entries, nil
}

// ShowFile returns the raw content of path as of commit.
func (e *Executor) ShowFile(ctx context.Context, dir, commit, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, e.binary(), "show", commit+":"+path)
	cmd.Dir = dir
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, classify(err, errBuf.String())
	}
	return outBuf.Bytes(), nil
}

// RevListCount returns the number of commits reachable from "to" but not
// "from", used for the dry-run change estimate preflight.
func (e *Executor) RevListCount(ctx context.Context, dir, from, to string) (int, error) {
	rangeSpec := to
	if from != "" {
		rangeSpec = from + ".." + to
	}
	out, err := e.run(ctx, dir, "rev-list", "--count", rangeSpec)
	if err != nil {
		return -1, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return -1, nil
	}
	return n, nil
}
