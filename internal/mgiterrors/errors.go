// Package mgiterrors implements the error taxonomy shared by every mgit
// component (spec §7). Each class wraps github.com/zeebo/errs so callers
// can test membership with errors.Is/errs.Is against a stable class value
// instead of matching on message text.
package mgiterrors

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

// Class names match the taxonomy from spec.md §7 exactly.
var (
	Config          = errs.Class("config")
	Auth            = errs.Class("auth")
	Network         = errs.Class("network")
	RateLimited     = errs.Class("rate_limited")
	ProviderSchema  = errs.Class("provider_schema")
	Pattern         = errs.Class("pattern")
	Git             = errs.Class("git")
	Storage         = errs.Class("storage")
	Validation      = errs.Class("validation")
	Cancelled       = errs.Class("cancelled")
	Timeout         = errs.Class("timeout")
)

// GitReason enumerates the GitError sub-taxonomy from spec.md §4.5/§7.
type GitReason string

const (
	GitNotARepo         GitReason = "not_a_git_repo"
	GitDirtyWorkingTree GitReason = "dirty_working_tree"
	GitMergeConflict    GitReason = "merge_conflict"
	GitNetworkAuth      GitReason = "network_auth"
	GitRemoteGone       GitReason = "remote_gone"
	GitUnknown          GitReason = "unknown"
)

// GitError carries a sub-reason alongside the Git error class so callers
// can switch on Reason without parsing the message.
type GitError struct {
	Reason GitReason
	Stderr string
	err    error
}

func (e *GitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("git: %s: %s", e.Reason, e.Stderr)
	}
	return fmt.Sprintf("git: %s", e.Reason)
}

func (e *GitError) Unwrap() error { return e.err }

// NewGitError builds a GitError wrapped in the Git class so
// errs.Is(err, Git) reports true for any git-taxonomy failure.
func NewGitError(reason GitReason, stderr string, cause error) error {
	ge := &GitError{Reason: reason, Stderr: stderr, err: cause}
	return Git.Wrap(ge)
}

// Code is a stable machine-readable identifier attached to host-facing
// failures, independent of the human-readable reason string (spec §7:
// "every failure carries a one-line human reason and a stable machine
// code").
type Code string

const (
	CodeUnconfigured              Code = "config.unconfigured"
	CodeUnknownProvider           Code = "config.unknown_provider"
	CodeForceConfirmationRequired Code = "config.force_confirmation_required"
	CodeInvalidPattern            Code = "pattern.invalid"
	CodeAuthFailed                Code = "auth.failed"
	CodeNetwork                   Code = "network.error"
	CodeRateLimited               Code = "rate_limited"
	CodeProviderSchema            Code = "provider_schema.error"
	CodeStorage                   Code = "storage.error"
	CodeValidation                Code = "validation.error"
	CodeCancelled                 Code = "cancelled"
	CodeTimeout                   Code = "timeout"
	CodeGit                       Code = "git.error"
	CodeUnsupportedAuthScheme     Code = "provider.unsupported_auth_scheme"
)

// CodedError pairs a stable Code with a one-line human Reason. Credentials
// must never be interpolated into Reason; call sites redact before
// constructing one (spec §7).
type CodedError struct {
	Code   Code
	Reason string
	err    error
}

func (e *CodedError) Error() string { return e.Reason }
func (e *CodedError) Unwrap() error { return e.err }

// WithCode wraps err (already a Class-tagged error) with a stable Code and
// a redacted human reason.
func WithCode(code Code, reason string, err error) error {
	return &CodedError{Code: code, Reason: reason, err: err}
}

// AsCoded extracts the Code from err if present, defaulting to "" when
// err was not constructed through WithCode.
func AsCoded(err error) (Code, string, bool) {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code, ce.Reason, true
	}
	return "", "", false
}
