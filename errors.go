package mgit

import "github.com/AeyeOps/mgit/internal/mgiterrors"

// Code re-exports the stable machine-readable failure code taxonomy
// (spec.md §7) for host code that needs to branch on it without
// importing an internal package.
type Code = mgiterrors.Code

const (
	CodeUnconfigured              = mgiterrors.CodeUnconfigured
	CodeUnknownProvider           = mgiterrors.CodeUnknownProvider
	CodeForceConfirmationRequired = mgiterrors.CodeForceConfirmationRequired
	CodeInvalidPattern            = mgiterrors.CodeInvalidPattern
	CodeAuthFailed                = mgiterrors.CodeAuthFailed
	CodeNetwork                   = mgiterrors.CodeNetwork
	CodeRateLimited                = mgiterrors.CodeRateLimited
	CodeProviderSchema            = mgiterrors.CodeProviderSchema
	CodeStorage                   = mgiterrors.CodeStorage
	CodeValidation                = mgiterrors.CodeValidation
	CodeCancelled                 = mgiterrors.CodeCancelled
	CodeTimeout                   = mgiterrors.CodeTimeout
	CodeGit                       = mgiterrors.CodeGit
	CodeUnsupportedAuthScheme     = mgiterrors.CodeUnsupportedAuthScheme
)

// AsCode extracts the stable Code and human-readable reason from err, if
// err was constructed by mgit's error taxonomy.
func AsCode(err error) (code Code, reason string, ok bool) {
	return mgiterrors.AsCoded(err)
}

// GitReason re-exports the git-specific sub-taxonomy for callers that
// need to distinguish, for example, a dirty working tree from a missing
// remote.
type GitReason = mgiterrors.GitReason

const (
	GitNotARepo         = mgiterrors.GitNotARepo
	GitDirtyWorkingTree = mgiterrors.GitDirtyWorkingTree
	GitMergeConflict    = mgiterrors.GitMergeConflict
	GitNetworkAuth      = mgiterrors.GitNetworkAuth
	GitRemoteGone       = mgiterrors.GitRemoteGone
	GitUnknown          = mgiterrors.GitUnknown
)
