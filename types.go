package mgit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ProviderKind names a supported (or pluggable) hosting provider kind.
type ProviderKind string

const (
	ProviderAzureDevOps ProviderKind = "azuredevops"
	ProviderGitHub      ProviderKind = "github"
	ProviderBitbucket   ProviderKind = "bitbucket"
)

// AuthScheme selects how a driver embeds credentials into a clone URL.
type AuthScheme string

const (
	AuthEmbed AuthScheme = "embed"
	AuthSSH   AuthScheme = "ssh"
	AuthBasic AuthScheme = "basic"
)

// Repository is a value record uniquely identified by the 5-tuple
// (provider_kind, provider_config_name, organization, project?, name).
// Project is present only for providers with a 3-level hierarchy.
type Repository struct {
	ProviderKind ProviderKind
	ConfigName   string
	Organization string
	Project      string // empty for 2-level providers
	Name         string

	CloneURL       string
	DefaultBranch  string
	Disabled       bool
	Private        bool
	SizeHintBytes  int64
	LastActivityAt *time.Time

	// Gone marks a repository the host knows no longer exists upstream
	// (e.g. absent from a fresh resolve against a prior changeset or
	// config), distinct from Disabled (still listed, but archived). Only
	// Gone can route a bulk operation to its destructive delete-local
	// outcome; Disabled never does.
	Gone bool
}

// IdentityKey returns the stable 5-tuple identity key used for
// deduplication and changeset lookups.
func (r Repository) IdentityKey() string {
	return string(r.ProviderKind) + "|" + r.ConfigName + "|" + r.Organization + "|" + r.Project + "|" + r.Name
}

// IdentityHash returns a stable, filesystem-safe hash of IdentityKey,
// used to name the Changeset Store's per-repository files (spec.md §6).
func (r Repository) IdentityHash() string {
	sum := sha256.Sum256([]byte(r.IdentityKey()))
	return hex.EncodeToString(sum[:])
}

// Is3Level reports whether this repository came from a 3-level
// org/project/repo hierarchy.
func (r Repository) Is3Level() bool { return r.Project != "" }

// ProviderConfig is a named, host-resolved configuration for one driver
// instance. Credentials are opaque; they must never be logged or placed
// in an event (spec.md §3) — only Fingerprint() may be.
type ProviderConfig struct {
	Name           string       `validate:"required"`
	Kind           ProviderKind `validate:"required,oneof=azuredevops github bitbucket"`
	BaseURL        string
	Credential     []byte `validate:"required"`
	RateLimitRPS   float64
	RateLimitBurst int
	DefaultOrg     string
}

// Fingerprint returns a short, non-reversible identifier for the
// credential material, safe to place in logs or events.
func (c ProviderConfig) Fingerprint() string {
	if len(c.Credential) == 0 {
		return ""
	}
	sum := sha256.Sum256(c.Credential)
	return hex.EncodeToString(sum[:])[:12]
}

// PatternSpec is a normalized three-segment glob: org/project/repo.
type PatternSpec struct {
	OrgGlob     string
	ProjectGlob string
	RepoGlob    string

	// TrimmedSlashes records that the input had a leading and/or
	// trailing '/' which was accepted with a warning (spec.md §4.1).
	TrimmedSlashes bool
}

// Changeset is the persisted per-repository anchor used to compute
// incremental diffs (spec.md §3).
type Changeset struct {
	RepoKey    string
	Commit     string
	Parent     string // empty for the first changeset of a repository
	Branch     string
	RecordedAt time.Time
}

// ChangeOp enumerates the file-level operation kinds in a ChangeRecord.
type ChangeOp string

const (
	ChangeAdd    ChangeOp = "add"
	ChangeModify ChangeOp = "modify"
	ChangeDelete ChangeOp = "delete"
)

// ChangeRecord is one line of the output stream: either a file operation
// or (exactly once per repository) a completion marker.
type ChangeRecord struct {
	Repo string `json:"repo"`

	// File operation fields (omitted on a completion marker).
	Op            ChangeOp `json:"op,omitempty"`
	Path          string   `json:"path,omitempty"`
	Size          *int64   `json:"size,omitempty"`
	Mime          string   `json:"mime,omitempty"`
	Content       string   `json:"content,omitempty"`
	ContentBase64 string   `json:"content_base64,omitempty"`
	ContentRef    string   `json:"content_ref,omitempty"`
	SkipIndex     bool     `json:"skip_index,omitempty"`

	// Completion marker field (present only on the final record of a
	// repository's stream).
	NewChangeset *ChangesetWire `json:"new_changeset,omitempty"`
}

// ChangesetWire is the wire shape of a Changeset inside a completion
// marker ChangeRecord.
type ChangesetWire struct {
	Commit string `json:"commit"`
	Parent string `json:"parent,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// IsCompletionMarker reports whether r is the per-repository completion
// marker rather than a file operation.
func (r ChangeRecord) IsCompletionMarker() bool { return r.NewChangeset != nil }

// BulkAction is the per-repository decision made by the Bulk Operation
// Engine's decision table (spec.md §4.6).
type BulkAction string

const (
	ActionClone           BulkAction = "clone"
	ActionPull            BulkAction = "pull"
	ActionSkip            BulkAction = "skip"
	ActionForceReclone    BulkAction = "force_reclone"
	ActionWarnDeleteLocal BulkAction = "warn_delete_local"
)

// OperationPlan is the per-repository decision produced by the Bulk
// Operation Engine for the duration of one run.
type OperationPlan struct {
	Repo                   Repository
	Action                 BulkAction
	Reason                 string
	ExpectedChangeEstimate int // -1 when unknown (best-effort preflight failed)
}

// ProgressPhase enumerates the lifecycle phases reported on a
// ProgressEvent.
type ProgressPhase string

const (
	PhaseDiscover ProgressPhase = "discover"
	PhasePlan     ProgressPhase = "plan"
	PhaseExecute  ProgressPhase = "execute"
	PhaseComplete ProgressPhase = "complete"
	PhaseError    ProgressPhase = "error"
)

// ProgressEvent is the uniform progress/event type carried by EventBus
// (spec.md §3, §4.9). Bulk, Plan and ChangePipeline do not publish
// ProgressEvents themselves.
type ProgressEvent struct {
	RunID     string
	RepoKey   string
	Phase     ProgressPhase
	Status    string
	Detail    string
	Counts    map[string]int
	ElapsedMS int64
	At        time.Time
}
