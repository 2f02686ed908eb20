package mgit

import (
	"context"

	"github.com/AeyeOps/mgit/internal/changepipe"
	"github.com/AeyeOps/mgit/internal/gitexec"
)

// ValidationLevel controls how strictly a diff entry's metadata is
// checked before being emitted (spec.md §4.8).
type ValidationLevel = changepipe.ValidationLevel

const (
	ValidationBasic    = changepipe.ValidationBasic
	ValidationStandard = changepipe.ValidationStandard
	ValidationStrict   = changepipe.ValidationStrict
)

// RecoveryStrategy decides what happens when a single file in the diff
// cannot be read or classified.
type RecoveryStrategy = changepipe.RecoveryStrategy

const (
	RecoveryIgnore   = changepipe.RecoveryIgnore
	RecoveryRepair   = changepipe.RecoveryRepair
	RecoveryFallback = changepipe.RecoveryFallback
	RecoveryAbort    = changepipe.RecoveryAbort
)

// ContentRefWriter persists oversized file content out-of-band.
type ContentRefWriter = changepipe.ContentRefWriter

// LocalContentRefStore is the simplest ContentRefWriter: it writes
// oversized blobs to files under a local directory.
type LocalContentRefStore = changepipe.LocalContentRefStore

// ChangePipelineOptions configures one Diff call.
type ChangePipelineOptions struct {
	FromCommit string
	ToCommit   string
	Branch     string
	Validation ValidationLevel
	Recovery   RecoveryStrategy
	Compress   bool
	RefWriter  ContentRefWriter
}

// ChangePipeline diffs repo's working tree at dir between FromCommit and
// ToCommit and calls emit for each resulting ChangeRecord, in the
// guaranteed ordering: adds/modifies path-sorted, then deletes
// path-sorted, then exactly one completion marker (spec.md §4.8).
func ChangePipeline(ctx context.Context, repo Repository, dir string, opts ChangePipelineOptions, emit func(ChangeRecord) error) error {
	exec := gitexec.New()
	return changepipe.Diff(ctx, exec, changepipe.Options{
		Repo:       repo.IdentityKey(),
		Dir:        dir,
		FromCommit: opts.FromCommit,
		ToCommit:   opts.ToCommit,
		Branch:     opts.Branch,
		Validation: opts.Validation,
		Recovery:   opts.Recovery,
		Compress:   opts.Compress,
		RefWriter:  opts.RefWriter,
	}, func(r changepipe.Record) error {
		return emit(toChangeRecord(r))
	})
}

func toChangeRecord(r changepipe.Record) ChangeRecord {
	cr := ChangeRecord{
		Repo:          r.Repo,
		Op:            ChangeOp(r.Op),
		Path:          r.Path,
		Size:          r.Size,
		Mime:          r.Mime,
		Content:       r.Content,
		ContentBase64: r.ContentBase64,
		ContentRef:    r.ContentRef,
		SkipIndex:     r.SkipIndex,
	}
	if r.NewAnchor != nil {
		cr.NewChangeset = &ChangesetWire{Commit: r.NewAnchor.Commit, Parent: r.NewAnchor.Parent, Branch: r.NewAnchor.Branch}
	}
	return cr
}
