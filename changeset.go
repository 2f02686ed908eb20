package mgit

import (
	"context"

	"github.com/AeyeOps/mgit/internal/changeset"
)

// ChangesetStore persists per-repository diff anchors (spec.md §4.7).
type ChangesetStore struct {
	inner *changeset.Store
}

// OpenChangesetStore opens (creating if needed) a changeset store rooted
// at dir.
func OpenChangesetStore(dir string) (*ChangesetStore, error) {
	s, err := changeset.Open(dir)
	if err != nil {
		return nil, err
	}
	return &ChangesetStore{inner: s}, nil
}

// Close releases the store's manifest database handle.
func (s *ChangesetStore) Close() error { return s.inner.Close() }

// Get returns the anchor for repo, or (Changeset{}, false, nil) when
// none has been recorded yet.
func (s *ChangesetStore) Get(ctx context.Context, repo Repository) (Changeset, bool, error) {
	rec, ok, err := s.inner.Get(ctx, repo.IdentityHash(), repo.IdentityKey())
	if err != nil || !ok {
		return Changeset{}, ok, err
	}
	return Changeset{RepoKey: rec.RepoKey, Commit: rec.Commit, Parent: rec.Parent, Branch: rec.Branch, RecordedAt: rec.RecordedAt}, true, nil
}

// PutAtomic persists cs as the new anchor for repo.
func (s *ChangesetStore) PutAtomic(ctx context.Context, repo Repository, cs Changeset) error {
	return s.inner.PutAtomic(ctx, repo.IdentityHash(), changeset.Record{
		RepoKey: cs.RepoKey, Commit: cs.Commit, Parent: cs.Parent, Branch: cs.Branch, RecordedAt: cs.RecordedAt,
	})
}

// Delete removes the anchor for repo, tolerating an already-absent
// record.
func (s *ChangesetStore) Delete(ctx context.Context, repo Repository) error {
	return s.inner.Delete(ctx, repo.IdentityHash())
}

// Iterate calls fn for every (identityHash, repoKey) pair in the store.
func (s *ChangesetStore) Iterate(ctx context.Context, fn func(identityHash, repoKey string) bool) error {
	return s.inner.Iterate(ctx, fn)
}

// Inconsistency names one way the manifest and the on-disk records have
// drifted (SPEC_FULL.md consistency-check supplement).
type Inconsistency struct {
	IdentityHash string
	Kind         string
	Detail       string
}

// Verify cross-checks the manifest against the on-disk records.
func (s *ChangesetStore) Verify(ctx context.Context) ([]Inconsistency, error) {
	raw, err := s.inner.Verify(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Inconsistency, len(raw))
	for i, p := range raw {
		out[i] = Inconsistency{IdentityHash: p.IdentityHash, Kind: p.Kind, Detail: p.Detail}
	}
	return out, nil
}
