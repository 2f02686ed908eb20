// Package changeset implements the Changeset Store (spec.md §4.7): a
// file-per-repository-identity JSON record of the last diffed commit,
// persisted with atomic rename, plus a boltdb-backed manifest for fast
// existence/iteration queries without a directory walk.
package changeset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/boltdb/bolt"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Record is the persisted anchor for one repository identity.
type Record struct {
	RepoKey    string    `json:"repo_key"`
	Commit     string    `json:"commit"`
	Parent     string    `json:"parent,omitempty"`
	Branch     string    `json:"branch,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

var manifestBucket = []byte("changesets")

// Store persists one Record per repository identity hash under dir, and
// mirrors repo_key -> hash into a boltdb manifest so Iterate and Verify
// don't need to stat every file.
type Store struct {
	mu   sync.Mutex
	dir  string
	db   *bolt.DB
}

// Open creates dir if needed and opens (or creates) its manifest.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, mgiterrors.Storage.Wrap(fmt.Errorf("changeset: create store dir: %w", err))
	}
	db, err := bolt.Open(filepath.Join(dir, "manifest.db"), 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, mgiterrors.Storage.Wrap(fmt.Errorf("changeset: open manifest: %w", err))
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(manifestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, mgiterrors.Storage.Wrap(fmt.Errorf("changeset: init manifest bucket: %w", err))
	}
	return &Store{dir: dir, db: db}, nil
}

// Close releases the manifest database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash+".json")
}

// Get returns the anchor for repoKey, or (Record{}, false, nil) when
// none has been recorded yet.
func (s *Store) Get(ctx context.Context, identityHash, repoKey string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(identityHash))
	if os.IsNotExist(err) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, mgiterrors.Storage.Wrap(err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, mgiterrors.Storage.Wrap(fmt.Errorf("changeset: corrupt record for %s: %w", repoKey, err))
	}
	return rec, true, nil
}

// PutAtomic writes rec for identityHash via write-to-temp-then-rename,
// and updates the manifest in the same call so the two never drift for
// longer than a single PutAtomic invocation.
func (s *Store) PutAtomic(ctx context.Context, identityHash string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return mgiterrors.Storage.Wrap(err)
	}
	final := s.path(identityHash)
	tmp := final + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return mgiterrors.Storage.Wrap(err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return mgiterrors.Storage.Wrap(err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestBucket).Put([]byte(identityHash), []byte(rec.RepoKey))
	})
	if err != nil {
		return mgiterrors.Storage.Wrap(fmt.Errorf("changeset: update manifest: %w", err))
	}
	return nil
}

// Delete removes the anchor for identityHash, tolerating an
// already-absent record.
func (s *Store) Delete(ctx context.Context, identityHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(identityHash)); err != nil && !os.IsNotExist(err) {
		return mgiterrors.Storage.Wrap(err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestBucket).Delete([]byte(identityHash))
	})
}

// Iterate calls fn for every (identityHash, repoKey) pair in the
// manifest, in key order, stopping early if fn returns false.
func (s *Store) Iterate(ctx context.Context, fn func(identityHash, repoKey string) bool) error {
	return s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(manifestBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(string(k), string(v)) {
				break
			}
		}
		return nil
	})
}

// Inconsistency names one way the manifest and the on-disk records have
// drifted.
type Inconsistency struct {
	IdentityHash string
	Kind         string // "missing_file", "corrupt_file", "orphan_file"
	Detail       string
}

// Verify cross-checks the manifest against the on-disk .json files,
// the SPEC_FULL.md consistency-check supplement: it is safe to run
// concurrently with normal Store use since it only takes read locks.
func (s *Store) Verify(ctx context.Context) ([]Inconsistency, error) {
	var problems []Inconsistency
	known := make(map[string]struct{})

	err := s.Iterate(ctx, func(identityHash, repoKey string) bool {
		known[identityHash] = struct{}{}
		data, err := os.ReadFile(s.path(identityHash))
		if os.IsNotExist(err) {
			problems = append(problems, Inconsistency{IdentityHash: identityHash, Kind: "missing_file", Detail: repoKey})
			return true
		}
		if err != nil {
			problems = append(problems, Inconsistency{IdentityHash: identityHash, Kind: "corrupt_file", Detail: err.Error()})
			return true
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			problems = append(problems, Inconsistency{IdentityHash: identityHash, Kind: "corrupt_file", Detail: err.Error()})
		}
		return true
	})
	if err != nil {
		return nil, mgiterrors.Storage.Wrap(err)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, mgiterrors.Storage.Wrap(err)
	}
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		hash := name[:len(name)-len(".json")]
		if _, ok := known[hash]; !ok {
			problems = append(problems, Inconsistency{IdentityHash: hash, Kind: "orphan_file", Detail: name})
		}
	}
	return problems, nil
}
