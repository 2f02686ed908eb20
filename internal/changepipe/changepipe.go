// Package changepipe implements the Change Pipeline (spec.md §4.8):
// diffing a local working tree against a persisted changeset anchor and
// streaming ChangeRecord-shaped JSON lines with tiered content
// embedding.
package changepipe

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gabriel-vasile/mimetype"
	kgzip "github.com/klauspost/compress/gzip"

	"github.com/AeyeOps/mgit/internal/gitexec"
	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// Tier boundaries from spec.md §4.8: inline text/base64 up to 10KB,
// base64 up to 100KB, content_ref beyond that.
const (
	InlineThreshold  = 10 * 1024
	Base64Threshold  = 100 * 1024
)

// ValidationLevel controls how strictly a diff entry's metadata is
// checked before being emitted.
type ValidationLevel string

const (
	ValidationBasic    ValidationLevel = "basic"
	ValidationStandard ValidationLevel = "standard"
	ValidationStrict   ValidationLevel = "strict"
)

// RecoveryStrategy decides what happens when a single file in the diff
// cannot be read or classified.
type RecoveryStrategy string

const (
	RecoveryIgnore   RecoveryStrategy = "ignore"
	RecoveryRepair   RecoveryStrategy = "repair"
	RecoveryFallback RecoveryStrategy = "fallback"
	RecoveryAbort    RecoveryStrategy = "abort"
)

// Op mirrors mgit.ChangeOp without importing the root package, keeping
// internal/ dependency-free of mgit.
type Op string

const (
	OpAdd    Op = "add"
	OpModify Op = "modify"
	OpDelete Op = "delete"
)

// Record is one emitted line: either a file operation or, as the final
// line for a repository, a completion marker carrying the new anchor.
type Record struct {
	Repo          string         `json:"repo"`
	Op            Op             `json:"op,omitempty"`
	Path          string         `json:"path,omitempty"`
	Size          *int64         `json:"size,omitempty"`
	Mime          string         `json:"mime,omitempty"`
	Content       string         `json:"content,omitempty"`
	ContentBase64 string         `json:"content_base64,omitempty"`
	ContentRef    string         `json:"content_ref,omitempty"`
	SkipIndex     bool           `json:"skip_index,omitempty"`
	Compressed    string         `json:"compressed,omitempty"` // declared compression scheme, e.g. "gzip"
	NewAnchor     *AnchorWire    `json:"new_changeset,omitempty"`
}

// AnchorWire is the completion-marker payload.
type AnchorWire struct {
	Commit string `json:"commit"`
	Parent string `json:"parent,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// ContentRefWriter persists oversized file content out-of-band and
// returns an opaque reference the caller can resolve later. mgit never
// decides where large blobs live; the host supplies this.
type ContentRefWriter interface {
	WriteContentRef(ctx context.Context, repo, path string, content []byte) (ref string, err error)
}

// Options configures one Diff call.
type Options struct {
	Repo             string
	Dir              string
	FromCommit       string // empty: diff from the empty tree (first changeset)
	ToCommit         string
	Branch           string
	Validation       ValidationLevel
	Recovery         RecoveryStrategy
	Compress         bool
	RefWriter        ContentRefWriter // required only if any file exceeds Base64Threshold
}

// Diff streams Records for emit(rec) to consume, in the guaranteed
// ordering: adds/modifies path-sorted, then deletes path-sorted, then
// exactly one completion marker (spec.md §4.8).
func Diff(ctx context.Context, exec *gitexec.Executor, opts Options, emit func(Record) error) error {
	entries, err := exec.DiffTree(ctx, opts.Dir, opts.FromCommit, opts.ToCommit)
	if err != nil {
		return err
	}

	var upserts, deletes []gitexec.DiffTreeEntry
	for _, e := range entries {
		switch e.Status {
		case "A", "M":
			upserts = append(upserts, e)
		case "D":
			deletes = append(deletes, e)
		}
	}
	sort.Slice(upserts, func(i, j int) bool { return upserts[i].Path < upserts[j].Path })
	sort.Slice(deletes, func(i, j int) bool { return deletes[i].Path < deletes[j].Path })

	for _, e := range upserts {
		rec, buildErr := buildUpsertRecord(ctx, exec, opts, e)
		if buildErr != nil {
			recovered, ok, recErr := recover_(opts, e.Path, buildErr)
			if recErr != nil {
				return recErr
			}
			if !ok {
				continue
			}
			rec = recovered
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	for _, e := range deletes {
		rec := Record{Repo: opts.Repo, Op: OpDelete, Path: e.Path}
		if err := validate(opts.Validation, rec); err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}

	marker := Record{
		Repo: opts.Repo,
		NewAnchor: &AnchorWire{Commit: opts.ToCommit, Parent: opts.FromCommit, Branch: opts.Branch},
	}
	return emit(marker)
}

func buildUpsertRecord(ctx context.Context, exec *gitexec.Executor, opts Options, e gitexec.DiffTreeEntry) (Record, error) {
	content, err := exec.ShowFile(ctx, opts.Dir, opts.ToCommit, e.Path)
	if err != nil {
		return Record{}, err
	}
	op := OpModify
	if e.Status == "A" {
		op = OpAdd
	}
	rec := Record{Repo: opts.Repo, Op: op, Path: e.Path}
	size := int64(len(content))
	rec.Size = &size

	mtype := detectMime(e.Path, content)
	rec.Mime = mtype.String()

	if isBinary(mtype) {
		rec.SkipIndex = true
		if err := validate(opts.Validation, rec); err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	payload := content
	if opts.Compress && len(payload) > InlineThreshold {
		compressed, err := gzipCompress(payload)
		if err == nil && len(compressed) < len(payload) {
			payload = compressed
			rec.Compressed = "gzip"
		}
	}

	switch {
	case len(payload) <= InlineThreshold && rec.Compressed == "":
		rec.Content = string(payload)
	case len(payload) <= Base64Threshold:
		rec.ContentBase64 = base64.StdEncoding.EncodeToString(payload)
	default:
		if opts.RefWriter == nil {
			return Record{}, mgiterrors.WithCode(mgiterrors.CodeStorage,
				fmt.Sprintf("file %s exceeds %d bytes and no content ref writer was configured", e.Path, Base64Threshold),
				mgiterrors.Storage.New("missing content ref writer"))
		}
		ref, err := opts.RefWriter.WriteContentRef(ctx, opts.Repo, e.Path, content)
		if err != nil {
			return Record{}, mgiterrors.Storage.Wrap(fmt.Errorf("write content ref for %s: %w", e.Path, err))
		}
		rec.ContentRef = ref
	}

	if err := validate(opts.Validation, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func detectMime(path string, content []byte) *mimetype.MIME {
	if ext := filepath.Ext(path); ext != "" {
		if m := mimetype.Lookup(extToMime(ext)); m != nil {
			return m
		}
	}
	return mimetype.Detect(content)
}

// extToMime maps a handful of common suffixes to a declared MIME type
// before falling back to magic-byte sniffing, matching the "suffix fast
// path, then probe" order from spec.md §4.8.
func extToMime(ext string) string {
	switch ext {
	case ".go":
		return "text/x-go"
	case ".md":
		return "text/markdown"
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".txt":
		return "text/plain"
	default:
		return ""
	}
}

func isBinary(m *mimetype.MIME) bool {
	for mm := m; mm != nil; mm = mm.Parent() {
		if mm.Is("text/plain") {
			return false
		}
	}
	return true
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := kgzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func validate(level ValidationLevel, rec Record) error {
	switch level {
	case "", ValidationBasic:
		if rec.Path == "" {
			return mgiterrors.WithCode(mgiterrors.CodeValidation, "change record missing path",
				mgiterrors.Validation.New("empty path"))
		}
	case ValidationStandard:
		if rec.Path == "" || (rec.Op != OpDelete && rec.Mime == "") {
			return mgiterrors.WithCode(mgiterrors.CodeValidation, "change record missing required metadata",
				mgiterrors.Validation.New("path=%q mime=%q", rec.Path, rec.Mime))
		}
	case ValidationStrict:
		if rec.Path == "" || (rec.Op != OpDelete && rec.Mime == "") {
			return mgiterrors.WithCode(mgiterrors.CodeValidation, "change record missing required metadata",
				mgiterrors.Validation.New("path=%q mime=%q", rec.Path, rec.Mime))
		}
		if rec.Op != OpDelete && !rec.SkipIndex && rec.Content == "" && rec.ContentBase64 == "" && rec.ContentRef == "" {
			return mgiterrors.WithCode(mgiterrors.CodeValidation, "change record has no content in any tier",
				mgiterrors.Validation.New("path=%q", rec.Path))
		}
	}
	return nil
}

func recover_(opts Options, path string, cause error) (Record, bool, error) {
	switch opts.Recovery {
	case RecoveryIgnore:
		return Record{}, false, nil
	case RecoveryFallback:
		return Record{Repo: opts.Repo, Op: OpModify, Path: path, SkipIndex: true}, true, nil
	case RecoveryRepair:
		// best-effort: treat as fallback (binary placeholder) with a
		// generic octet-stream mime; the original error is not recorded
		return Record{Repo: opts.Repo, Op: OpModify, Path: path, SkipIndex: true, Mime: "application/octet-stream"}, true, nil
	case RecoveryAbort, "":
		return Record{}, false, mgiterrors.WithCode(mgiterrors.CodeValidation,
			fmt.Sprintf("failed to read %s: %v", path, cause), cause)
	default:
		return Record{}, false, mgiterrors.WithCode(mgiterrors.CodeValidation,
			fmt.Sprintf("unknown recovery strategy %q", opts.Recovery), cause)
	}
}

// WriteLineDelimitedJSON is a convenience ContentRefWriter-free sink
// that serializes records to w as NDJSON, the default wire format
// (spec.md §6).
func WriteLineDelimitedJSON(w io.Writer) func(Record) error {
	enc := json.NewEncoder(w)
	return func(r Record) error {
		return enc.Encode(r)
	}
}

// LocalContentRefStore writes oversized blobs to files under dir and
// returns a file:// reference, the simplest ContentRefWriter a host can
// plug in without standing up object storage.
type LocalContentRefStore struct {
	Dir string
}

func (l *LocalContentRefStore) WriteContentRef(ctx context.Context, repo, path string, content []byte) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", err
	}
	safe := sanitizeRefName(repo + "_" + path)
	full := filepath.Join(l.Dir, safe)
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", err
	}
	return "file://" + full, nil
}

func sanitizeRefName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
