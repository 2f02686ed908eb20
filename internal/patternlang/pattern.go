// Package patternlang implements the three-segment repository pattern
// language (org/project/repo) used by the resolver to select repositories
// across one or more providers.
package patternlang

import (
	"strings"

	"github.com/AeyeOps/mgit/internal/mgiterrors"
)

// InvalidPatternReason names why Parse rejected a pattern string.
type InvalidPatternReason string

const (
	ReasonSegmentCount InvalidPatternReason = "segment_count"
	ReasonEmptySegment InvalidPatternReason = "empty_segment"
)

// Pattern is a parsed three-segment glob: org/project/repo. Callers
// targeting a 2-level provider hierarchy write "*" for the project
// segment explicitly (spec.md §4.1).
type Pattern struct {
	Org     string
	Project string
	Repo    string

	// TrimmedSlashes records that the raw input had a leading and/or
	// trailing '/', accepted with a warning rather than rejected.
	TrimmedSlashes bool
}

// Parse validates and normalizes a raw pattern string into a Pattern.
//
// A pattern must have exactly three '/'-separated segments
// (org/project/repo), each non-empty after trimming a leading and/or
// trailing '/' (spec.md §4.1). Fewer or more than three segments is
// rejected with ReasonSegmentCount.
func Parse(raw string) (Pattern, error) {
	trimmed := raw
	var trimmedSlashes bool
	for strings.HasPrefix(trimmed, "/") || strings.HasSuffix(trimmed, "/") {
		trimmed = strings.Trim(trimmed, "/")
		trimmedSlashes = true
	}

	if trimmed == "" {
		return Pattern{}, invalid(ReasonEmptySegment, raw, "pattern is empty")
	}

	segs := strings.Split(trimmed, "/")
	if len(segs) != 3 {
		return Pattern{}, invalid(ReasonSegmentCount, raw, "exactly 3 segments (org/project/repo) are required")
	}
	for _, s := range segs {
		if s == "" {
			return Pattern{}, invalid(ReasonEmptySegment, raw, "segments may not be empty")
		}
	}

	return Pattern{
		Org:            segs[0],
		Project:        segs[1],
		Repo:           segs[2],
		TrimmedSlashes: trimmedSlashes,
	}, nil
}

func invalid(reason InvalidPatternReason, raw, msg string) error {
	err := mgiterrors.Pattern.New("invalid pattern %q (%s): %s", raw, reason, msg)
	return mgiterrors.WithCode(mgiterrors.CodeInvalidPattern, msg, err)
}

// IsMultiProvider reports whether any segment of the pattern contains a
// wildcard. A pattern that is wildcard-free in org/project/repo can
// only ever name repositories under one provider's default config, so
// checking the org segment alone is not sufficient (spec.md §9,
// testable invariant 3).
func (p Pattern) IsMultiProvider() bool {
	return containsWildcard(p.Org) || containsWildcard(p.Project) || containsWildcard(p.Repo)
}

func containsWildcard(seg string) bool {
	return strings.ContainsAny(seg, "*?")
}

// String renders the pattern back to its canonical org/project/repo form.
// parse(render(p)) == p is a documented round-trip invariant.
func (p Pattern) String() string {
	return p.Org + "/" + p.Project + "/" + p.Repo
}

// Matches reports whether org, project and repo (raw, non-glob strings)
// satisfy every segment of p. project may be empty for a 2-level
// provider; an empty project only matches a "*" project glob.
func (p Pattern) Matches(org, project, repo string) bool {
	if !segmentMatch(p.Org, org) {
		return false
	}
	if project == "" {
		if p.Project != "*" {
			return false
		}
	} else if !segmentMatch(p.Project, project) {
		return false
	}
	return segmentMatch(p.Repo, repo)
}

// segmentMatch implements glob matching within a single path segment:
// '*' matches zero or more non-'/' characters (segments never contain
// '/' by construction) and '?' matches exactly one character. Matching
// is case-insensitive (spec.md §4.1).
func segmentMatch(glob, s string) bool {
	return matchHere(strings.ToLower(glob), strings.ToLower(s))
}

func matchHere(glob, s string) bool {
	for len(glob) > 0 {
		switch glob[0] {
		case '*':
			// Collapse consecutive '*' and try every possible split.
			for len(glob) > 0 && glob[0] == '*' {
				glob = glob[1:]
			}
			if len(glob) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if matchHere(glob, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			glob = glob[1:]
			s = s[1:]
		default:
			if len(s) == 0 || s[0] != glob[0] {
				return false
			}
			glob = glob[1:]
			s = s[1:]
		}
	}
	return len(s) == 0
}
