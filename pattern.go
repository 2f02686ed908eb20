package mgit

import "github.com/AeyeOps/mgit/internal/patternlang"

// ParsePattern validates and normalizes a raw org/project/repo pattern
// string per spec.md §4.1.
func ParsePattern(raw string) (PatternSpec, error) {
	p, err := patternlang.Parse(raw)
	if err != nil {
		return PatternSpec{}, err
	}
	return PatternSpec{OrgGlob: p.Org, ProjectGlob: p.Project, RepoGlob: p.Repo, TrimmedSlashes: p.TrimmedSlashes}, nil
}

func (p PatternSpec) toInternal() patternlang.Pattern {
	return patternlang.Pattern{Org: p.OrgGlob, Project: p.ProjectGlob, Repo: p.RepoGlob, TrimmedSlashes: p.TrimmedSlashes}
}

// String renders the pattern back to its canonical org/project/repo form.
func (p PatternSpec) String() string { return p.toInternal().String() }

// IsMultiProvider reports whether any segment of this pattern (org,
// project or repo) contains a '*' or '?' wildcard (spec.md §9).
func (p PatternSpec) IsMultiProvider() bool { return p.toInternal().IsMultiProvider() }

// Matches reports whether org/project/repo satisfy every segment of p.
func (p PatternSpec) Matches(org, project, repo string) bool {
	return p.toInternal().Matches(org, project, repo)
}
