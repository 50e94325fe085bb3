// Package ignorefilter answers "is this path ignored" for a repository,
// merging a built-in universal pattern list with the repo's .gitignore
// and any config-supplied patterns.
package ignorefilter

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/memoria-dev/memoria/internal/cache"
)

// universalPatterns covers common artifact directories and binaries
// across ecosystems, applied regardless of what the repo's own
// .gitignore or config declares.
var universalPatterns = []string{
	"node_modules/",
	"vendor/",
	"target/",
	"__pycache__/",
	"dist/",
	"build/",
	".git/",
	".idea/",
	".vscode/",
	"*.log",
	"*.lock",
	".venv/",
	"venv/",
	"bin/",
	"out/",
}

// Filter reports whether a path should be excluded from analysis.
type Filter struct {
	matcher gitignore.Matcher
}

// New builds a Filter for repoRoot, merging the universal list, the
// repo's .gitignore (if present), and extraPatterns (from config) in
// that order. All patterns are parsed with gitignore syntax.
func New(repoRoot string, extraPatterns []string) *Filter {
	var patterns []gitignore.Pattern

	for _, p := range universalPatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	fs := osfs.New(repoRoot)
	if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
		patterns = append(patterns, gitPatterns...)
	}

	for _, p := range extraPatterns {
		patterns = append(patterns, gitignore.ParsePattern(p, nil))
	}

	return &Filter{matcher: gitignore.NewMatcher(patterns)}
}

// IsIgnored reports whether relPath (relative to the repo root,
// slash-normalized) is matched by any merged pattern. isDir indicates
// whether the path refers to a directory.
func (f *Filter) IsIgnored(relPath string, isDir bool) bool {
	normalized := filepath.ToSlash(relPath)
	parts := strings.Split(normalized, "/")
	return f.matcher.Match(parts, isDir)
}

// GetOrBuild returns the Filter for (repoRoot, extraPatterns), building
// and caching it on first use. Keyed on the joined pattern list rather
// than a config digest, since the filter depends on nothing else.
func GetOrBuild(c *cache.Cache, repoRoot string, extraPatterns []string) *Filter {
	key := "ignorefilter:" + repoRoot + ":" + strings.Join(extraPatterns, ",")
	if v, ok := c.Get(key); ok {
		return v.(*Filter)
	}

	f := New(repoRoot, extraPatterns)
	c.Set(key, f)
	return f
}
