// Package historysearch implements the three History Search modes
// (message grep, pickaxe, line-range), each streaming `git log` output,
// deduplicating by commit hash, and fetching per-commit changed files
// with bounded concurrency.
package historysearch

import (
	"context"
	"fmt"
	"sort"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/concurrency"
	"github.com/memoria-dev/memoria/internal/gitutil"
)

// Mode selects which git-log strategy (or combination) to run.
type Mode string

const (
	ModeMessage Mode = "message"
	ModeDiff    Mode = "diff"
	ModeBoth    Mode = "both"
)

// maxFilesPerCommit bounds how many changed files are listed per result.
const maxFilesPerCommit = 5

// DefaultLimit is applied when a caller supplies limit <= 0.
const DefaultLimit = 20

// Query describes one search_history invocation.
type Query struct {
	Text      string
	Path      string // repo-relative; used only by the line-range mode (message and diff modes always search the whole repository)
	Mode      Mode
	Limit     int
	StartLine int // 0 means unset
	EndLine   int // 0 means unset
}

// IsLineRange reports whether either line bound was supplied (a zero
// bound counts as unset; compute clamps the start to 1).
func (q Query) IsLineRange() bool {
	return q.StartLine > 0 || q.EndLine > 0
}

// Result is one matched commit, enriched with the files it touched.
type Result struct {
	Hash         string // 7-char abbreviation
	Date         string // YYYY-MM-DD
	Author       string
	Message      string
	FilesChanged []string
	MatchType    string // "message" or "diff"
}

// Run executes the requested mode(s) and returns deduplicated, date-
// descending results capped at limit. A failure in one mode during
// "both" does not prevent the other mode's results from being returned.
func Run(ctx context.Context, g *gitutil.Git, c *cache.Cache, q Query) ([]Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	key := fmt.Sprintf("history:%s:%s:%s:%s:%d:%d-%d", g.RepoRoot(), q.Text, q.Path, q.Mode, limit, q.StartLine, q.EndLine)
	if v, ok := c.Get(key); ok {
		return v.([]Result), nil
	}

	results, err := compute(ctx, g, q, limit)
	if err != nil {
		return nil, err
	}

	c.Set(key, results)
	return results, nil
}

type tagged struct {
	commit    gitutil.Commit
	matchType string
}

func compute(ctx context.Context, g *gitutil.Git, q Query, limit int) ([]Result, error) {
	startLine := q.StartLine
	if q.IsLineRange() {
		if startLine < 1 {
			startLine = 1
		}
		endLine := q.EndLine
		if endLine < startLine {
			endLine = startLine
		}
		commits, err := g.LogLineRange(ctx, q.Path, startLine, endLine, limit)
		if err != nil {
			return nil, nil // GitTransient: empty result, not an error
		}
		return finalize(ctx, g, taggedAll(commits, "diff"), limit)
	}

	var hits []tagged

	runMessage := q.Mode == ModeMessage || q.Mode == ModeBoth
	runDiff := q.Mode == ModeDiff || q.Mode == ModeBoth

	if runMessage {
		commits, err := g.LogGrep(ctx, q.Text, limit)
		if err == nil {
			hits = append(hits, taggedAll(commits, "message")...)
		}
		// GitTransient on one mode never blocks the other in "both" mode.
	}

	if runDiff {
		commits, err := g.LogPickaxe(ctx, q.Text, limit)
		if err == nil {
			hits = append(hits, taggedAll(commits, "diff")...)
		}
	}

	return finalize(ctx, g, hits, limit)
}

func taggedAll(commits []gitutil.Commit, matchType string) []tagged {
	out := make([]tagged, len(commits))
	for i, c := range commits {
		out[i] = tagged{commit: c, matchType: matchType}
	}
	return out
}

func finalize(ctx context.Context, g *gitutil.Git, items []tagged, limit int) ([]Result, error) {
	seen := make(map[string]bool)
	var deduped []tagged
	for _, t := range items {
		if seen[t.commit.Hash] {
			continue
		}
		seen[t.commit.Hash] = true
		deduped = append(deduped, t)
	}

	results, err := concurrency.MapConcurrent(ctx, deduped, concurrency.DefaultLimit,
		func(ctx context.Context, t tagged) (Result, error) {
			files, err := g.NameOnlyFiles(ctx, t.commit.Hash)
			if err != nil {
				files = nil // GitTransient: report the commit with no file list
			}
			if len(files) > maxFilesPerCommit {
				files = files[:maxFilesPerCommit]
			}
			hash := t.commit.Hash
			if len(hash) > 7 {
				hash = hash[:7]
			}
			return Result{
				Hash:         hash,
				Date:         t.commit.Date.Format("2006-01-02"),
				Author:       t.commit.AuthorName,
				Message:      t.commit.Subject,
				FilesChanged: files,
				MatchType:    t.matchType,
			}, nil
		})
	if err != nil {
		return nil, nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Date > results[j].Date
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
