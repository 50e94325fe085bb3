// Package coupling implements Engine C: mining co-change frequency between
// a target file and the rest of the repository, with evidence diffs for
// the strongest entries.
package coupling

import (
	"context"
	"math"
	"path/filepath"
	"sort"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/concurrency"
	"github.com/memoria-dev/memoria/internal/diffparse"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/ignorefilter"
	"github.com/memoria-dev/memoria/internal/metrics"
	"github.com/memoria-dev/memoria/pkg/config"
)

// coldStartMinCommits is the minimum history length a file needs before
// coupling analysis runs at all; below this, every co-touched file in
// the initial commit would register as "coupled", which is noise.
const coldStartMinCommits = 3

// maxEntries bounds how many coupled files are ranked and returned.
const maxEntries = 5

// Entry is one coupled file with its supporting evidence.
type Entry struct {
	File     string
	Score    int
	Reason   string // last co-commit subject
	LastHash string
	Evidence diffparse.Summary
}

type accumulator struct {
	count       int
	lastHash    string
	lastMessage string
}

// Run computes the coupling list for relPath. Caching is keyed by
// coupling:<repoRoot>:<path>:<configDigest> so identical relative paths
// in different repositories never share an entry.
func Run(ctx context.Context, g *gitutil.Git, c *cache.Cache, ignore *ignorefilter.Filter, relPath string, cfg *config.Config, thresholds metrics.AdaptiveThresholds) ([]Entry, error) {
	key := "coupling:" + g.RepoRoot() + ":" + relPath + ":" + cfg.Digest()
	if v, ok := c.Get(key); ok {
		return v.([]Entry), nil
	}

	entries, err := compute(ctx, g, c, ignore, relPath, cfg, thresholds)
	if err != nil {
		return nil, err
	}

	c.Set(key, entries)
	return entries, nil
}

func compute(ctx context.Context, g *gitutil.Git, c *cache.Cache, ignore *ignorefilter.Filter, relPath string, cfg *config.Config, thresholds metrics.AdaptiveThresholds) ([]Entry, error) {
	commits, err := g.FileHistory(ctx, relPath, thresholds.AnalysisWindow)
	if err != nil {
		return nil, nil // GitTransient: no history, no coupling, no error surfaced
	}

	if len(commits) < coldStartMinCommits {
		return nil, nil
	}

	targetBase := filepath.Base(relPath)

	type fileList struct {
		files   []string
		hash    string
		message string
	}

	lists, err := concurrency.MapConcurrent(ctx, commits, concurrency.DefaultLimit,
		func(ctx context.Context, commit gitutil.Commit) (fileList, error) {
			files, err := g.NameOnlyFiles(ctx, commit.Hash)
			if err != nil {
				return fileList{}, nil // GitTransient: exclude this commit
			}
			if len(files) > thresholds.MaxFilesPerCommit {
				return fileList{}, nil // bulk-commit filter
			}
			return fileList{files: files, hash: commit.Hash, message: commit.Subject}, nil
		})
	if err != nil {
		return nil, nil
	}

	acc := make(map[string]*accumulator)
	var order []string

	// lists is ordered newest-first (FileHistory's order); the first time
	// a file is seen is therefore its most-recent co-commit.
	for _, l := range lists {
		if l.hash == "" {
			continue
		}
		for _, f := range l.files {
			if f == relPath || filepath.Base(f) == targetBase {
				continue
			}
			if ignore != nil && ignore.IsIgnored(f, false) {
				continue
			}
			a, ok := acc[f]
			if !ok {
				a = &accumulator{lastHash: l.hash, lastMessage: l.message}
				acc[f] = a
				order = append(order, f)
			}
			a.count++
		}
	}

	totalCommits := len(commits)

	sort.SliceStable(order, func(i, j int) bool {
		return acc[order[i]].count > acc[order[j]].count
	})

	if len(order) > maxEntries {
		order = order[:maxEntries]
	}

	var entries []Entry
	for _, f := range order {
		a := acc[f]
		score := int(math.Round((float64(a.count) / float64(totalCommits)) * 100))
		if score <= thresholds.CouplingPercent {
			continue
		}

		summary := diffparse.Summary{}
		if snippet, err := diffparse.GetDiffSnippet(ctx, g, c, f, a.lastHash); err == nil {
			summary = diffparse.Parse(snippet, f)
		}

		entries = append(entries, Entry{
			File:     f,
			Score:    score,
			Reason:   a.lastMessage,
			LastHash: a.lastHash,
			Evidence: summary,
		})
	}

	return entries, nil
}
