// Package forensics is the public entry point for the Repository
// Forensics Engine: AnalyzeFile and SearchHistory. Everything else in
// this module is an implementation detail reachable only through these
// two operations.
package forensics

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/engine/coupling"
	"github.com/memoria-dev/memoria/internal/engine/drift"
	"github.com/memoria-dev/memoria/internal/engine/importers"
	"github.com/memoria-dev/memoria/internal/engine/sibling"
	"github.com/memoria-dev/memoria/internal/engine/volatility"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/historysearch"
	"github.com/memoria-dev/memoria/internal/report"
	"github.com/memoria-dev/memoria/internal/reqcontext"
	"github.com/memoria-dev/memoria/internal/risk"
	"github.com/memoria-dev/memoria/internal/vcs"
)

// ErrInvalidQuery means SearchHistory's preconditions on query/path/line
// range were not satisfied.
var ErrInvalidQuery = errors.New("invalid search query")

// processCache is the engine's single process-wide cache instance, the
// only shared mutable state in the engine. Tests that need isolation
// construct their own via the internal packages directly rather than
// through this package-level default.
var processCache = cache.New()

// AnalyzeFile produces the forensic Markdown brief for the file at
// absolutePath. absolutePath must exist and be inside a Git work tree;
// violating either precondition returns ErrNotFound or ErrNotARepository
// respectively, wrapped with the offending path.
func AnalyzeFile(ctx context.Context, absolutePath string) (*Report, error) {
	if _, err := os.Stat(absolutePath); err != nil {
		return nil, fmt.Errorf("%s: %w", absolutePath, ErrNotFound)
	}

	actx, err := reqcontext.Build(ctx, absolutePath, vcs.DefaultOpener(), processCache)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absolutePath, ErrNotARepository)
	}

	relPath, err := repoRelative(actx.RepoRoot, absolutePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absolutePath, ErrNotARepository)
	}

	var (
		vResult volatility.Result
		cResult []coupling.Entry
		iResult []string
	)

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		vResult, _ = volatility.Run(ctx, actx.Git, relPath, actx.Config, time.Now())
	})
	wg.Go(func() {
		cResult, _ = coupling.Run(ctx, actx.Git, actx.Cache, actx.Ignore, relPath, actx.Config, actx.Thresholds)
	})
	wg.Go(func() {
		iResult, _ = importers.Run(ctx, actx.Git, actx.Ignore, relPath)
	})
	wg.Wait()

	staleResult, _ := drift.Run(ctx, actx.RepoRoot, absolutePath, cResult, actx.Thresholds.DriftDays)

	var sResult sibling.Result
	if vResult.CommitCount == 0 {
		sResult, _ = sibling.Run(ctx, actx.RepoRoot, relPath, actx.Config, sibling.VolatilityLookupFromGit(actx.Git))
	}

	assessment := risk.Compute(vResult, cResult, staleResult, len(iResult), actx.Config)

	md := report.Format(report.Input{
		RelPath:    relPath,
		Volatility: vResult,
		Coupled:    cResult,
		Stale:      staleResult,
		Importers:  iResult,
		Sibling:    sResult,
		Risk:       assessment,
	})

	return &Report{
		TargetPath: absolutePath,
		RelPath:    relPath,
		Volatility: vResult,
		Coupled:    cResult,
		Stale:      staleResult,
		Importers:  iResult,
		Sibling:    sResult,
		Risk:       assessment,
		markdown:   md,
	}, nil
}

// SearchHistory answers "why does this code exist" by searching commit
// history in one of three modes (message grep, pickaxe, line-range). A
// target outside any Git work tree yields an empty result set rather
// than an error; only malformed queries are rejected.
func SearchHistory(ctx context.Context, q SearchQuery) (*HistoryReport, error) {
	isLineRange := q.StartLine != 0 || q.EndLine != 0

	if !isLineRange && strings.TrimSpace(q.Query) == "" {
		return nil, fmt.Errorf("%w: query must be non-empty unless both startLine and endLine are set", ErrInvalidQuery)
	}
	if isLineRange && q.Path == "" {
		return nil, fmt.Errorf("%w: startLine/endLine require path", ErrInvalidQuery)
	}

	startLine := q.StartLine
	if isLineRange {
		if startLine < 1 {
			startLine = 1
		}
		endLine := q.EndLine
		if endLine < startLine {
			return nil, fmt.Errorf("%w: endLine must be >= startLine (after clamping startLine to 1)", ErrInvalidQuery)
		}
	}

	discoveryDir := q.Path
	if discoveryDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return emptyHistoryReport(q, startLine), nil
		}
		discoveryDir = cwd
	} else if fi, err := os.Stat(discoveryDir); err == nil && !fi.IsDir() {
		discoveryDir = filepath.Dir(discoveryDir)
	}

	repoRoot, err := gitutil.DiscoverRepoRoot(ctx, discoveryDir)
	if err != nil {
		return emptyHistoryReport(q, startLine), nil
	}

	relPath := ""
	if q.Path != "" {
		relPath, err = repoRelative(repoRoot, q.Path)
		if err != nil {
			return emptyHistoryReport(q, startLine), nil
		}
	}

	mode := historysearch.Mode(q.Type)
	switch mode {
	case historysearch.ModeMessage, historysearch.ModeDiff, historysearch.ModeBoth:
	default:
		mode = historysearch.ModeBoth
	}

	query := historysearch.Query{
		Text:      q.Query,
		Path:      relPath,
		Mode:      mode,
		Limit:     q.Limit,
		StartLine: startLine,
		EndLine:   q.EndLine,
	}

	g := gitutil.New(repoRoot)
	results, err := historysearch.Run(ctx, g, processCache, query)
	if err != nil {
		return emptyHistoryReport(q, startLine), nil
	}

	return &HistoryReport{
		Query:    query,
		Results:  results,
		markdown: report.FormatHistory(query, results),
	}, nil
}

// CacheStats reports the engine's process-wide cache occupancy, used by
// the `memoria cache stats` CLI subcommand.
func CacheStats() cache.Stats {
	return processCache.Stats()
}

// ClearCache empties the engine's process-wide cache, used by the
// `memoria cache clear` CLI subcommand.
func ClearCache() {
	processCache.Clear()
}

func emptyHistoryReport(q SearchQuery, startLine int) *HistoryReport {
	query := historysearch.Query{Text: q.Query, Path: q.Path, StartLine: startLine, EndLine: q.EndLine}
	return &HistoryReport{Query: query, markdown: report.FormatHistory(query, nil)}
}

// repoRelative converts an absolute path to a forward-slash-normalized
// path relative to repoRoot, the form every engine and cache key uses.
func repoRelative(repoRoot, absPath string) (string, error) {
	rel, err := filepath.Rel(repoRoot, absPath)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside repository root %s", absPath, repoRoot)
	}
	return filepath.ToSlash(rel), nil
}
