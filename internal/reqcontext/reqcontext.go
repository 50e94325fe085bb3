// Package reqcontext builds the per-request AnalysisContext shared by
// every engine within a single analyze_file or search_history call.
package reqcontext

import (
	"context"
	"fmt"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/ignorefilter"
	"github.com/memoria-dev/memoria/internal/metrics"
	"github.com/memoria-dev/memoria/internal/vcs"
	"github.com/memoria-dev/memoria/pkg/config"
)

// noConfigSentinel is cached in place of a *config.Config when the
// repository has no (or an invalid) .memoria.json, so a repeated
// analyze_file call doesn't re-read the file from disk. A typed
// sentinel, not nil, so cache.Get's (value, ok) can't be confused with
// "key absent".
type noConfigSentinel struct{}

// AnalysisContext is immutable after construction and scoped to one
// analyze_file or search_history invocation.
type AnalysisContext struct {
	TargetPath string // absolute
	RepoRoot   string
	Git        *gitutil.Git
	Config     *config.Config
	Ignore     *ignorefilter.Filter
	Metrics    metrics.ProjectMetrics
	Thresholds metrics.AdaptiveThresholds
	Cache      *cache.Cache
}

// Build resolves targetPath's repository root (via go-git, the cheap
// in-process path) and assembles everything the engines need: loaded
// config, compiled ignore filter, sampled project metrics, and derived
// adaptive thresholds. It is the sole per-request initialization step;
// everything it produces is read-only for the rest of the call.
func Build(ctx context.Context, targetPath string, opener vcs.Opener, c *cache.Cache) (*AnalysisContext, error) {
	repo, err := opener.PlainOpenWithDetect(targetPath)
	if err != nil {
		return nil, fmt.Errorf("%s: not inside a git repository: %w", targetPath, err)
	}
	repoRoot := repo.RepoPath()

	cfg := loadConfigCached(c, repoRoot)
	g := gitutil.New(repoRoot)
	m := metrics.Sample(ctx, g)
	thresholds := metrics.Derive(m, cfg)
	ignoreFilter := ignorefilter.GetOrBuild(c, repoRoot, cfg.Ignore)

	return &AnalysisContext{
		TargetPath: targetPath,
		RepoRoot:   repoRoot,
		Git:        g,
		Config:     cfg,
		Ignore:     ignoreFilter,
		Metrics:    m,
		Thresholds: thresholds,
		Cache:      c,
	}, nil
}

// loadConfigCached reads <repoRoot>/.memoria.json at most once per TTL
// window, caching the None outcome too so a malformed or absent file
// isn't re-parsed on every call.
func loadConfigCached(c *cache.Cache, repoRoot string) *config.Config {
	key := "config:" + repoRoot

	if v, ok := c.Get(key); ok {
		if _, isNone := v.(noConfigSentinel); isNone {
			return config.DefaultConfig()
		}
		return v.(*config.Config)
	}

	cfg, err := config.Load(repoRoot)
	if err != nil || cfg == nil {
		c.Set(key, noConfigSentinel{})
		return config.DefaultConfig()
	}

	c.Set(key, cfg)
	return cfg
}
