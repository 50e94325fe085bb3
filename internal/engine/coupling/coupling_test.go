package coupling

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/ignorefilter"
	"github.com/memoria-dev/memoria/internal/metrics"
	"github.com/memoria-dev/memoria/pkg/config"
)

func writeAndCommit(t *testing.T, repo *git.Repository, dir string, files map[string]string, message string, when time.Time) {
	t.Helper()
	w, err := repo.Worktree()
	require.NoError(t, err)

	for rel, contents := range files {
		full := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0644))
		_, err = w.Add(rel)
		require.NoError(t, err)
	}

	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: when},
	})
	require.NoError(t, err)
}

func defaultThresholds() (cfg *config.Config, th metrics.AdaptiveThresholds) {
	cfg = config.DefaultConfig()
	th = metrics.Derive(metrics.ProjectMetrics{CommitsPerWeek: 10, AvgFilesPerCommit: 2}, cfg)
	return
}

func TestRun_ColdStartExcludesCoupling(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	writeAndCommit(t, repo, dir, map[string]string{
		"a.go": "package a\n", "b.go": "package b\n", "c.go": "package c\n",
	}, "initial", now)

	g := gitutil.New(dir)
	c := cache.New()
	ignore := ignorefilter.New(dir, nil)
	cfg, th := defaultThresholds()

	entries, err := Run(context.Background(), g, c, ignore, "a.go", cfg, th)
	require.NoError(t, err)
	assert.Empty(t, entries, "a file with <3 commits must report no coupling")
}

func TestRun_BulkCommitSuppressed(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	writeAndCommit(t, repo, dir, map[string]string{"a.go": "v0\n"}, "init a", now.Add(-10*24*time.Hour))
	writeAndCommit(t, repo, dir, map[string]string{"a.go": "v1\n"}, "tweak a", now.Add(-9*24*time.Hour))
	writeAndCommit(t, repo, dir, map[string]string{"a.go": "v2\n"}, "tweak a again", now.Add(-8*24*time.Hour))

	bulk := map[string]string{"a.go": "v3\n"}
	for i := 0; i < 50; i++ {
		bulk[fmt.Sprintf("bulk%d.go", i)] = "package bulk\n"
	}
	writeAndCommit(t, repo, dir, bulk, "format sweep", now.Add(-1*24*time.Hour))

	g := gitutil.New(dir)
	c := cache.New()
	ignore := ignorefilter.New(dir, nil)
	cfg, th := defaultThresholds()
	th.MaxFilesPerCommit = 15

	entries, err := Run(context.Background(), g, c, ignore, "a.go", cfg, th)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.File, "bulk", "files from the bulk commit must contribute zero coupling")
	}
}

func TestRun_CouplesFrequentlyCoChangedFile(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 5; i++ {
		writeAndCommit(t, repo, dir, map[string]string{
			"a.go": fmt.Sprintf("v%d\n", i),
			"b.go": fmt.Sprintf("v%d\n", i),
		}, fmt.Sprintf("update a and b #%d", i), now.Add(-time.Duration(5-i)*24*time.Hour))
	}

	g := gitutil.New(dir)
	c := cache.New()
	ignore := ignorefilter.New(dir, nil)
	cfg, th := defaultThresholds()
	th.CouplingPercent = 10

	entries, err := Run(context.Background(), g, c, ignore, "a.go", cfg, th)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "b.go", entries[0].File)
	assert.Greater(t, entries[0].Score, th.CouplingPercent)
}

func TestRun_SelfExcluded(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 5; i++ {
		writeAndCommit(t, repo, dir, map[string]string{"a.go": fmt.Sprintf("v%d\n", i)}, "update a", now.Add(-time.Duration(5-i)*24*time.Hour))
	}

	g := gitutil.New(dir)
	c := cache.New()
	ignore := ignorefilter.New(dir, nil)
	cfg, th := defaultThresholds()

	entries, err := Run(context.Background(), g, c, ignore, "a.go", cfg, th)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "a.go", e.File)
	}
}
