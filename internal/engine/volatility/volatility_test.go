package volatility

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

	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/pkg/config"
)

func makeCommit(t *testing.T, repo *git.Repository, dir, relPath, contents, message, authorEmail string, when time.Time) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.WriteFile(full, []byte(contents), 0644))

	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(relPath)
	require.NoError(t, err)
	_, err = w.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorEmail, Email: authorEmail, When: when},
	})
	require.NoError(t, err)
}

func TestRun_ZeroCommits(t *testing.T) {
	dir := t.TempDir()
	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	g := gitutil.New(dir)
	result, err := Run(context.Background(), g, "nonexistent.go", config.DefaultConfig(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 0, result.CommitCount)
	assert.Equal(t, 0, result.PanicScore)
	assert.Empty(t, result.TopAuthor)
	assert.Equal(t, 0, result.RecencyDecay.NewestCommitDays)
}

func TestRun_PanicScoreFromRevertKeyword(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 20; i++ {
		msg := "chore: tidy up"
		if i%3 == 0 {
			msg = "revert: undo bad change"
		}
		makeCommit(t, repo, dir, "a.go", fmt.Sprintf("package a\n// rev %d\n", i), msg, "dev@example.com", now.Add(-time.Duration(i)*24*time.Hour))
	}

	g := gitutil.New(dir)
	result, err := Run(context.Background(), g, "a.go", config.DefaultConfig(), now)
	require.NoError(t, err)

	assert.Equal(t, 20, result.CommitCount)
	assert.Greater(t, result.PanicScore, 0)
	assert.LessOrEqual(t, result.PanicScore, 100)
}

func TestRun_AuthorBreakdown(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	now := time.Now()
	makeCommit(t, repo, dir, "a.go", "v1\n", "init", "alice@example.com", now.Add(-3*24*time.Hour))
	makeCommit(t, repo, dir, "a.go", "v2\n", "tweak", "alice@example.com", now.Add(-2*24*time.Hour))
	makeCommit(t, repo, dir, "a.go", "v3\n", "tweak2", "bob@example.com", now.Add(-1*24*time.Hour))

	g := gitutil.New(dir)
	result, err := Run(context.Background(), g, "a.go", config.DefaultConfig(), now)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Authors)
	assert.Equal(t, "alice@example.com", result.TopAuthor)

	sum := 0
	for _, a := range result.AuthorDetails {
		sum += a.Percentage
	}
	assert.InDelta(t, 100, sum, 5, "percentages should sum to ~100 within rounding tolerance")
}

func TestDecay_MonotonicAndAnchors(t *testing.T) {
	assert.InDelta(t, 1.0, decay(0), 0.01)
	assert.InDelta(t, 0.5, decay(30), 0.01)
	assert.InDelta(t, 0.25, decay(60), 0.01)
	assert.Greater(t, decay(10), decay(20), "decay must strictly decrease as daysAgo grows")
}
