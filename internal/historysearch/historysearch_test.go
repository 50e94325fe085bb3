package historysearch

import (
	"context"
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
)

func commit(t *testing.T, w *git.Worktree, dir, rel, contents, msg string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0644))
	_, err := w.Add(rel)
	require.NoError(t, err)
	_, err = w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestRun_MessageGrep(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)

	commit(t, w, dir, "a.go", "package a\n", "initial commit")
	commit(t, w, dir, "a.go", "package a\nvar X = 1\n", "fix urgent crash bug")

	g := gitutil.New(dir)
	c := cache.New()
	results, err := Run(context.Background(), g, c, Query{Text: "urgent", Mode: ModeMessage, Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "message", results[0].MatchType)
	assert.Contains(t, results[0].Message, "urgent")
}

func TestRun_Pickaxe(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)

	commit(t, w, dir, "a.go", "package a\n", "initial")
	commit(t, w, dir, "a.go", "package a\nconst Token = \"abc\"\n", "add token constant")
	commit(t, w, dir, "a.go", "package a\n", "remove token constant")

	g := gitutil.New(dir)
	c := cache.New()
	results, err := Run(context.Background(), g, c, Query{Text: "Token", Mode: ModeDiff, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRun_LineRange_ClampsStart(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)

	lines := ""
	for i := 1; i <= 30; i++ {
		lines += "line\n"
	}
	commit(t, w, dir, "a.txt", lines, "initial 30 lines")

	g := gitutil.New(dir)
	c := cache.New()
	q := Query{Path: "a.txt", Mode: ModeBoth, Limit: 20, StartLine: 0, EndLine: 10}
	assert.True(t, q.IsLineRange())

	results, err := Run(context.Background(), g, c, q)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestRun_EmptyQueryRequiresLineRange(t *testing.T) {
	q := Query{Text: "", Mode: ModeBoth}
	assert.False(t, q.IsLineRange())
}

func TestRun_DeduplicatesAcrossModes(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)

	commit(t, w, dir, "a.go", "package a\n", "initial")
	commit(t, w, dir, "a.go", "package a\nvar Crash = true\n", "fix crash condition")

	g := gitutil.New(dir)
	c := cache.New()
	results, err := Run(context.Background(), g, c, Query{Text: "Crash", Mode: ModeBoth, Limit: 10})
	require.NoError(t, err)
	// "fix crash condition" matches both the message grep and the pickaxe
	// (the literal "Crash" substring appears); it must appear only once.
	seen := make(map[string]int)
	for _, r := range results {
		seen[r.Hash]++
	}
	for hash, count := range seen {
		assert.Equal(t, 1, count, "hash %s appeared more than once", hash)
	}
}
