package forensics

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
)

func commitFile(t *testing.T, w *git.Worktree, dir, rel, contents, msg string) {
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

func initRepo(t *testing.T) (dir string, w *git.Worktree) {
	t.Helper()
	dir = t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	w, err = repo.Worktree()
	require.NoError(t, err)
	return dir, w
}

func TestAnalyzeFile_NotFound(t *testing.T) {
	_, err := AnalyzeFile(context.Background(), "/nonexistent/path/does/not/exist.go")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnalyzeFile_NotARepository(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(target, []byte("package a\n"), 0644))

	_, err := AnalyzeFile(context.Background(), target)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestAnalyzeFile_NewFileNoHistory(t *testing.T) {
	dir, w := initRepo(t)
	commitFile(t, w, dir, "src/existing.ts", "export const e = 1\n", "initial")

	target := filepath.Join(dir, "src", "brand_new.ts")
	require.NoError(t, os.WriteFile(target, []byte("export const n = 1\n"), 0644))

	report, err := AnalyzeFile(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Volatility.CommitCount)
	assert.Contains(t, report.Markdown(), "NEW FILE")
	assert.Empty(t, report.Coupled, "cold-start files must never report coupling")
}

func TestAnalyzeFile_VolatileFileShowsVolatilitySection(t *testing.T) {
	dir, w := initRepo(t)
	commitFile(t, w, dir, "a.go", "package a\n", "initial")
	for i := 0; i < 6; i++ {
		commitFile(t, w, dir, "a.go", fmt.Sprintf("package a\nvar x = %d\n", i+1), "revert hotfix urgent")
	}

	target := filepath.Join(dir, "a.go")
	report, err := AnalyzeFile(context.Background(), target)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.Volatility.PanicScore, 0)
	assert.LessOrEqual(t, report.Volatility.PanicScore, 100)
	assert.Contains(t, report.Markdown(), "VOLATILITY")
}

func TestAnalyzeFile_SelfReferentialExclusion(t *testing.T) {
	dir, w := initRepo(t)
	commitFile(t, w, dir, "a.go", "package a\n", "initial")
	commitFile(t, w, dir, "a.go", "package a\nvar y = 2\n", "tweak a")

	target := filepath.Join(dir, "a.go")
	report, err := AnalyzeFile(context.Background(), target)
	require.NoError(t, err)

	for _, c := range report.Coupled {
		assert.NotEqual(t, report.RelPath, c.File)
	}
	for _, imp := range report.Importers {
		assert.NotEqual(t, report.RelPath, imp)
	}
}

func TestSearchHistory_RejectsEmptyQueryWithoutLineRange(t *testing.T) {
	_, err := SearchHistory(context.Background(), SearchQuery{Query: ""})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearchHistory_LineRangeAllowsEmptyQuery(t *testing.T) {
	dir, w := initRepo(t)
	lines := ""
	for i := 0; i < 30; i++ {
		lines += "line\n"
	}
	commitFile(t, w, dir, "a.txt", lines, "initial 30 lines")

	target := filepath.Join(dir, "a.txt")
	result, err := SearchHistory(context.Background(), SearchQuery{
		Query: "", Path: target, Type: "both", Limit: 20, StartLine: 0, EndLine: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Query.StartLine, "startLine=0 must clamp to 1")
	assert.Contains(t, result.Markdown(), "History Search:")
}

func TestSearchHistory_NotARepositoryYieldsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	result, err := SearchHistory(context.Background(), SearchQuery{Query: "anything", Path: dir})
	require.NoError(t, err)
	assert.Empty(t, result.Results)
}

func TestSearchHistory_MessageMode(t *testing.T) {
	dir, w := initRepo(t)
	commitFile(t, w, dir, "a.go", "package a\n", "initial")
	commitFile(t, w, dir, "a.go", "package a\nvar z = 1\n", "add the caching layer")

	result, err := SearchHistory(context.Background(), SearchQuery{Query: "caching", Path: dir, Type: "message"})
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, "message", result.Results[0].MatchType)
}
