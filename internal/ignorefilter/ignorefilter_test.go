package ignorefilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-dev/memoria/internal/cache"
)

func TestIsIgnored_UniversalPatterns(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, nil)

	assert.True(t, f.IsIgnored("node_modules", true))
	assert.True(t, f.IsIgnored("node_modules/left-pad/index.js", false))
	assert.True(t, f.IsIgnored("app.log", false))
	assert.False(t, f.IsIgnored("main.go", false))
}

func TestIsIgnored_Gitignore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("*.secret\n"), 0644))

	f := New(dir, nil)
	assert.True(t, f.IsIgnored("creds.secret", false))
	assert.False(t, f.IsIgnored("creds.txt", false))
}

func TestIsIgnored_ConfigPatterns(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, []string{"*.generated.go"})

	assert.True(t, f.IsIgnored("models.generated.go", false))
	assert.False(t, f.IsIgnored("models.go", false))
}

func TestIsIgnored_NormalizesSeparators(t *testing.T) {
	dir := t.TempDir()
	f := New(dir, []string{"pkg/skip/"})

	assert.True(t, f.IsIgnored(filepath.Join("pkg", "skip", "file.go"), false))
}

func TestGetOrBuild_CachesByRepoAndPatterns(t *testing.T) {
	dir := t.TempDir()
	c := cache.New()

	f1 := GetOrBuild(c, dir, []string{"*.tmp"})
	f2 := GetOrBuild(c, dir, []string{"*.tmp"})
	assert.Same(t, f1, f2, "same (repoRoot, patterns) tuple should reuse the built filter")

	f3 := GetOrBuild(c, dir, []string{"*.bak"})
	assert.NotSame(t, f1, f3, "different patterns should build a distinct filter")
}
