package sibling

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-dev/memoria/pkg/config"
)

func writeFile(t *testing.T, root, rel, contents string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(contents), 0644))
}

func TestRun_MissingTestPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.ts", "export const a = 1\n")
	writeFile(t, dir, "src/a.test.ts", "it('works', () => {})\n")
	writeFile(t, dir, "src/b.ts", "export const b = 2\n")
	writeFile(t, dir, "src/b.test.ts", "it('works', () => {})\n")
	writeFile(t, dir, "src/c.ts", "export const c = 3\n")
	writeFile(t, dir, "src/c.test.ts", "it('works', () => {})\n")
	writeFile(t, dir, "src/new.ts", "export const n = 4\n")

	result, err := Run(context.Background(), dir, "src/new.ts", config.DefaultConfig(), nil)
	require.NoError(t, err)

	assert.True(t, result.SiblingCount >= 6)
	var found bool
	for _, p := range result.Patterns {
		if p.Kind == "missing-test" {
			found = true
			assert.GreaterOrEqual(t, p.Confidence, 80)
		}
	}
	assert.True(t, found, "expected a missing-test pattern")
}

func TestRun_NoSiblings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "solo.go", "package main\n")

	result, err := Run(context.Background(), dir, "solo.go", config.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SiblingCount)
	assert.Empty(t, result.Patterns)
}

func TestRun_CommonImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/a.ts", "import { z } from './z'\nexport const a = 1\n")
	writeFile(t, dir, "src/b.ts", "import { z } from './z'\nexport const b = 2\n")
	writeFile(t, dir, "src/c.ts", "export const c = 3\n")
	writeFile(t, dir, "src/new.ts", "export const n = 4\n")

	result, err := Run(context.Background(), dir, "src/new.ts", config.DefaultConfig(), nil)
	require.NoError(t, err)

	var found bool
	for _, p := range result.Patterns {
		if p.Kind == "common-import" && p.Detail == "./z" {
			found = true
		}
	}
	assert.True(t, found, "expected './z' to be detected as a common import")
}

func TestRun_NamingConvention(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/userController.ts", "export const x = 1\n")
	writeFile(t, dir, "src/orderController.ts", "export const y = 1\n")
	writeFile(t, dir, "src/new.ts", "export const n = 1\n")

	result, err := Run(context.Background(), dir, "src/new.ts", config.DefaultConfig(), nil)
	require.NoError(t, err)

	var found bool
	for _, p := range result.Patterns {
		if p.Kind == "naming-convention" {
			found = true
		}
	}
	assert.True(t, found, "expected a naming-convention pattern")
}

func TestRun_ExcludesTargetFromSiblings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "src/new.ts", "export const n = 1\n")

	result, err := Run(context.Background(), dir, "src/new.ts", config.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SiblingCount)
}
