// Package sibling implements Engine S: heuristics for a brand-new file
// (zero commit history) derived from its directory neighbors, since
// there is no history for Volatility or Coupling to mine yet.
package sibling

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/memoria-dev/memoria/internal/concurrency"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/pkg/config"
)

// sampleLines bounds how much of each sibling is read when extracting
// imports.
const sampleLines = 30

// maxImportSample bounds how many siblings are read in parallel for the
// common-imports heuristic.
const maxImportSample = 5

// maxCommonImports caps the reported common-import list.
const maxCommonImports = 5

// missingTestFloor is the confidence floor applied whenever any sibling
// has a test and the target does not.
const missingTestFloor = 30

var testSuffixPattern = regexp.MustCompile(`(?i)\.(test|spec)\.`)
var importLinePattern = regexp.MustCompile(`^\s*(?:import|from|require)\b.*?['"]([^'"]+)['"]`)
var camelPrefixPattern = regexp.MustCompile(`^([a-z]+)[A-Z]`)
var pascalSuffixPattern = regexp.MustCompile(`([A-Z][a-z]+)$`)

// Pattern is one detected naming/structure hint.
type Pattern struct {
	Kind       string // "missing-test", "common-import", "naming-convention"
	Detail     string
	Confidence int // 0..100
}

// Result is Engine S's output, populated only when the target has no
// commit history.
type Result struct {
	SiblingCount     int
	Patterns         []Pattern
	AverageVolatility float64
	HasTests         bool
}

// volatilityLookup lets Run score sibling volatility without importing
// the volatility engine directly (that engine in turn depends on
// gitutil, not sibling, so this keeps the dependency one-directional and
// lets callers inject a cheap stand-in in tests).
type volatilityLookup func(ctx context.Context, relPath string) (panicScore int, hasHistory bool)

// Run lists the target's directory siblings (same extension, excluding
// the target) and derives pattern hints. It is only meaningful when the
// caller has already established commitCount == 0 for the target.
func Run(ctx context.Context, repoRoot, targetRelPath string, cfg *config.Config, volatility volatilityLookup) (Result, error) {
	dir := filepath.Dir(targetRelPath)
	ext := filepath.Ext(targetRelPath)
	base := filepath.Base(targetRelPath)

	absDir := filepath.Join(repoRoot, dir)
	entries, err := os.ReadDir(absDir)
	if err != nil {
		return Result{}, nil // IgnoreNoise: directory unreadable, no guidance
	}

	var siblingRel []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == base {
			continue
		}
		if filepath.Ext(e.Name()) != ext {
			continue
		}
		siblingRel = append(siblingRel, filepath.ToSlash(filepath.Join(dir, e.Name())))
	}
	sort.Strings(siblingRel)

	result := Result{SiblingCount: len(siblingRel)}
	if len(siblingRel) == 0 {
		return result, nil
	}

	targetHasTest := testSuffixPattern.MatchString(base)
	siblingsWithTests := 0
	for _, s := range siblingRel {
		if testSuffixPattern.MatchString(s) {
			siblingsWithTests++
		}
	}
	result.HasTests = siblingsWithTests > 0

	if siblingsWithTests > 0 && !targetHasTest {
		fraction := float64(siblingsWithTests) / float64(len(siblingRel))
		confidence := missingTestFloor + int(fraction*100)
		if confidence > 100 {
			confidence = 100
		}
		result.Patterns = append(result.Patterns, Pattern{
			Kind:       "missing-test",
			Detail:     "sibling files in this directory have test counterparts; this file does not",
			Confidence: confidence,
		})
	}

	sample := siblingRel
	if len(sample) > maxImportSample {
		sample = sample[:maxImportSample]
	}

	type imports struct{ found []string }
	perFile, err := concurrency.MapConcurrent(ctx, sample, maxImportSample,
		func(ctx context.Context, relPath string) (imports, error) {
			return imports{found: sampleImports(filepath.Join(repoRoot, relPath))}, nil
		})
	if err == nil {
		counts := make(map[string]int)
		var order []string
		for _, f := range perFile {
			seen := make(map[string]bool)
			for _, imp := range f.found {
				if seen[imp] {
					continue
				}
				seen[imp] = true
				if counts[imp] == 0 {
					order = append(order, imp)
				}
				counts[imp]++
			}
		}
		threshold := len(sample) / 2
		if threshold < 2 {
			threshold = 2
		}
		var common []string
		for _, imp := range order {
			if counts[imp] >= threshold {
				common = append(common, imp)
			}
		}
		sort.Strings(common)
		if len(common) > maxCommonImports {
			common = common[:maxCommonImports]
		}
		for _, imp := range common {
			result.Patterns = append(result.Patterns, Pattern{
				Kind:       "common-import",
				Detail:     imp,
				Confidence: 60,
			})
		}
	}

	if naming, ok := dominantNamingConvention(siblingRel); ok {
		result.Patterns = append(result.Patterns, Pattern{
			Kind:       "naming-convention",
			Detail:     naming,
			Confidence: 50,
		})
	}

	if volatility != nil {
		var sum int
		var withHistory int
		for _, s := range sample {
			score, hasHistory := volatility(ctx, s)
			if hasHistory {
				sum += score
				withHistory++
			}
		}
		if withHistory > 0 {
			result.AverageVolatility = float64(sum) / float64(withHistory)
		}
	}

	return result, nil
}

// sampleImports reads the first sampleLines lines of path and extracts
// import-like statements.
func sampleImports(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var found []string
	scanner := bufio.NewScanner(f)
	for i := 0; i < sampleLines && scanner.Scan(); i++ {
		line := scanner.Text()
		if m := importLinePattern.FindStringSubmatch(line); m != nil {
			found = append(found, m[1])
		}
	}
	return found
}

// dominantNamingConvention detects a camelCase prefix or PascalCase
// suffix shared by at least two siblings.
func dominantNamingConvention(siblings []string) (string, bool) {
	prefixCounts := make(map[string]int)
	suffixCounts := make(map[string]int)

	for _, s := range siblings {
		stem := strings.TrimSuffix(filepath.Base(s), filepath.Ext(s))
		if m := camelPrefixPattern.FindStringSubmatch(stem); m != nil {
			prefixCounts[m[1]]++
		}
		if m := pascalSuffixPattern.FindStringSubmatch(stem); m != nil {
			suffixCounts[m[1]]++
		}
	}

	bestPrefix, bestPrefixCount := mostCommon(prefixCounts)
	bestSuffix, bestSuffixCount := mostCommon(suffixCounts)

	switch {
	case bestPrefixCount >= 2 && bestPrefixCount >= bestSuffixCount:
		return "camelCase prefix \"" + bestPrefix + "\"", true
	case bestSuffixCount >= 2:
		return "PascalCase suffix \"" + bestSuffix + "\"", true
	default:
		return "", false
	}
}

func mostCommon(counts map[string]int) (string, int) {
	var best string
	var bestCount int
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if counts[k] > bestCount {
			best, bestCount = k, counts[k]
		}
	}
	return best, bestCount
}

// VolatilityLookupFromGit builds a volatilityLookup backed by a real Git
// handle, for production callers; tests can pass nil or a stub closure
// directly to Run.
func VolatilityLookupFromGit(g *gitutil.Git) func(ctx context.Context, relPath string) (int, bool) {
	return func(ctx context.Context, relPath string) (int, bool) {
		commits, err := g.FileHistory(ctx, relPath, 20)
		if err != nil || len(commits) == 0 {
			return 0, false
		}
		// Cheap proxy: commit count alone, scaled, since a full panic-score
		// recompute per sibling would defeat the point of a lightweight
		// heuristic engine.
		score := len(commits) * 5
		if score > 100 {
			score = 100
		}
		return score, true
	}
}
