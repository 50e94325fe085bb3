// Package importers implements Engine I: a shallow textual scan for
// files that statically import the target, used as a fan-in signal when
// no semantic resolver is available.
package importers

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/ignorefilter"
)

var testSuffixPattern = regexp.MustCompile(`(?i)\.(test|spec)\.`)

// Run returns the deduplicated, repo-relative paths that import relPath,
// derived from a grep over the target's filename stem.
func Run(ctx context.Context, g *gitutil.Git, ignore *ignorefilter.Filter, relPath string) ([]string, error) {
	base := filepath.Base(relPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		return nil, nil
	}

	pattern := fmt.Sprintf(`(import|from|require).*['"].*%s`, regexp.QuoteMeta(stem))
	matches, err := g.GrepFilesMatching(ctx, pattern)
	if err != nil {
		return nil, nil // GitTransient: no importers found rather than an error
	}

	targetIsTest := testSuffixPattern.MatchString(relPath)

	seen := make(map[string]bool)
	var out []string
	for _, m := range matches {
		if m == relPath || filepath.Base(m) == base {
			continue
		}
		if ignore != nil && ignore.IsIgnored(m, false) {
			continue
		}
		if targetIsTest && testSuffixPattern.MatchString(m) {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out, nil
}
