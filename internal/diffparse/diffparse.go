// Package diffparse fetches a single file's diff at a commit, parses it
// into a structured summary, and classifies the kind of change.
package diffparse

import (
	"context"
	"regexp"
	"strings"

	"github.com/memoria-dev/memoria/internal/cache"
	"github.com/memoria-dev/memoria/internal/gitutil"
)

// snippetMaxLen bounds the raw diff text kept for display.
const snippetMaxLen = 1000

// binaryPlaceholder is returned verbatim for binary files, without
// invoking the line parser.
const binaryPlaceholder = "[Binary file]"

var binaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".ico": true, ".webp": true,
	".zip": true, ".tar": true, ".gz": true, ".7z": true, ".rar": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
	".mp3": true, ".mp4": true, ".mov": true, ".avi": true, ".wav": true,
	".exe": true, ".dll": true, ".so": true, ".dylib": true, ".bin": true,
	".pdf": true,
}

func isBinaryPath(path string) bool {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return false
	}
	return binaryExtensions[strings.ToLower(path[idx:])]
}

// GetDiffSnippet returns the raw diff text for relPath at hash, truncated
// to snippetMaxLen characters, or the binary placeholder for recognized
// binary extensions or a Git-reported binary diff. Results are cached
// per (repoRoot, file, hash).
func GetDiffSnippet(ctx context.Context, g *gitutil.Git, c *cache.Cache, relPath, hash string) (string, error) {
	key := "diffsnippet:" + g.RepoRoot() + ":" + relPath + ":" + hash
	if v, ok := c.Get(key); ok {
		return v.(string), nil
	}

	if isBinaryPath(relPath) {
		c.Set(key, binaryPlaceholder)
		return binaryPlaceholder, nil
	}

	out, err := g.Show(ctx, hash, relPath)
	if err != nil {
		return "", err // GitTransient: caller excludes this evidence, doesn't abort
	}

	if strings.Contains(out, "Binary files") && strings.Contains(out, "differ") {
		c.Set(key, binaryPlaceholder)
		return binaryPlaceholder, nil
	}

	if idx := strings.Index(out, "diff --git"); idx >= 0 {
		out = out[idx:]
	}

	if len(out) > snippetMaxLen {
		out = out[:snippetMaxLen] + "\n...(truncated)"
	}

	c.Set(key, out)
	return out, nil
}

// Summary is the structured view of a single file's diff.
type Summary struct {
	Additions         []string
	Removals          []string
	Hunks             int
	NetChange         int
	HasBreakingChange bool
	ChangeType        string
}

// Parse turns the raw diff snippet (as returned by GetDiffSnippet) into a
// Summary. netChange is derived from the full pre-truncation line counts,
// then the addition/removal slices are truncated to 10 entries each.
func Parse(snippet, relPath string) Summary {
	if snippet == binaryPlaceholder {
		return Summary{ChangeType: "unknown"}
	}

	var additions, removals []string
	hunks := 0

	for _, line := range strings.Split(snippet, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			hunks++
		case strings.HasPrefix(line, "+++"):
			// file header, not a content line
		case strings.HasPrefix(line, "+"):
			additions = append(additions, line[1:])
		case strings.HasPrefix(line, "---"):
			// file header, not a content line
		case strings.HasPrefix(line, "-"):
			removals = append(removals, line[1:])
		}
	}

	netChange := len(additions) - len(removals)

	if len(additions) > 10 {
		additions = additions[:10]
	}
	if len(removals) > 10 {
		removals = removals[:10]
	}

	s := Summary{
		Additions: additions,
		Removals:  removals,
		Hunks:     hunks,
		NetChange: netChange,
	}
	s.HasBreakingChange = detectBreakingChange(removals)
	s.ChangeType = classify(additions, removals, relPath)
	return s
}

var breakingChangePattern = regexp.MustCompile(`(?i)\b(remove|delete|deprecate)\b`)
var breakingChangeExportPattern = regexp.MustCompile(`(?i)\b(export|public|module\.exports)\b`)
var breakingChangeDeclPattern = regexp.MustCompile(`(?i)\b(function|interface|type|class)\s+\w+`)

func detectBreakingChange(removals []string) bool {
	for _, line := range removals {
		if breakingChangePattern.MatchString(line) {
			return true
		}
		if breakingChangeExportPattern.MatchString(line) {
			return true
		}
		if breakingChangeDeclPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// classification patterns, pre-compiled once at package init and
// evaluated in priority order: schema, api, import, config, test, style.
var (
	schemaPattern = regexp.MustCompile(`(?i)\b(type|interface|class|struct|enum)\b\s+\w+|:\s*\w+(\[\])?\s*[;,]`)
	apiPattern    = regexp.MustCompile(`(?i)\b(function|return|throw|await)\b|=>\s*\{?`)
	importPattern = regexp.MustCompile(`^\s*(import|from|require)\b`)
	configPattern = regexp.MustCompile(`(?i)\b(config|env)\b|^[A-Z][A-Z0-9_]*\s*=`)
	configExtPattern = regexp.MustCompile(`(?i)\.(json|ya?ml|toml|ini|env)$`)
	testPattern   = regexp.MustCompile(`(?i)\b(describe|it|expect)\b`)
	testPathPattern = regexp.MustCompile(`(?i)\.(test|spec)\.`)
)

func classify(additions, removals []string, relPath string) string {
	all := append(append([]string{}, additions...), removals...)
	joined := strings.Join(all, "\n")

	switch {
	case schemaPattern.MatchString(joined):
		return "schema"
	case apiPattern.MatchString(joined):
		return "api"
	}
	for _, line := range all {
		if importPattern.MatchString(line) {
			return "import"
		}
	}
	switch {
	case configPattern.MatchString(joined) || configExtPattern.MatchString(relPath):
		return "config"
	case testPathPattern.MatchString(relPath) || testPattern.MatchString(joined):
		return "test"
	case isStyleOnlyChange(additions, removals):
		return "style"
	}
	return "unknown"
}

// isStyleOnlyChange reports whether every addition pairs with a removal
// that is identical once whitespace is stripped.
func isStyleOnlyChange(additions, removals []string) bool {
	if len(additions) == 0 || len(additions) != len(removals) {
		return false
	}
	for i := range additions {
		if stripWhitespace(additions[i]) != stripWhitespace(removals[i]) {
			return false
		}
	}
	return true
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
