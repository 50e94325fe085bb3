package forensics

import (
	"github.com/memoria-dev/memoria/internal/engine/coupling"
	"github.com/memoria-dev/memoria/internal/engine/drift"
	"github.com/memoria-dev/memoria/internal/engine/sibling"
	"github.com/memoria-dev/memoria/internal/engine/volatility"
	"github.com/memoria-dev/memoria/internal/historysearch"
	"github.com/memoria-dev/memoria/internal/risk"
)

// Report is the structured result of AnalyzeFile, paired with its
// pre-rendered Markdown so a caller needing both never has to re-parse
// the brief.
type Report struct {
	TargetPath string // absolute
	RelPath    string // repo-relative, forward-slash normalized
	Volatility volatility.Result
	Coupled    []coupling.Entry
	Stale      []drift.Stale
	Importers  []string
	Sibling    sibling.Result
	Risk       risk.Assessment

	markdown string
}

// Markdown returns the pre-formatted Markdown brief.
func (r *Report) Markdown() string {
	return r.markdown
}

// SearchQuery describes one history search: query text, an optional
// path (used to locate the repository and as the line-range target;
// message and diff searches are not limited to it), a mode, a result
// limit, and an optional line range that activates the line-range
// search mode.
type SearchQuery struct {
	Query     string
	Path      string // absolute; required when StartLine/EndLine are set
	Type      string // "message" | "diff" | "both"; defaults to "both"
	Limit     int
	StartLine int
	EndLine   int
}

// HistoryReport is the structured result of SearchHistory, paired with
// its pre-rendered Markdown.
type HistoryReport struct {
	Query   historysearch.Query
	Results []historysearch.Result

	markdown string
}

// Markdown returns the pre-formatted Markdown brief.
func (r *HistoryReport) Markdown() string {
	return r.markdown
}
