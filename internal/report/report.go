// Package report assembles the AI-consumable Markdown forensic brief:
// the one component every engine result flows into, and the only part
// of the engine where output stability is a hard contract. Two runs
// against an unchanged repository must be byte-identical, and
// downstream tooling regex-extracts the fixed headings.
package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/memoria-dev/memoria/internal/engine/coupling"
	"github.com/memoria-dev/memoria/internal/engine/drift"
	"github.com/memoria-dev/memoria/internal/engine/sibling"
	"github.com/memoria-dev/memoria/internal/engine/volatility"
	"github.com/memoria-dev/memoria/internal/historysearch"
	"github.com/memoria-dev/memoria/internal/risk"
)

// Input bundles every engine's output for one analyze_file call, in the
// shape the Formatter needs; it never re-derives anything the engines
// already computed.
type Input struct {
	RelPath    string
	Volatility volatility.Result
	Coupled    []coupling.Entry
	Stale      []drift.Stale
	Importers  []string
	Sibling    sibling.Result
	Risk       risk.Assessment
}

// maxPreFlightImporters bounds how many additional importers (beyond
// target + coupled + stale) the pre-flight checklist adds.
const maxPreFlightImporters = 3

// maxContributorsShown caps the contributors table.
const maxContributorsShown = 5

// busFactorThreshold is the top-author share that triggers a bus-factor
// warning.
const busFactorThreshold = 70

// Format renders the fixed-order Markdown brief for one analyzed file.
func Format(in Input) string {
	var b strings.Builder

	writeHeader(&b, in.RelPath)
	writeRisk(&b, in.Risk)
	writeCoupledFiles(&b, in.Coupled)
	writeStaticDependents(&b, in.Importers)
	writePreFlight(&b, in.RelPath, in.Coupled, in.Stale, in.Importers)

	if in.Volatility.CommitCount == 0 {
		writeNewFile(&b, in.Sibling)
	} else {
		writeVolatility(&b, in.Volatility)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, relPath string) {
	fmt.Fprintf(b, "# Forensic Report: `%s`\n\n", relPath)
}

func writeRisk(b *strings.Builder, r risk.Assessment) {
	fmt.Fprintf(b, "**⚠️ RISK: %d/100 (%s)**\n\n", r.Score, strings.ToUpper(string(r.Level)))
	fmt.Fprintf(b, "%s\n\n", r.Action)

	if len(r.Factors) == 0 {
		return
	}
	b.WriteString("Risk factors:\n\n")
	for _, f := range r.Factors {
		fmt.Fprintf(b, "- %s\n", f)
	}
	b.WriteString("\n")
}

func writeCoupledFiles(b *strings.Builder, coupled []coupling.Entry) {
	b.WriteString("## 🔗 COUPLED FILES\n\n")
	if len(coupled) == 0 {
		b.WriteString("No files co-change with this one above the coupling threshold.\n\n")
		return
	}

	for _, c := range coupled {
		fmt.Fprintf(b, "### `%s` — %d%% co-change\n\n", c.File, c.Score)
		fmt.Fprintf(b, "Change type: `%s`\n\n", nonEmpty(c.Evidence.ChangeType, "unknown"))
		if c.Evidence.HasBreakingChange {
			b.WriteString("**⚠️ BREAKING CHANGE DETECTED** in the most recent co-commit.\n\n")
		}
		fmt.Fprintf(b, "Last co-commit: %s (`%s`)\n\n", c.Reason, shortHash(c.LastHash))

		if len(c.Evidence.Additions) > 0 || len(c.Evidence.Removals) > 0 {
			b.WriteString("```diff\n")
			for _, line := range firstN(c.Evidence.Additions, 3) {
				fmt.Fprintf(b, "+%s\n", line)
			}
			for _, line := range firstN(c.Evidence.Removals, 3) {
				fmt.Fprintf(b, "-%s\n", line)
			}
			b.WriteString("```\n\n")
		}
	}
}

func firstN(lines []string, n int) []string {
	if len(lines) > n {
		return lines[:n]
	}
	return lines
}

func writeStaticDependents(b *strings.Builder, importers []string) {
	b.WriteString("## 📦 STATIC DEPENDENTS\n\n")
	if len(importers) == 0 {
		b.WriteString("No static importers found via textual scan.\n\n")
		return
	}

	top := importers
	if len(top) > 5 {
		top = top[:5]
	}
	for _, f := range top {
		fmt.Fprintf(b, "- [ ] `%s`\n", f)
	}
	if len(importers) > 5 {
		fmt.Fprintf(b, "- …and %d more\n", len(importers)-5)
	}
	b.WriteString("\n")
}

func writePreFlight(b *strings.Builder, target string, coupled []coupling.Entry, stale []drift.Stale, importers []string) {
	b.WriteString("## ✅ PRE-FLIGHT CHECKLIST\n\n")

	listed := map[string]bool{target: true}
	fmt.Fprintf(b, "- [ ] `%s` (target)\n", target)

	for _, c := range coupled {
		if listed[c.File] {
			continue
		}
		listed[c.File] = true
		fmt.Fprintf(b, "- [ ] `%s` (coupled, %d%%)\n", c.File, c.Score)
	}

	for _, s := range stale {
		if listed[s.File] {
			continue
		}
		listed[s.File] = true
		fmt.Fprintf(b, "- [ ] `%s` (stale, %d days behind)\n", s.File, s.DaysOld)
	}

	added := 0
	for _, f := range importers {
		if listed[f] || added >= maxPreFlightImporters {
			continue
		}
		listed[f] = true
		added++
		fmt.Fprintf(b, "- [ ] `%s` (importer)\n", f)
	}

	b.WriteString("\n")
}

func writeVolatility(b *strings.Builder, v volatility.Result) {
	b.WriteString("## 🌡️ VOLATILITY\n\n")
	fmt.Fprintf(b, "Status: %s (panic score %d/100)\n\n", statusLabel(v.PanicScore), v.PanicScore)
	fmt.Fprintf(b, "%d commits, last touched %s (%s).\n\n", v.CommitCount, v.LastCommitDate, recencyHint(v.RecencyDecay.NewestCommitDays))

	if len(v.AuthorDetails) > 0 && v.AuthorDetails[0].Percentage >= busFactorThreshold {
		fmt.Fprintf(b, "**Bus factor warning**: %s owns %d%% of this file's history.\n\n",
			v.AuthorDetails[0].Name, v.AuthorDetails[0].Percentage)
	}

	if len(v.PanicCommits) > 0 {
		b.WriteString("Concerning commits:\n\n")
		for _, c := range v.PanicCommits {
			fmt.Fprintf(b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	if len(v.AuthorDetails) > 0 {
		b.WriteString("Contributors:\n\n")
		b.WriteString("| Author | Commits | Share | First seen | Last seen |\n")
		b.WriteString("| --- | --- | --- | --- | --- |\n")
		shown := v.AuthorDetails
		if len(shown) > maxContributorsShown {
			shown = shown[:maxContributorsShown]
		}
		for _, a := range shown {
			fmt.Fprintf(b, "| %s | %d | %d%% | %s | %s |\n", a.Name, a.Commits, a.Percentage, a.FirstSeen, a.LastSeen)
		}
		b.WriteString("\n")
	}
}

func writeNewFile(b *strings.Builder, s sibling.Result) {
	b.WriteString("## 🆕 NEW FILE\n\n")
	b.WriteString("This file has no commit history yet.\n\n")

	if s.SiblingCount == 0 {
		return
	}

	b.WriteString("## 🧬 SIBLING PATTERNS\n\n")
	fmt.Fprintf(b, "%d sibling files sampled (average volatility %.0f/100).\n\n", s.SiblingCount, s.AverageVolatility)

	if len(s.Patterns) == 0 {
		b.WriteString("No strong patterns detected.\n\n")
		return
	}

	for _, p := range s.Patterns {
		fmt.Fprintf(b, "- **%s** (%d%% confidence): %s\n", p.Kind, p.Confidence, p.Detail)
	}
	b.WriteString("\n")
}

// recencyHint renders how fresh the newest commit is, in coarse buckets
// so the wording stays stable across runs made minutes apart.
func recencyHint(newestDays int) string {
	switch {
	case newestDays <= 1:
		return "active in the last day"
	case newestDays <= 7:
		return "active this week"
	case newestDays <= 30:
		return "active this month"
	default:
		return fmt.Sprintf("dormant for %d days", newestDays)
	}
}

func statusLabel(panicScore int) string {
	switch {
	case panicScore >= 60:
		return "VOLATILE"
	case panicScore >= 30:
		return "ACTIVE"
	default:
		return "STABLE"
	}
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// FormatHistory renders the fixed-vocabulary Markdown for a history
// search, under the stable "History Search:" heading.
func FormatHistory(q historysearch.Query, results []historysearch.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# 🔍 History Search: `%s`\n\n", describeQuery(q))

	if len(results) == 0 {
		b.WriteString("No matching commits found.\n\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%d matching commits, newest first:\n\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "### `%s` — %s\n\n", r.Hash, r.Date)
		fmt.Fprintf(&b, "%s (%s, match: %s)\n\n", r.Message, r.Author, r.MatchType)
		if len(r.FilesChanged) > 0 {
			b.WriteString("Files changed:\n\n")
			for _, f := range r.FilesChanged {
				fmt.Fprintf(&b, "- `%s`\n", f)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

func describeQuery(q historysearch.Query) string {
	if q.IsLineRange() {
		return fmt.Sprintf("%s:%d-%d", filepath.ToSlash(q.Path), q.StartLine, q.EndLine)
	}
	if q.Text == "" {
		return "(empty query)"
	}
	return q.Text
}
