package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/memoria-dev/memoria/internal/output"
	"github.com/memoria-dev/memoria/internal/progress"
	"github.com/memoria-dev/memoria/pkg/forensics"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Produce a forensic risk brief for a single file",
		ArgsUsage: "<path>",
		Action:    runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("usage: memoria analyze <path>", 1)
	}

	absPath, err := filepath.Abs(c.Args().First())
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	spinner := progress.NewSpinner("Analyzing git history...")
	report, err := forensics.AnalyzeFile(c.Context, absPath)
	if err != nil {
		spinner.FinishError(err)
		return err
	}
	spinner.FinishSuccess()

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(c)), getOutput(c), true)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(&analyzeRenderable{report: report})
}

// analyzeRenderable adapts *forensics.Report to internal/output's
// Renderable interface so the CLI can reuse the same
// text/json/markdown dispatch every other memoria command uses.
type analyzeRenderable struct {
	report *forensics.Report
}

func (r *analyzeRenderable) RenderMarkdown(w io.Writer) error {
	_, err := io.WriteString(w, r.report.Markdown())
	return err
}

func (r *analyzeRenderable) RenderText(w io.Writer, colored bool) error {
	if colored {
		level := string(r.report.Risk.Level)
		summary := fmt.Sprintf("%s — %d/100 %s", r.report.RelPath, r.report.Risk.Score, strings.ToUpper(level))
		fmt.Fprintln(w, output.RiskColor(level, summary))
		fmt.Fprintln(w)
	}
	_, err := io.WriteString(w, r.report.Markdown())
	return err
}

func (r *analyzeRenderable) RenderData() any {
	return r.report
}
