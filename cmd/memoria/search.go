package main

import (
	"io"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/memoria-dev/memoria/internal/output"
	"github.com/memoria-dev/memoria/internal/progress"
	"github.com/memoria-dev/memoria/pkg/forensics"
)

func searchCmd() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search commit history: message grep, content pickaxe, or line-range follow",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "File whose repository is searched; also the target of a line-range search (message and diff searches are not limited to this file)"},
			&cli.StringFlag{Name: "type", Value: "both", Usage: "message, diff, or both"},
			&cli.IntFlag{Name: "limit", Value: 20, Usage: "Maximum commits to return"},
			&cli.IntFlag{Name: "start-line", Usage: "Start of a line range (requires --path)"},
			&cli.IntFlag{Name: "end-line", Usage: "End of a line range (requires --path)"},
		},
		Action: runSearch,
	}
}

func runSearch(c *cli.Context) error {
	query := c.Args().First()

	path := c.String("path")
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = abs
	}

	spinner := progress.NewSpinner("Searching commit history...")
	result, err := forensics.SearchHistory(c.Context, forensics.SearchQuery{
		Query:     query,
		Path:      path,
		Type:      c.String("type"),
		Limit:     c.Int("limit"),
		StartLine: c.Int("start-line"),
		EndLine:   c.Int("end-line"),
	})
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

	return formatter.Output(&searchRenderable{result: result})
}

type searchRenderable struct {
	result *forensics.HistoryReport
}

func (r *searchRenderable) RenderMarkdown(w io.Writer) error {
	_, err := io.WriteString(w, r.result.Markdown())
	return err
}

func (r *searchRenderable) RenderText(w io.Writer, _ bool) error {
	_, err := io.WriteString(w, r.result.Markdown())
	return err
}

func (r *searchRenderable) RenderData() any {
	return r.result
}
