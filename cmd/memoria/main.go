// Command memoria is a thin CLI wrapper over pkg/forensics, exposing
// analyze_file and search_history for manual exercise outside of an MCP
// or editor-integration transport.
package main

import (
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused
	date    = "unknown" //nolint:unused
)

func main() {
	app := &cli.App{
		Name:    "memoria",
		Usage:   "Repository forensics: risk briefs and commit archaeology for a single file",
		Version: version,
		Description: `memoria analyzes a single file's position in a Git repository's history:
how volatile it is, what co-changes with it, whether those co-changed
files have drifted out of sync, and what statically imports it. It
emits an AI-consumable Markdown brief with a pre-flight checklist.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "markdown",
				Usage:   "Output format: markdown, text, json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file instead of stdout",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			searchCmd(),
			cacheCmd(),
			configCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

// getFormat returns the format flag value; cli.Context flag lookup
// traverses the command lineage, so the app-level --format is visible
// from every subcommand action.
func getFormat(c *cli.Context) string {
	return c.String("format")
}

func getOutput(c *cli.Context) string {
	return c.String("output")
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
