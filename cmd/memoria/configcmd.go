package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/internal/output"
	"github.com/memoria-dev/memoria/pkg/config"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the loaded .memoria.json configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective config (file or defaults) and its cache digest",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigShow(c *cli.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	repoRoot, err := gitutil.DiscoverRepoRoot(c.Context, cwd)
	if err != nil {
		repoRoot = cwd
	}

	result := config.LoadOrDefault(repoRoot)

	source := result.Source
	if source == "" {
		source = "(defaults, no .memoria.json found)"
	}

	table := output.NewTable(
		"Effective Config",
		[]string{"Field", "Value"},
		[][]string{
			{"source", source},
			{"digest", result.Config.Digest()},
			{"couplingPercent", itoa(result.Config.Thresholds.CouplingPercent)},
			{"driftDays", itoa(result.Config.Thresholds.DriftDays)},
			{"analysisWindow", itoa(result.Config.Thresholds.AnalysisWindow)},
			{"maxFilesPerCommit", itoa(result.Config.Thresholds.MaxFilesPerCommit)},
		},
		result,
	)

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(c)), getOutput(c), true)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(table)
}
