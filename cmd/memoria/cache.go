package main

import (
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/memoria-dev/memoria/internal/output"
	"github.com/memoria-dev/memoria/pkg/forensics"
)

func cacheCmd() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or reset the process-local analysis cache",
		Subcommands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache occupancy",
				Action: runCacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Empty the cache",
				Action: runCacheClear,
			},
		},
	}
}

func runCacheStats(c *cli.Context) error {
	stats := forensics.CacheStats()

	table := output.NewTable(
		"Cache Stats",
		[]string{"Entries", "Oldest Age", "Newest Age"},
		[][]string{{
			itoa(stats.Entries),
			stats.OldestAge.String(),
			stats.NewestAge.String(),
		}},
		stats,
	)

	formatter, err := output.NewFormatter(output.ParseFormat(getFormat(c)), getOutput(c), true)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(table)
}

func runCacheClear(c *cli.Context) error {
	forensics.ClearCache()
	color.Green("cache cleared")
	return nil
}
