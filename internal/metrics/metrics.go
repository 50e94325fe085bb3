// Package metrics samples recent repository velocity and maps it, along
// with any config overrides, onto the adaptive runtime thresholds the
// engines use.
package metrics

import (
	"context"
	"time"

	"github.com/memoria-dev/memoria/internal/concurrency"
	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/pkg/config"
)

// sampleWindow is how far back Project Metrics samples for velocity.
const sampleWindow = 30 * 24 * time.Hour

// commitCap bounds how many commits a single velocity sample considers.
const commitCap = 500

// fileListSampleSize is how many of the sampled commits have their
// changed-file counts fetched to compute avgFilesPerCommit.
const fileListSampleSize = 10

// defaultMetrics is returned whenever Git access fails outright.
var defaultMetrics = ProjectMetrics{TotalCommits: 0, CommitsPerWeek: 10, AvgFilesPerCommit: 3}

// ProjectMetrics summarizes recent commit velocity, used to self-tune
// the engine's thresholds.
type ProjectMetrics struct {
	TotalCommits      int
	CommitsPerWeek    float64
	AvgFilesPerCommit float64
}

// Sample derives ProjectMetrics from the last 30 days of history. Any
// Git failure yields defaultMetrics rather than propagating an error;
// velocity sampling is advisory, never load-bearing.
func Sample(ctx context.Context, g *gitutil.Git) ProjectMetrics {
	commits, err := g.CommitsSince(ctx, time.Now().Add(-sampleWindow), commitCap)
	if err != nil {
		return defaultMetrics
	}

	total := len(commits)
	commitsPerWeek := (float64(total) / 30.0) * 7.0

	sample := commits
	if len(sample) > fileListSampleSize {
		sample = sample[:fileListSampleSize]
	}

	avgFiles := 3.0
	if len(sample) > 0 {
		counts, err := concurrency.MapConcurrent(ctx, sample, concurrency.DefaultLimit,
			func(ctx context.Context, c gitutil.Commit) (int, error) {
				files, err := g.NameOnlyFiles(ctx, c.Hash)
				if err != nil {
					return -1, nil // GitTransient: exclude this commit from the average, not the call
				}
				return len(files), nil
			})
		if err == nil {
			sum, n := 0, 0
			for _, c := range counts {
				if c < 0 {
					continue
				}
				sum += c
				n++
			}
			if n > 0 {
				avgFiles = float64(sum) / float64(n)
			}
		}
	}

	return ProjectMetrics{
		TotalCommits:      total,
		CommitsPerWeek:    commitsPerWeek,
		AvgFilesPerCommit: avgFiles,
	}
}

// AdaptiveThresholds are the runtime knobs derived from velocity and any
// config overrides.
type AdaptiveThresholds struct {
	CouplingPercent   int
	DriftDays         int
	AnalysisWindow    int
	MaxFilesPerCommit int
}

// Derive maps ProjectMetrics and Config onto AdaptiveThresholds. Base
// values assume moderate velocity; a low-velocity repo (<5 commits/week)
// demands stricter coupling evidence over a shorter window (30 commits),
// while a high-velocity repo (>50/week) tolerates a looser threshold over
// a longer window (100 commits) because noise is higher. Config values, when present,
// always win over the derived defaults.
func Derive(m ProjectMetrics, cfg *config.Config) AdaptiveThresholds {
	t := AdaptiveThresholds{
		CouplingPercent:   15,
		DriftDays:         7,
		AnalysisWindow:    50,
		MaxFilesPerCommit: 15,
	}

	switch {
	case m.CommitsPerWeek < 5:
		t.CouplingPercent, t.DriftDays, t.AnalysisWindow = 20, 14, 30
	case m.CommitsPerWeek > 50:
		t.CouplingPercent, t.DriftDays, t.AnalysisWindow = 10, 3, 100
	}

	if m.AvgFilesPerCommit > 5 {
		t.CouplingPercent += 5
	}

	if cfg != nil {
		if cfg.Overridden.CouplingPercent {
			t.CouplingPercent = cfg.Thresholds.CouplingPercent
		}
		if cfg.Overridden.DriftDays {
			t.DriftDays = cfg.Thresholds.DriftDays
		}
		if cfg.Overridden.AnalysisWindow {
			t.AnalysisWindow = cfg.Thresholds.AnalysisWindow
		}
		if cfg.Overridden.MaxFilesPerCommit {
			t.MaxFilesPerCommit = cfg.Thresholds.MaxFilesPerCommit
		}
	}

	return t
}
