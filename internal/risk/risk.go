// Package risk implements the Risk Calculator: a pure reduction over the
// four engines' outputs into a single compound score, level, and
// human-readable factor list.
package risk

import (
	"math"

	"github.com/memoria-dev/memoria/internal/engine/coupling"
	"github.com/memoria-dev/memoria/internal/engine/drift"
	"github.com/memoria-dev/memoria/internal/engine/volatility"
	"github.com/memoria-dev/memoria/pkg/config"
)

// Level is a coarse risk bucket.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Assessment is the Risk Calculator's output.
type Assessment struct {
	Score   int
	Level   Level
	Factors []string
	Action  string
}

// topN controls how many coupling scores feed the coupling component's
// mean.
const topN = 3

// Compute derives the compound risk assessment from the four engines'
// results. It is a pure function: no I/O, no caching, no mutation.
func Compute(v volatility.Result, coupled []coupling.Entry, stale []drift.Stale, importerCount int, cfg *config.Config) Assessment {
	volatilityComponent := float64(v.PanicScore)

	couplingComponent := 0.0
	if len(coupled) > 0 {
		n := len(coupled)
		if n > topN {
			n = topN
		}
		sum := 0
		for i := 0; i < n; i++ {
			sum += coupled[i].Score
		}
		mean := float64(sum) / float64(n)
		couplingComponent = math.Min(100, mean*1.5)
	}

	driftComponent := math.Min(100, float64(len(stale))*25)
	importerComponent := math.Min(100, float64(importerCount)*10)

	w := cfg.RiskWeights
	score := int(math.Round(
		volatilityComponent*w.Volatility +
			couplingComponent*w.Coupling +
			driftComponent*w.Drift +
			importerComponent*w.Importers,
	))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := levelFor(score)

	var factors []string
	if v.PanicScore > 30 {
		factors = append(factors, "elevated panic score in recent commit history")
	}
	if len(coupled) >= 3 {
		factors = append(factors, "entangled with 3 or more files historically")
	}
	if len(stale) > 0 {
		factors = append(factors, "coupled files have drifted out of sync on disk")
	}
	if importerCount >= 5 {
		factors = append(factors, "5 or more static dependents")
	}
	if v.CommitCount == 0 {
		factors = append(factors, "no commit history — new file")
	}

	return Assessment{
		Score:   score,
		Level:   level,
		Factors: factors,
		Action:  actionFor(level),
	}
}

// levelFor maps a score onto its bucket. Thresholds are closed-lower,
// open-upper: 25 is medium, 50 is high, 75 is critical.
func levelFor(score int) Level {
	switch {
	case score >= 75:
		return LevelCritical
	case score >= 50:
		return LevelHigh
	case score >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

func actionFor(level Level) string {
	switch level {
	case LevelCritical:
		return "Treat any change here as high-stakes: review with a second pair of eyes, check coupled files, and run the full test suite before merging."
	case LevelHigh:
		return "Review coupled files and recent history before editing; a quick smoke test of dependents is recommended."
	case LevelMedium:
		return "Proceed with normal care; skim the coupled files list for anything obviously related to your change."
	default:
		return "Low historical risk; standard review is sufficient."
	}
}
