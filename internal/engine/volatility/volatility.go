// Package volatility implements Engine V: a per-file panic score derived
// from recent commit messages, with exponential recency decay and an
// author breakdown.
package volatility

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/memoria-dev/memoria/internal/gitutil"
	"github.com/memoria-dev/memoria/pkg/config"
)

// historyWindow is the fixed number of recent commits Engine V samples,
// independent of the adaptive analysis window used by Coupling.
const historyWindow = 20

// maxKeywordWeight bounds the per-commit weight scale used in
// normalization (the highest weight in the default panicKeywords table).
const maxKeywordWeight = 3.0

// panicCommitMinWeight is the minimum weight a commit needs to be listed
// among the top panicCommits.
const panicCommitMinWeight = 2.0

// subjectMaxLen truncates a panic commit's first line for display.
const subjectMaxLen = 60

// AuthorDetail summarizes one author's contribution to a file's history.
type AuthorDetail struct {
	Name       string
	Email      string
	Commits    int
	Percentage int
	FirstSeen  string // ISO date
	LastSeen   string // ISO date
}

// RecencyDecay summarizes how recent a file's history is.
type RecencyDecay struct {
	OldestCommitDays   int
	NewestCommitDays   int
	AverageDecayFactor float64
}

// Result is Engine V's output.
type Result struct {
	CommitCount    int
	PanicScore     int
	PanicCommits   []string
	LastCommitDate string // ISO date, empty if CommitCount == 0
	Authors        int
	AuthorDetails  []AuthorDetail
	TopAuthor      string // empty means no history
	RecencyDecay   RecencyDecay
}

// decay computes 0.5^(daysAgo/30): a commit's weight halves every 30 days.
func decay(daysAgo float64) float64 {
	return math.Pow(0.5, daysAgo/30.0)
}

type authorBucket struct {
	name, email         string
	count               int
	firstSeen, lastSeen time.Time
}

// Run computes the Volatility result for relPath (repo-relative) as of
// now.
func Run(ctx context.Context, g *gitutil.Git, relPath string, cfg *config.Config, now time.Time) (Result, error) {
	commits, err := g.FileHistory(ctx, relPath, historyWindow)
	if err != nil {
		return Result{}, nil // GitTransient: zero-value result, never escalate
	}

	if len(commits) == 0 {
		return Result{}, nil
	}

	type scored struct {
		commit gitutil.Commit
		weight float64
	}

	var weightedScore float64
	var decaySum float64
	var panicCandidates []scored
	buckets := make(map[string]*authorBucket)
	var bucketOrder []string

	oldestDays, newestDays := math.Inf(-1), math.Inf(1)

	for _, c := range commits {
		daysAgo := now.Sub(c.Date).Hours() / 24
		if daysAgo < 0 {
			daysAgo = 0
		}
		d := decay(daysAgo)
		decaySum += d

		weight := maxPanicWeight(c.Subject, cfg.PanicKeywords)
		weightedScore += weight * d
		if weight >= panicCommitMinWeight {
			panicCandidates = append(panicCandidates, scored{commit: c, weight: weight})
		}

		if daysAgo > oldestDays {
			oldestDays = daysAgo
		}
		if daysAgo < newestDays {
			newestDays = daysAgo
		}

		key := c.AuthorEmail
		if key == "" {
			key = c.AuthorName
		}
		b, ok := buckets[key]
		if !ok {
			b = &authorBucket{name: c.AuthorName, email: c.AuthorEmail, firstSeen: c.Date, lastSeen: c.Date}
			buckets[key] = b
			bucketOrder = append(bucketOrder, key)
		}
		b.count++
		if c.Date.Before(b.firstSeen) {
			b.firstSeen = c.Date
		}
		if c.Date.After(b.lastSeen) {
			b.lastSeen = c.Date
		}
	}

	total := len(commits)
	panicScore := int(math.Min(100, math.Round((weightedScore/(historyWindow*maxKeywordWeight))*100)))

	sort.Slice(panicCandidates, func(i, j int) bool { return panicCandidates[i].weight > panicCandidates[j].weight })
	var panicCommits []string
	for i := 0; i < len(panicCandidates) && i < 3; i++ {
		panicCommits = append(panicCommits, truncateSubject(panicCandidates[i].commit.Subject))
	}

	details := make([]AuthorDetail, 0, len(bucketOrder))
	for _, key := range bucketOrder {
		b := buckets[key]
		denom := total
		if denom == 0 {
			denom = 1
		}
		details = append(details, AuthorDetail{
			Name:       b.name,
			Email:      b.email,
			Commits:    b.count,
			Percentage: int(math.Round((float64(b.count) / float64(denom)) * 100)),
			FirstSeen:  b.firstSeen.Format("2006-01-02"),
			LastSeen:   b.lastSeen.Format("2006-01-02"),
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Commits > details[j].Commits })

	topAuthor := ""
	if len(details) > 0 {
		topAuthor = details[0].Name
	}

	avgDecay := 0.0
	if total > 0 {
		avgDecay = decaySum / float64(total)
	}

	return Result{
		CommitCount:    total,
		PanicScore:     panicScore,
		PanicCommits:   panicCommits,
		LastCommitDate: commits[0].Date.Format("2006-01-02"),
		Authors:        len(details),
		AuthorDetails:  details,
		TopAuthor:      topAuthor,
		RecencyDecay: RecencyDecay{
			OldestCommitDays:   int(oldestDays),
			NewestCommitDays:   int(newestDays),
			AverageDecayFactor: avgDecay,
		},
	}, nil
}

func maxPanicWeight(subject string, keywords map[string]float64) float64 {
	lower := strings.ToLower(subject)
	max := 0.0
	for kw, weight := range keywords {
		if strings.Contains(lower, kw) && weight > max {
			max = weight
		}
	}
	return max
}

func truncateSubject(subject string) string {
	if len(subject) <= subjectMaxLen {
		return subject
	}
	return subject[:subjectMaxLen]
}
