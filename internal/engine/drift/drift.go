// Package drift implements Engine D: comparing a target file's filesystem
// modification time against its coupled siblings to flag files that
// haven't kept pace.
package drift

import (
	"context"
	"os"
	"path/filepath"

	"github.com/memoria-dev/memoria/internal/concurrency"
	"github.com/memoria-dev/memoria/internal/engine/coupling"
)

// Stale is one coupled file whose mtime lags the target's by more than
// the drift threshold.
type Stale struct {
	File    string
	DaysOld int
}

const millisPerDay = 86_400_000

// Run stats the target file and each coupled entry (in parallel) and
// reports the ones older than driftDays. Entries whose stat fails
// (deleted, moved, renamed) are silently skipped.
func Run(ctx context.Context, repoRoot, targetAbsPath string, coupled []coupling.Entry, driftDays int) ([]Stale, error) {
	targetInfo, err := os.Stat(targetAbsPath)
	if err != nil {
		return nil, nil // target itself unreadable: no drift signal, not an error
	}
	targetMillis := targetInfo.ModTime().UnixMilli()

	type result struct {
		file    string
		daysOld int
		ok      bool
	}

	results, err := concurrency.MapConcurrent(ctx, coupled, concurrency.DefaultLimit,
		func(ctx context.Context, entry coupling.Entry) (result, error) {
			info, err := os.Stat(filepath.Join(repoRoot, entry.File))
			if err != nil {
				return result{}, nil // IgnoreNoise: skip files that can't be stat'd
			}
			daysOld := int((targetMillis - info.ModTime().UnixMilli()) / millisPerDay)
			return result{file: entry.File, daysOld: daysOld, ok: daysOld > driftDays}, nil
		})
	if err != nil {
		return nil, nil
	}

	var stale []Stale
	for _, r := range results {
		if r.ok {
			stale = append(stale, Stale{File: r.file, DaysOld: r.daysOld})
		}
	}
	return stale, nil
}
