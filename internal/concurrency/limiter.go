// Package concurrency provides the bounded, order-preserving parallel map
// used by every component that fans out per-commit or per-file git and
// filesystem work.
package concurrency

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// DefaultLimit is the concurrency cap applied across the engine's git and
// filesystem fan-out (commit walks, per-commit file listings, mtime
// stats, project-metrics sampling).
const DefaultLimit = 5

// MapConcurrent applies fn to each item with at most limit goroutines
// in flight, and returns results in the same order as items regardless
// of which goroutine finishes first. A non-nil error from any fn call
// aborts the remaining work and is returned, wrapped with context about
// which item failed only by the caller (this function returns the raw
// error from fn).
func MapConcurrent[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]R, len(items))
	p := pool.New().WithMaxGoroutines(limit).WithContext(ctx).WithCancelOnError()

	for i, item := range items {
		i, item := i, item
		p.Go(func(ctx context.Context) error {
			r, err := fn(ctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
