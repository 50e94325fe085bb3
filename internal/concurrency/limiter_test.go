package concurrency

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapConcurrent_PreservesInputOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	results, err := MapConcurrent(context.Background(), items, 5, func(_ context.Context, n int) (int, error) {
		// Randomize completion order so a naive append-under-mutex
		// implementation would visibly reorder results.
		time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)
		return n * 2, nil
	})

	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, i*2, r, "result at index %d should match its input's transform regardless of completion order", i)
	}
}

func TestMapConcurrent_RespectsLimit(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	items := make([]int, 20)

	_, err := MapConcurrent(context.Background(), items, 3, func(_ context.Context, _ int) (int, error) {
		cur := inFlight.Add(1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(3))
}

func TestMapConcurrent_PropagatesError(t *testing.T) {
	items := []int{1, 2, 3}
	boom := errors.New("boom")

	_, err := MapConcurrent(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	assert.ErrorIs(t, err, boom)
}

func TestMapConcurrent_EmptyInput(t *testing.T) {
	results, err := MapConcurrent(context.Background(), []int{}, 5, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	require.NoError(t, err)
	assert.Empty(t, results)
}
