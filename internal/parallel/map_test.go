package parallel_test

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pipeweld/pipeweld/internal/parallel"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMap(t *testing.T) {
	t.Parallel()

	square := func(_ context.Context, n int) (int, error) {
		return n * n, nil
	}

	input := []int{1, 2, 3, 4, 5, 6, 7, 8}
	expected := []int{1, 4, 9, 16, 25, 36, 49, 64}

	for _, limit := range []int{1, 4, 16} {
		m := parallel.NewMap(t.Context(), limit, square)
		require.ElementsMatch(t, expected, values(t, m.Iter(all(input))))
	}
}

func TestMapElementErrors(t *testing.T) {
	t.Parallel()

	errOdd := errors.New("odd")
	f := func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errOdd
		}
		return n, nil
	}

	var evens []int
	var failures int
	m := parallel.NewMap(t.Context(), 3, f)
	for n, err := range m.Iter(all([]int{1, 2, 3, 4, 5, 6})) {
		if err != nil {
			require.ErrorIs(t, err, errOdd)
			failures++
			continue
		}
		evens = append(evens, n)
	}
	require.Equal(t, 3, failures, "one element failing must not stop the others")
	require.ElementsMatch(t, []int{2, 4, 6}, evens)
}

func TestMapHonorsLimit(t *testing.T) {
	t.Parallel()

	const limit = 2
	var running, peak atomic.Int32
	f := func(_ context.Context, n int) (int, error) {
		now := running.Add(1)
		defer running.Add(-1)
		for {
			old := peak.Load()
			if now <= old || peak.CompareAndSwap(old, now) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return n, nil
	}

	m := parallel.NewMap(t.Context(), limit, f)
	got := values(t, m.Iter(all([]int{1, 2, 3, 4, 5, 6, 7, 8})))
	require.Len(t, got, 8)
	require.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestMapCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	m := parallel.NewMap(ctx, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	require.Empty(t, values(t, m.Iter(all([]int{1, 2, 3}))))
}

func TestMapAbandoned(t *testing.T) {
	t.Parallel()

	m := parallel.NewMap(t.Context(), 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})
	for range m.Iter(all([]int{1, 2, 3, 4, 5, 6, 7, 8})) {
		break // leaving early must not strand the workers
	}
}

func all[T any](s []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, x := range s {
			if !yield(x, nil) {
				return
			}
		}
	}
}

func values[T any](t *testing.T, i iter.Seq2[T, error]) []T {
	t.Helper()
	var ret []T
	for v, err := range i {
		require.NoError(t, err)
		ret = append(ret, v)
	}
	return ret
}
