package fetchcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_HasPrefix(t *testing.T) {
	key := K("submissions", "request", "my")

	assert.True(t, key.HasPrefix(K("submissions")))
	assert.True(t, key.HasPrefix(K("submissions", "request")))
	assert.True(t, key.HasPrefix(K("submissions", "request", "my")))
	assert.True(t, key.HasPrefix(K()))
	assert.False(t, key.HasPrefix(K("submissions", "msk-order")))
	assert.False(t, key.HasPrefix(K("submissions", "request", "my", "extra")))
}

func TestQuery_DisabledSkipsLoader(t *testing.T) {
	store := New(clockwork.NewFakeClock())
	calls := 0

	entry, err := store.Query(context.Background(), K("regions", "district", ""), func(ctx context.Context) (any, error) {
		calls++
		return nil, nil
	}, Options{Enabled: false})

	require.NoError(t, err)
	assert.Equal(t, StatusIdle, entry.Status)
	assert.Nil(t, entry.Data)
	assert.Zero(t, calls, "Disabled query must not invoke loader")
}

func TestQuery_FreshHitSkipsLoader(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := New(clock)
	opts := Options{Enabled: true, StaleTime: 30 * time.Second}
	calls := 0
	loader := func(ctx context.Context) (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	entry, err := store.Query(context.Background(), K("regions", "region"), loader, opts)
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, entry.Status)
	assert.Equal(t, 1, calls)

	// Within the staleness window the cached entry is served as-is.
	clock.Advance(29 * time.Second)
	entry, err = store.Query(context.Background(), K("regions", "region"), loader, opts)
	require.NoError(t, err)
	assert.Equal(t, StatusFresh, entry.Status)
	assert.Equal(t, []string{"a", "b"}, entry.Data)
	assert.Equal(t, 1, calls, "Fresh hit must not re-invoke loader")
}

func TestQuery_StaleServesPreviousValueWhileRefreshing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := New(clock)
	opts := Options{Enabled: true, StaleTime: 10 * time.Second}

	var calls atomic.Int32
	refreshed := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		n := calls.Add(1)
		if n > 1 {
			defer close(refreshed)
			return "new", nil
		}
		return "old", nil
	}

	key := K("submissions", "request", "my")
	_, err := store.Query(context.Background(), key, loader, opts)
	require.NoError(t, err)

	clock.Advance(11 * time.Second)

	// Past the window: the previous value stays visible, no flash-to-empty.
	entry, err := store.Query(context.Background(), key, loader, opts)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, entry.Status)
	assert.Equal(t, "old", entry.Data)

	select {
	case <-refreshed:
	case <-time.After(2 * time.Second):
		t.Fatal("background refresh never ran")
	}

	require.Eventually(t, func() bool {
		e, ok := store.Peek(key)
		return ok && e.Data == "new"
	}, 2*time.Second, 10*time.Millisecond, "refresh result should land in the cache")
}

func TestQuery_ConcurrentMissesInvokeLoaderOnce(t *testing.T) {
	store := New(clockwork.NewFakeClock())

	var calls atomic.Int32
	release := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	key := K("submissions", "msk-order", "my")
	opts := Options{Enabled: true, StaleTime: time.Minute}

	var wg sync.WaitGroup
	results := make([]any, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry, err := store.Query(context.Background(), key, loader, opts)
			assert.NoError(t, err)
			results[i] = entry.Data
		}(i)
	}

	// Give both goroutines time to join the in-flight group, then let the
	// single loader finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "Overlapping queries for one key must share a loader run")
	assert.Equal(t, 42, results[0])
	assert.Equal(t, 42, results[1])
}

func TestQuery_LoaderErrorSurfacesAndIsNotCached(t *testing.T) {
	store := New(clockwork.NewFakeClock())
	opts := Options{Enabled: true, StaleTime: time.Minute}
	boom := errors.New("catalog unreachable")

	calls := 0
	failing := func(ctx context.Context) (any, error) {
		calls++
		return nil, boom
	}

	key := K("regions", "street", "n1")
	entry, err := store.Query(context.Background(), key, failing, opts)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, entry.Status)

	peeked, ok := store.Peek(key)
	require.True(t, ok)
	assert.Equal(t, StatusError, peeked.Status)

	// The failure is not cached as a value: the next read retries.
	working := func(ctx context.Context) (any, error) {
		calls++
		return "ok", nil
	}
	entry, err = store.Query(context.Background(), key, working, opts)
	require.NoError(t, err)
	assert.Equal(t, "ok", entry.Data)
	assert.Equal(t, 2, calls)
}

func TestInvalidate_PrefixMarksDescendantsStale(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := New(clock)
	opts := Options{Enabled: true, StaleTime: time.Hour}

	load := func(v string) Loader {
		return func(ctx context.Context) (any, error) { return v, nil }
	}

	_, err := store.Query(context.Background(), K("submissions", "request", "my"), load("list"), opts)
	require.NoError(t, err)
	_, err = store.Query(context.Background(), K("submissions", "request", "r1"), load("detail"), opts)
	require.NoError(t, err)
	_, err = store.Query(context.Background(), K("profile", "me"), load("profile"), opts)
	require.NoError(t, err)

	store.Invalidate(K("submissions", "request"))

	entry, ok := store.Peek(K("submissions", "request", "my"))
	require.True(t, ok)
	assert.Equal(t, StatusStale, entry.Status)

	entry, ok = store.Peek(K("submissions", "request", "r1"))
	require.True(t, ok)
	assert.Equal(t, StatusStale, entry.Status)

	// Unrelated keys stay fresh.
	entry, ok = store.Peek(K("profile", "me"))
	require.True(t, ok)
	assert.Equal(t, StatusFresh, entry.Status)
}

func TestInvalidate_ForcesRevalidationOnNextRead(t *testing.T) {
	store := New(clockwork.NewFakeClock())
	opts := Options{Enabled: true, StaleTime: time.Hour}

	var calls atomic.Int32
	refetched := make(chan struct{})
	loader := func(ctx context.Context) (any, error) {
		if calls.Add(1) > 1 {
			defer close(refetched)
			return "v2", nil
		}
		return "v1", nil
	}

	key := K("submissions", "service-report", "my")
	_, err := store.Query(context.Background(), key, loader, opts)
	require.NoError(t, err)

	store.Invalidate(K("submissions"))

	// Still within StaleTime, but the invalidation wins: the entry is
	// treated as stale and revalidated.
	entry, err := store.Query(context.Background(), key, loader, opts)
	require.NoError(t, err)
	assert.Equal(t, StatusStale, entry.Status)
	assert.Equal(t, "v1", entry.Data)

	select {
	case <-refetched:
	case <-time.After(2 * time.Second):
		t.Fatal("invalidated entry was never re-fetched")
	}
}

func TestMutate_AlwaysExecutes(t *testing.T) {
	store := New(clockwork.NewFakeClock())

	calls := 0
	op := func(ctx context.Context) (string, error) {
		calls++
		return "done", nil
	}

	for i := 0; i < 3; i++ {
		result, err := Mutate(context.Background(), store, op)
		require.NoError(t, err)
		assert.Equal(t, "done", result)
	}
	assert.Equal(t, 3, calls, "Mutations are never deduplicated")
}

func TestMutate_FailureLeavesCacheUntouched(t *testing.T) {
	store := New(clockwork.NewFakeClock())
	opts := Options{Enabled: true, StaleTime: time.Hour}

	key := K("submissions", "request", "my")
	_, err := store.Query(context.Background(), key, func(ctx context.Context) (any, error) {
		return "before", nil
	}, opts)
	require.NoError(t, err)

	_, err = store.Mutate(context.Background(), func(ctx context.Context) (any, error) {
		return nil, errors.New("upstream rejected")
	})
	require.Error(t, err)

	entry, ok := store.Peek(key)
	require.True(t, ok)
	assert.Equal(t, "before", entry.Data)
	assert.Equal(t, StatusFresh, entry.Status)
}

func TestQueryTyped_ReturnsZeroValueWhenDisabled(t *testing.T) {
	store := New(clockwork.NewFakeClock())

	list, err := Query(context.Background(), store, K("regions", "district", ""), func(ctx context.Context) ([]string, error) {
		return []string{"unused"}, nil
	}, Options{Enabled: false})

	require.NoError(t, err)
	assert.Nil(t, list)
}
