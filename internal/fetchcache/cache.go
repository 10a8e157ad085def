package fetchcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/openmahalla/portalcore/internal/metrics"
)

// Status describes the lifecycle state of a cache entry.
type Status string

const (
	StatusIdle  Status = "idle"
	StatusFresh Status = "fresh"
	StatusStale Status = "stale"
	StatusError Status = "error"
)

// Entry is a read-only snapshot of a cache entry. Readers always receive a
// copy; the live record is owned exclusively by the Store and never aliased
// into caller state.
type Entry struct {
	Key       Key
	Data      any
	Err       error
	FetchedAt time.Time
	Status    Status
}

// Loader produces the data for a key. Loaders are only invoked by the Store.
type Loader func(ctx context.Context) (any, error)

// Options control a single Query call.
type Options struct {
	// Enabled gates execution: when false the loader is never called and the
	// query returns an idle entry. This is how dependent queries wait for
	// their prerequisites.
	Enabled bool
	// StaleTime is the window after a fetch during which the cached value is
	// served without re-invoking the loader. Zero means a cached value is
	// always revalidated on read (while still being served immediately).
	StaleTime time.Duration
}

type record struct {
	key       Key
	data      any
	err       error
	fetchedAt time.Time
	hasData   bool
	stale     bool
}

// Store is the process-wide keyed cache. A single Store is shared by every
// reader; workflow mutations invalidate through it.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	group   singleflight.Group
	clock   clockwork.Clock
}

// New creates an empty Store using the given clock for staleness decisions.
func New(clock clockwork.Clock) *Store {
	return &Store{
		records: make(map[string]*record),
		clock:   clock,
	}
}

// Query returns the entry for key, invoking loader as the contract requires:
//
//   - disabled: idle entry, loader not called
//   - fresh hit (within StaleTime, not invalidated): cached entry, loader not called
//   - stale hit: cached entry served immediately, refresh runs in background
//   - miss: blocks on the loader; concurrent misses for the same key share
//     one loader execution
//
// A loader failure on a miss surfaces as a StatusError entry and a non-nil
// error. A failed background refresh keeps the previous value visible.
func (s *Store) Query(ctx context.Context, key Key, loader Loader, opts Options) (Entry, error) {
	if !opts.Enabled {
		return Entry{Key: key, Status: StatusIdle}, nil
	}

	id := key.String()

	s.mu.RLock()
	rec := s.records[id]
	if rec != nil && rec.hasData {
		snapshot := s.snapshotLocked(rec)
		fresh := !rec.stale && s.clock.Since(rec.fetchedAt) <= opts.StaleTime
		s.mu.RUnlock()

		if fresh {
			metrics.CacheHitsTotal.Inc()
			snapshot.Status = StatusFresh
			return snapshot, nil
		}

		// Stale-while-revalidate: keep the previous value visible and
		// refresh behind the singleflight group so overlapping readers
		// trigger at most one loader run.
		metrics.CacheStaleServesTotal.Inc()
		s.refreshAsync(key, loader)
		snapshot.Status = StatusStale
		return snapshot, nil
	}
	s.mu.RUnlock()

	metrics.CacheMissesTotal.Inc()
	data, err := s.fetch(ctx, key, loader)
	if err != nil {
		return Entry{Key: key, Err: err, Status: StatusError}, err
	}
	return Entry{Key: key, Data: data, FetchedAt: s.clock.Now(), Status: StatusFresh}, nil
}

// Peek returns a snapshot of the entry for key without touching the loader.
func (s *Store) Peek(key Key) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key.String()]
	if !ok {
		return Entry{}, false
	}
	snapshot := s.snapshotLocked(rec)
	switch {
	case rec.err != nil:
		snapshot.Status = StatusError
	case rec.stale:
		snapshot.Status = StatusStale
	default:
		snapshot.Status = StatusFresh
	}
	return snapshot, true
}

// Invalidate marks every entry whose key starts with prefix as stale. The
// next read of a stale entry serves the old value and re-fetches. Workflow
// mutations call this synchronously, in the same task turn as their success,
// before any view re-reads the cache.
func (s *Store) Invalidate(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.key.HasPrefix(prefix) && !rec.stale {
			rec.stale = true
			metrics.CacheInvalidationsTotal.Inc()
		}
	}
}

// Mutate executes op immediately. Mutations are never deduplicated or
// cached, and a failure leaves every cache entry untouched. Serializing
// concurrent mutations for one submission is the caller's job (the form
// layer disables its trigger while one is pending).
func (s *Store) Mutate(ctx context.Context, op func(ctx context.Context) (any, error)) (any, error) {
	return op(ctx)
}

// fetch runs the loader behind the singleflight group and records the result.
func (s *Store) fetch(ctx context.Context, key Key, loader Loader) (any, error) {
	data, err, _ := s.group.Do(key.String(), func() (any, error) {
		data, err := loader(ctx)
		if err != nil {
			metrics.CacheRefreshErrorsTotal.Inc()
			s.storeError(key, err)
			return nil, err
		}
		s.storeData(key, data)
		return data, nil
	})
	return data, err
}

// refreshAsync revalidates a stale entry without blocking the reader. The
// loader runs detached from the caller's context: an abandoned read must
// discard the result, not abort the fetch.
func (s *Store) refreshAsync(key Key, loader Loader) {
	go func() {
		_, _ = s.fetch(context.Background(), key, loader)
	}()
}

func (s *Store) storeData(key Key, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key.String()] = &record{
		key:       key,
		data:      data,
		fetchedAt: s.clock.Now(),
		hasData:   true,
	}
	metrics.CacheEntries.Set(float64(len(s.records)))
}

// storeError records a loader failure. A previous value, if any, stays
// visible; the entry just stops being fresh.
func (s *Store) storeError(key Key, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := key.String()
	rec, ok := s.records[id]
	if !ok {
		rec = &record{key: key}
		s.records[id] = rec
	}
	rec.err = err
	rec.stale = true
	metrics.CacheEntries.Set(float64(len(s.records)))
}

func (s *Store) snapshotLocked(rec *record) Entry {
	return Entry{
		Key:       rec.key,
		Data:      rec.data,
		Err:       rec.err,
		FetchedAt: rec.fetchedAt,
	}
}

// Query is the typed convenience wrapper around Store.Query. A disabled
// query returns the zero value with no error.
func Query[T any](ctx context.Context, s *Store, key Key, loader func(ctx context.Context) (T, error), opts Options) (T, error) {
	entry, err := s.Query(ctx, key, func(ctx context.Context) (any, error) {
		return loader(ctx)
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	if entry.Data == nil {
		var zero T
		return zero, nil
	}
	data, ok := entry.Data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache entry %q holds %T, not %T", key.String(), entry.Data, zero)
	}
	return data, nil
}

// Mutate is the typed convenience wrapper around Store.Mutate.
func Mutate[T any](ctx context.Context, s *Store, op func(ctx context.Context) (T, error)) (T, error) {
	data, err := s.Mutate(ctx, func(ctx context.Context) (any, error) {
		return op(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	result, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("mutation returned %T, not %T", data, zero)
	}
	return result, nil
}
