// Package fetchcache is the process-wide read/write coordination layer.
//
// Reads go through Query, which caches loader results under typed keys with
// a per-call staleness window, collapses concurrent loads for the same key,
// and serves the previous value while a stale entry revalidates in the
// background (no flash-to-empty). Writes go through Mutate, which always
// executes immediately; callers invalidate the keys a successful mutation
// could have changed. The cache never retries - retry policy belongs to the
// transport adapters.
package fetchcache
