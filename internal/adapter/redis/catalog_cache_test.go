package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmahalla/portalcore/internal/domain"
)

// fakeRedis covers the three commands the cache issues. Everything else
// panics through the embedded nil interface.
type fakeRedis struct {
	goredis.Cmdable
	store   map[string][]byte
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{store: make(map[string][]byte)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *goredis.StringCmd {
	if f.failing {
		return goredis.NewStringResult("", errors.New("connection refused"))
	}
	data, ok := f.store[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(data), nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, _ time.Duration) *goredis.StatusCmd {
	if f.failing {
		return goredis.NewStatusResult("", errors.New("connection refused"))
	}
	f.store[key] = value.([]byte)
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *goredis.IntCmd {
	for _, key := range keys {
		delete(f.store, key)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

type countingCatalog struct {
	calls int
	nodes []domain.GeoNode
	err   error
}

func (c *countingCatalog) ListGeoNodes(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, error) {
	c.calls++
	return c.nodes, c.err
}

func TestListGeoNodes_PopulatesAndServesFromRedis(t *testing.T) {
	rdb := newFakeRedis()
	upstream := &countingCatalog{nodes: []domain.GeoNode{{ID: "r1", Name: "Tashkent", Type: domain.GeoRegion}}}
	cache := NewCatalogCache(rdb, upstream)

	first, err := cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls)

	second, err := cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")
	require.NoError(t, err)
	assert.Equal(t, 1, upstream.calls, "Second lookup is served from Redis")
	assert.Equal(t, first, second)
}

func TestListGeoNodes_KeysIncludeParentScope(t *testing.T) {
	rdb := newFakeRedis()
	upstream := &countingCatalog{nodes: []domain.GeoNode{{ID: "d1", Type: domain.GeoDistrict}}}
	cache := NewCatalogCache(rdb, upstream)

	_, err := cache.ListGeoNodes(context.Background(), domain.GeoDistrict, "r1")
	require.NoError(t, err)
	_, err = cache.ListGeoNodes(context.Background(), domain.GeoDistrict, "r2")
	require.NoError(t, err)

	assert.Equal(t, 2, upstream.calls, "Different parents are distinct cache entries")
	assert.Contains(t, rdb.store, "catalog_cache:district:r1")
	assert.Contains(t, rdb.store, "catalog_cache:district:r2")
}

func TestListGeoNodes_RedisFailureFallsThrough(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failing = true
	upstream := &countingCatalog{nodes: []domain.GeoNode{{ID: "r1", Type: domain.GeoRegion}}}
	cache := NewCatalogCache(rdb, upstream)

	nodes, err := cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")

	require.NoError(t, err, "Redis being down must not break catalog lookups")
	assert.Len(t, nodes, 1)
	assert.Equal(t, 1, upstream.calls)
}

func TestListGeoNodes_UpstreamErrorNotCached(t *testing.T) {
	rdb := newFakeRedis()
	upstream := &countingCatalog{err: errors.New("upstream down")}
	cache := NewCatalogCache(rdb, upstream)

	_, err := cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")

	require.Error(t, err)
	assert.Empty(t, rdb.store)
}

func TestInvalidate_DropsEntry(t *testing.T) {
	rdb := newFakeRedis()
	upstream := &countingCatalog{nodes: []domain.GeoNode{{ID: "r1", Type: domain.GeoRegion}}}
	cache := NewCatalogCache(rdb, upstream)

	_, err := cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(context.Background(), domain.GeoRegion, ""))

	_, err = cache.ListGeoNodes(context.Background(), domain.GeoRegion, "")
	require.NoError(t, err)
	assert.Equal(t, 2, upstream.calls, "Invalidated listing is refetched upstream")
}
