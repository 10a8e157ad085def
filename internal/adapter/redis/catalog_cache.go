// Package redis caches region catalog listings in Redis. Catalog data
// changes rarely, so listings are shared across gateway instances with a
// long TTL. Redis failures never surface to callers; lookups fall through
// to the upstream catalog.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/openmahalla/portalcore/internal/domain"
	"github.com/openmahalla/portalcore/internal/metrics"
)

const catalogCacheTTL = 1 * time.Hour

// CatalogCache decorates a RegionCatalog with a shared Redis layer.
type CatalogCache struct {
	rdb      goredis.Cmdable
	upstream domain.RegionCatalog
}

func NewCatalogCache(rdb goredis.Cmdable, upstream domain.RegionCatalog) *CatalogCache {
	return &CatalogCache{rdb: rdb, upstream: upstream}
}

func (c *CatalogCache) ListGeoNodes(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, error) {
	if nodes, ok := c.getCached(ctx, nodeType, parentID); ok {
		metrics.CatalogCacheRedisHits.Inc()
		return nodes, nil
	}

	nodes, err := c.upstream.ListGeoNodes(ctx, nodeType, parentID)
	if err != nil {
		return nil, err
	}
	metrics.CatalogCacheUpstreamHits.Inc()

	c.writeCache(ctx, nodeType, parentID, nodes)
	return nodes, nil
}

// Invalidate drops one cached listing. Used by the admin refresh hook when
// the municipality republishes its catalog.
func (c *CatalogCache) Invalidate(ctx context.Context, nodeType domain.GeoNodeType, parentID string) error {
	return c.rdb.Del(ctx, catalogCacheKey(nodeType, parentID)).Err()
}

func (c *CatalogCache) getCached(ctx context.Context, nodeType domain.GeoNodeType, parentID string) ([]domain.GeoNode, bool) {
	key := catalogCacheKey(nodeType, parentID)

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.Warn("Redis catalog cache GET failed", "key", key, "error", err)
		}
		return nil, false
	}

	var nodes []domain.GeoNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		slog.Warn("Failed to unmarshal cached catalog listing", "key", key, "error", err)
		return nil, false
	}

	return nodes, true
}

func (c *CatalogCache) writeCache(ctx context.Context, nodeType domain.GeoNodeType, parentID string, nodes []domain.GeoNode) {
	key := catalogCacheKey(nodeType, parentID)

	encoded, err := json.Marshal(nodes)
	if err != nil {
		slog.Warn("Failed to marshal catalog listing for Redis cache", "key", key, "error", err)
		return
	}

	if err := c.rdb.Set(ctx, key, encoded, catalogCacheTTL).Err(); err != nil {
		slog.Warn("Failed to populate Redis catalog cache", "key", key, "error", err)
	}
}

func catalogCacheKey(nodeType domain.GeoNodeType, parentID string) string {
	if parentID == "" {
		return "catalog_cache:" + string(nodeType)
	}
	return "catalog_cache:" + string(nodeType) + ":" + parentID
}
