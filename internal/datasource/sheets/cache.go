// internal/datasource/sheets/cache.go
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"query-orchestrator/internal/agents/seo"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/metrics"
)

const DefaultCacheTTL = 5 * time.Minute

// CachedSource keeps the last loaded table in Redis for a TTL. Redis failures
// fall through to the wrapped source.
type CachedSource struct {
	source seo.DataSource
	redis  redis.Cmdable
	key    string
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(source seo.DataSource, rdb redis.Cmdable, key string, ttl time.Duration, log logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		source: source,
		redis:  rdb,
		key:    key,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{
			"cacheKey": key,
		}),
	}
}

// CacheKey namespaces cached tables by spreadsheet and range.
func CacheKey(spreadsheetID, readRange string) string {
	return "seo:table:" + spreadsheetID + ":" + readRange
}

func (c *CachedSource) Load(ctx context.Context) (*seo.Table, error) {
	data, err := c.redis.Get(ctx, c.key).Bytes()
	switch {
	case err == nil:
		var table seo.Table
		if err := json.Unmarshal(data, &table); err == nil {
			metrics.SEOCacheLookups.WithLabelValues("hit").Inc()
			return &table, nil
		}
		c.logger.Warn("discarding unreadable cached table", nil)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("cache read failed", map[string]interface{}{"error": err.Error()})
	}
	metrics.SEOCacheLookups.WithLabelValues("miss").Inc()

	table, err := c.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(table); err == nil {
		if err := c.redis.Set(ctx, c.key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return table, nil
}

// Invalidate drops the cached table.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, c.key).Err()
}
