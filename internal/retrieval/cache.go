package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/spherical-ai/phone-advisor/internal/cache"
	"github.com/spherical-ai/phone-advisor/internal/observability"
)

const cacheKeyPrefix = "retrieval"

// ResultCache stores search results keyed by index version, so a rebuild
// makes older entries unreachable. A nil *ResultCache is a no-op.
type ResultCache struct {
	client cache.Client
	ttl    time.Duration
	logger *observability.Logger
}

// NewResultCache wraps client for use with WithResultCache.
func NewResultCache(client cache.Client, ttl time.Duration, logger *observability.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResultCache{client: client, ttl: ttl, logger: logger}
}

type cachedResult struct {
	Evidence []Evidence `json:"evidence"`
	CachedAt time.Time  `json:"cached_at"`
}

func (c *ResultCache) key(version, query string, k int) string {
	hash := sha256.Sum256([]byte(query + "|" + strconv.Itoa(k)))
	return cache.Key(cacheKeyPrefix, version, hex.EncodeToString(hash[:16]))
}

func (c *ResultCache) get(ctx context.Context, version, query string, k int) ([]Evidence, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	key := c.key(version, query, k)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Debug().Err(err).Str("key", key).Msg("Cache get error")
		}
		observability.RetrieverCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached result")
		observability.RetrieverCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	observability.RetrieverCacheLookups.WithLabelValues("hit").Inc()
	return cached.Evidence, true
}

func (c *ResultCache) set(ctx context.Context, version, query string, k int, evidence []Evidence) {
	if c == nil || c.client == nil {
		return
	}

	key := c.key(version, query, k)
	data, err := json.Marshal(cachedResult{Evidence: evidence, CachedAt: time.Now().UTC()})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to marshal result")
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Failed to cache result")
	}
}

func (c *ResultCache) invalidate(ctx context.Context, version string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.DeleteByPrefix(ctx, cache.Key(cacheKeyPrefix, version)+":")
}
