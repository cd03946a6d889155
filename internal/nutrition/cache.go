package nutrition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type cacheKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache stores successful lookups in Redis. Redis failures fall through to next.
type Cache struct {
	rdb  cacheKV
	next Searcher
	ttl  time.Duration
	log  *zap.Logger
}

// NewCache wraps next with a Redis cache.
func NewCache(rdb cacheKV, next Searcher, ttl time.Duration, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, next: next, ttl: ttl, log: log}
}

func cacheKey(query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(norm))
	return "nutrition:" + hex.EncodeToString(sum[:])
}

// Search serves from cache when possible.
func (c *Cache) Search(ctx context.Context, query string) (json.RawMessage, error) {
	key := cacheKey(query)
	hit, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		return json.RawMessage(hit), nil
	case !errors.Is(err, redis.Nil):
		c.log.Warn("nutrition cache get", zap.Error(err))
	}

	body, err := c.next.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if err := c.rdb.Set(ctx, key, []byte(body), c.ttl).Err(); err != nil {
		c.log.Warn("nutrition cache set", zap.Error(err))
	}
	return body, nil
}
