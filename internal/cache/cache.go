// Package cache stores serialized analysis results in Redis keyed by dataset
// digest and configuration fingerprint. The pipeline is deterministic, so a
// cached result is indistinguishable from a fresh run.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"

	"hvacsight/internal/config"
	"hvacsight/internal/logging"
	"hvacsight/internal/metrics"
	"hvacsight/internal/models"
)

// ResultCache is a TTL cache of analysis results. A nil *ResultCache is a
// valid no-op cache.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logging.Logger
}

// New connects to Redis and returns the cache, or nil when no address is
// configured. Connection failure disables the cache rather than failing the
// service.
func New(cfg config.RedisConfig, log *logging.Logger) *ResultCache {
	if cfg.Addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("result cache disabled, redis unreachable", "addr", cfg.Addr, "error", err)
		return nil
	}
	return &ResultCache{client: client, ttl: cfg.TTL(), log: log.WithComponent("cache")}
}

// Key derives the cache key for one dataset + configuration pair.
func Key(dataset []byte, cfg config.Analysis) string {
	h := sha256.New()
	h.Write(dataset)
	h.Write([]byte{0})
	h.Write([]byte(cfg.Fingerprint()))
	return "hvacsight:result:" + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, or nil on miss or decode failure.
func (c *ResultCache) Get(ctx context.Context, key string) *models.AnalysisResult {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("cache read failed", "error", err)
		}
		metrics.CacheMisses.Inc()
		return nil
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.log.Warn("cache entry corrupt, dropping", "key", key, "error", err)
		c.client.Del(ctx, key)
		metrics.CacheMisses.Inc()
		return nil
	}
	metrics.CacheHits.Inc()
	return &result
}

// Set stores a result under key. Failures are logged and otherwise ignored;
// the cache is an optimization, never a dependency.
func (c *ResultCache) Set(ctx context.Context, key string, result *models.AnalysisResult) {
	if c == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		c.log.Warn("cache encode failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "error", err)
	}
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
