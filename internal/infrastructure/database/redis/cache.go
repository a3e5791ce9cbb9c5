package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Key derives a deterministic cache key from request parameters.  Parameters
// are sorted by name before hashing so that two requests differing only in
// parameter order map to the same entry.
func Key(namespace string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
		b.WriteByte('&')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return namespace + ":" + hex.EncodeToString(sum[:16])
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	TTL       time.Duration `mapstructure:"ttl"`
	JitterPct float64       `mapstructure:"jitter_pct"`
}

// Cache is a fail-open JSON cache on Redis.  Backend errors are logged,
// counted, and reported to callers as misses so the read path never fails
// because Redis did.  Concurrent loads of the same key are collapsed with
// singleflight.
type Cache struct {
	client  *Client
	config  CacheConfig
	logger  logging.Logger
	metrics *prometheus.Metrics
	group   singleflight.Group
}

// NewCache builds a cache over an established client.  metrics may be nil.
func NewCache(client *Client, cfg CacheConfig, log logging.Logger, metrics *prometheus.Metrics) *Cache {
	if cfg.TTL == 0 {
		cfg.TTL = 120 * time.Second
	}
	if cfg.JitterPct == 0 {
		cfg.JitterPct = 0.10
	}
	return &Cache{client: client, config: cfg, logger: log, metrics: metrics}
}

// Get loads and unmarshals the entry at key into dest.  A miss, a backend
// error, and a corrupt entry all return a not-found error; only a miss is
// silent, the others are logged and counted.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	full := c.client.config.KeyPrefix + key

	raw, err := c.client.rdb.Get(ctx, full).Bytes()
	if err == redis.Nil {
		c.countMiss()
		return errors.NotFound("cache miss")
	}
	if err != nil {
		c.countError("get")
		c.logger.Warn("cache get failed, treating as miss",
			logging.String("key", key), logging.Err(err))
		return errors.NotFound("cache unavailable")
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.countError("decode")
		c.logger.Warn("cache entry corrupt, treating as miss",
			logging.String("key", key), logging.Err(err))
		return errors.NotFound("cache entry corrupt")
	}

	c.countHit()
	return nil
}

// Set stores value at key with the configured TTL plus jitter.  Failures are
// logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.countError("encode")
		c.logger.Warn("cache encode failed", logging.String("key", key), logging.Err(err))
		return
	}

	full := c.client.config.KeyPrefix + key
	if err := c.client.rdb.Set(ctx, full, raw, c.ttl()).Err(); err != nil {
		c.countError("set")
		c.logger.Warn("cache set failed", logging.String("key", key), logging.Err(err))
	}
}

// GetOrLoad returns the cached entry at key, or invokes load, caches its
// result, and returns it.  Concurrent callers for the same key share one
// load.  Errors from load are returned uncached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, dest any, load func(ctx context.Context) (any, error)) (cached bool, err error) {
	if err := c.Get(ctx, key, dest); err == nil {
		return true, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, v)
		return v, nil
	})
	if err != nil {
		return false, err
	}

	// Round-trip through JSON so every caller receives an independent copy
	// regardless of whether it was the singleflight winner.
	raw, err := json.Marshal(value)
	if err != nil {
		return false, errors.Wrap(err, errors.CodeSerialization, "cache value not serializable")
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrap(err, errors.CodeSerialization, "cache value decode failed")
	}
	return false, nil
}

// Invalidate removes the entry at key.  Best effort.
func (c *Cache) Invalidate(ctx context.Context, key string) {
	full := c.client.config.KeyPrefix + key
	if err := c.client.rdb.Del(ctx, full).Err(); err != nil {
		c.logger.Warn("cache invalidate failed", logging.String("key", key), logging.Err(err))
	}
}

func (c *Cache) ttl() time.Duration {
	jitter := time.Duration(float64(c.config.TTL) * c.config.JitterPct * rand.Float64())
	return c.config.TTL + jitter
}

func (c *Cache) countHit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues("get").Inc()
	}
}

func (c *Cache) countMiss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues("get").Inc()
	}
}

func (c *Cache) countError(op string) {
	if c.metrics != nil {
		c.metrics.CacheErrorsTotal.WithLabelValues(op).Inc()
	}
}
