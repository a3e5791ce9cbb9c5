package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
)

// RateLimitConfig controls the fixed-window per-client limiter.
type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

func (c *RateLimitConfig) applyDefaults() {
	if c.Limit == 0 {
		c.Limit = 120
	}
	if c.Window == 0 {
		c.Window = time.Minute
	}
}

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter implements a fixed-window counter per client key.  When Redis
// is unreachable the limiter fails open: the request is allowed and the
// failure is logged.  The config may be swapped at runtime via SetConfig;
// counting stays correct across a swap because each window keeps its own
// key.
type RateLimiter struct {
	client  *Client
	logger  logging.Logger
	metrics *prometheus.Metrics
	now     func() time.Time

	mu     sync.RWMutex
	config RateLimitConfig
}

// NewRateLimiter builds a limiter over an established client.  metrics may
// be nil.
func NewRateLimiter(client *Client, cfg RateLimitConfig, log logging.Logger, metrics *prometheus.Metrics) *RateLimiter {
	cfg.applyDefaults()
	return &RateLimiter{client: client, config: cfg, logger: log, metrics: metrics, now: time.Now}
}

// SetConfig replaces the limiter configuration.  Used by the config
// hot-reload path so operators can tighten or relax the limit without a
// restart.
func (l *RateLimiter) SetConfig(cfg RateLimitConfig) {
	cfg.applyDefaults()
	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
}

// Allow counts a request against the client's current window and reports
// whether it is within the limit.
func (l *RateLimiter) Allow(ctx context.Context, clientKey string) Decision {
	l.mu.RLock()
	cfg := l.config
	l.mu.RUnlock()

	window := l.now().Truncate(cfg.Window)
	resetAt := window.Add(cfg.Window)

	if !cfg.Enabled {
		return Decision{Allowed: true, Limit: cfg.Limit, Remaining: cfg.Limit, ResetAt: resetAt}
	}

	key := fmt.Sprintf("%sratelimit:%s:%d", l.client.config.KeyPrefix, clientKey, window.Unix())

	pipe := l.client.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("rate limiter backend failed, allowing request",
			logging.String("client", clientKey), logging.Err(err))
		return Decision{Allowed: true, Limit: cfg.Limit, Remaining: cfg.Limit, ResetAt: resetAt}
	}

	count := int(incr.Val())
	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	allowed := count <= cfg.Limit
	if !allowed && l.metrics != nil {
		l.metrics.RateLimitRejections.Inc()
	}
	return Decision{Allowed: allowed, Limit: cfg.Limit, Remaining: remaining, ResetAt: resetAt}
}
