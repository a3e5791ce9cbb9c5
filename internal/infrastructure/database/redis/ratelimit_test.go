package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
)

func newTestLimiter(t *testing.T, cfg RateLimitConfig) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := NewClientWithRDB(rdb, &Config{KeyPrefix: "test:"}, logging.NewNopLogger())
	return NewRateLimiter(client, cfg, logging.NewNopLogger(), nil), mr
}

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 3, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := limiter.Allow(ctx, "10.0.0.1")
		require.True(t, d.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, d.Limit)
		assert.Equal(t, 2-i, d.Remaining)
	}
}

func TestRateLimiter_RejectsOverLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 2, Window: time.Minute})
	ctx := context.Background()

	limiter.Allow(ctx, "10.0.0.1")
	limiter.Allow(ctx, "10.0.0.1")
	d := limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute})
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.False(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.True(t, limiter.Allow(ctx, "10.0.0.2").Allowed)
}

func TestRateLimiter_WindowReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.False(t, limiter.Allow(ctx, "10.0.0.1").Allowed)

	limiter.now = func() time.Time { return base.Add(time.Minute) }
	assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
}

func TestRateLimiter_FailOpen(t *testing.T) {
	limiter, mr := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute})
	mr.Close()

	d := limiter.Allow(context.Background(), "10.0.0.1")
	assert.True(t, d.Allowed, "backend failure must not reject requests")
}

func TestRateLimiter_SetConfigAppliesWithoutRestart(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: true, Limit: 1, Window: time.Minute})
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	assert.False(t, limiter.Allow(ctx, "10.0.0.1").Allowed)

	limiter.SetConfig(RateLimitConfig{Enabled: true, Limit: 5, Window: time.Minute})
	d := limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, d.Allowed, "raised limit must take effect on the live window")
	assert.Equal(t, 5, d.Limit)
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, RateLimitConfig{Enabled: false, Limit: 1, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ctx, "10.0.0.1").Allowed)
	}
}
