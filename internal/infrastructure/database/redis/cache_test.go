package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	client := NewClientWithRDB(rdb, &Config{KeyPrefix: "test:"}, logging.NewNopLogger())
	cache := NewCache(client, CacheConfig{TTL: time.Minute}, logging.NewNopLogger(), nil)
	return cache, mr
}

func TestKey_Deterministic(t *testing.T) {
	a := Key("map", map[string]string{"zoom": "12", "bbox": "-83,41,-82,42", "status": "for_sale"})
	b := Key("map", map[string]string{"status": "for_sale", "bbox": "-83,41,-82,42", "zoom": "12"})
	assert.Equal(t, a, b, "parameter order must not change the key")
}

func TestKey_DistinguishesParams(t *testing.T) {
	a := Key("map", map[string]string{"zoom": "12"})
	b := Key("map", map[string]string{"zoom": "13"})
	c := Key("estimate", map[string]string{"zoom": "12"})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	type payload struct {
		Count int    `json:"count"`
		Name  string `json:"name"`
	}

	cache.Set(ctx, "k1", payload{Count: 3, Name: "cleveland"})

	var got payload
	require.NoError(t, cache.Get(ctx, "k1", &got))
	assert.Equal(t, payload{Count: 3, Name: "cleveland"}, got)
}

func TestCache_Miss(t *testing.T) {
	cache, _ := newTestCache(t)

	var got map[string]any
	err := cache.Get(context.Background(), "absent", &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCache_FailOpenOnBackendError(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	cache.Set(ctx, "k1", "value")

	mr.Close()

	var got string
	err := cache.Get(ctx, "k1", &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "backend failure must look like a miss")

	// Set after failure must not panic or surface an error.
	cache.Set(ctx, "k2", "value")
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	cache, mr := newTestCache(t)
	require.NoError(t, mr.Set("test:bad", "{not json"))

	var got map[string]any
	err := cache.Get(context.Background(), "bad", &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestCache_GetOrLoad(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	loads := 0
	load := func(ctx context.Context) (any, error) {
		loads++
		return map[string]int{"n": 7}, nil
	}

	var first map[string]int
	cached, err := cache.GetOrLoad(ctx, "k", &first, load)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 7, first["n"])

	var second map[string]int
	cached, err = cache.GetOrLoad(ctx, "k", &second, load)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 7, second["n"])
	assert.Equal(t, 1, loads)
}

func TestCache_GetOrLoad_LoadErrorNotCached(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	var dest string
	_, err := cache.GetOrLoad(ctx, "k", &dest, func(ctx context.Context) (any, error) {
		return nil, errors.Internal("store down")
	})
	require.Error(t, err)

	// A later successful load must not see a cached failure.
	cached, err := cache.GetOrLoad(ctx, "k", &dest, func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "ok", dest)
}

// miniredis cannot inject per-command failures, so single-command error
// paths use a command-level mock instead.
func TestCache_GetBackendErrorIsMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	client := NewClientWithRDB(rdb, &Config{KeyPrefix: "test:"}, logging.NewNopLogger())
	cache := NewCache(client, CacheConfig{TTL: time.Minute}, logging.NewNopLogger(), nil)

	mock.ExpectGet("test:k").SetErr(goredis.ErrClosed)

	var got string
	err := cache.Get(context.Background(), "k", &got)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_TTLApplied(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	cache.Set(ctx, "k", "v")
	ttl := mr.TTL("test:k")
	assert.GreaterOrEqual(t, ttl, time.Minute)
	assert.LessOrEqual(t, ttl, time.Minute+10*time.Second)

	mr.FastForward(2 * time.Minute)
	var got string
	err := cache.Get(ctx, "k", &got)
	assert.True(t, errors.IsNotFound(err))
}
