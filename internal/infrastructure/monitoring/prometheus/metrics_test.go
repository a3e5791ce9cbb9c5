package prometheus

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersWithoutPanic(t *testing.T) {
	m := NewMetrics("rentscope")
	require.NotNil(t, m)

	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/map/listings", "200").Inc()
	m.ClusterQueries.WithLabelValues("grid", "ok").Inc()
	m.CacheHitsTotal.WithLabelValues("viewport").Inc()
	m.RateLimitRejections.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/map/listings", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitRejections))
}

func TestMetrics_HandlerServesScrape(t *testing.T) {
	m := NewMetrics("rentscope")
	m.CacheMissesTotal.WithLabelValues("viewport").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "rentscope_cache_misses_total")
}

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a := NewMetrics("rentscope")
	b := NewMetrics("rentscope")
	a.RateLimitRejections.Inc()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RateLimitRejections))
}
