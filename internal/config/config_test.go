package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/rentscope/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, float64(14), cfg.Cluster.ClusterZoomThreshold)
	assert.Equal(t, 2000, cfg.Cluster.MaxListings)
	assert.InDelta(t, 0.50, cfg.Estimate.Weights.Comps, 1e-9)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  user: rent
  database: rentscope
cluster:
  max_listings: 500
rate_limit:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "rent", cfg.Database.User)
	assert.Equal(t, 500, cfg.Cluster.MaxListings)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("RENTSCOPE_SERVER_PORT", "7070")
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 99999\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestLoad_MissingFileRejected(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestWatch_DeliversValidReload(t *testing.T) {
	path := writeConfig(t, "rate_limit:\n  limit: 120\n")

	reloads := make(chan *Config, 8)
	failures := make(chan error, 8)
	require.NoError(t, Watch(path,
		func(cfg *Config) { reloads <- cfg },
		func(err error) { failures <- err }))

	require.NoError(t, os.WriteFile(path, []byte("rate_limit:\n  limit: 30\n"), 0o644))

	require.Eventually(t, func() bool {
		select {
		case cfg := <-reloads:
			return cfg.RateLimit.Limit == 30
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond, "reload with the edited limit never arrived")
}

func TestWatch_InvalidEditReportedNotDelivered(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")

	reloads := make(chan *Config, 8)
	failures := make(chan error, 8)
	require.NoError(t, Watch(path,
		func(cfg *Config) { reloads <- cfg },
		func(err error) { failures <- err }))

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 99999\n"), 0o644))

	require.Eventually(t, func() bool {
		select {
		case err := <-failures:
			return errors.IsValidation(err)
		default:
			return false
		}
	}, 5*time.Second, 20*time.Millisecond, "validation failure never reported")
	assert.Empty(t, reloads, "an invalid edit must not reach subscribers")
}

func TestWatch_RequiresPath(t *testing.T) {
	err := Watch("", func(*Config) {}, func(error) {})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestValidate_WeightsMustBeNonNegative(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Estimate.Weights.Comps = -0.5
	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
