// Package config loads and validates the service configuration from file
// and environment.
package config

import (
	"github.com/rentscope/rentscope/internal/application/cluster"
	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/infrastructure/database/postgres"
	"github.com/rentscope/rentscope/internal/infrastructure/database/redis"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	httpiface "github.com/rentscope/rentscope/internal/interfaces/http"
	"github.com/rentscope/rentscope/internal/interfaces/http/middleware"
	"github.com/rentscope/rentscope/internal/scheduler"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Config is the root configuration tree.  Every subsystem owns its own
// section type; this package only aggregates, loads, and validates.
type Config struct {
	Server    httpiface.ServerConfig `mapstructure:"server"`
	Database  postgres.Config        `mapstructure:"database"`
	Redis     redis.Config           `mapstructure:"redis"`
	Cache     redis.CacheConfig      `mapstructure:"cache"`
	RateLimit redis.RateLimitConfig  `mapstructure:"rate_limit"`
	Cluster   cluster.Config         `mapstructure:"cluster"`
	Estimate  estimate.Config        `mapstructure:"estimate"`
	Scheduler scheduler.Config       `mapstructure:"scheduler"`
	CORS      middleware.CORSConfig  `mapstructure:"cors"`
	Logging   logging.Config         `mapstructure:"logging"`
}

// Validate rejects configurations that would start a service unable to
// answer correctly.  Defaults fill gaps elsewhere; this catches values that
// are present but wrong.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.Validation("server.port out of range")
	}
	if c.Database.User == "" {
		return errors.Validation("database.user is required")
	}
	if c.Database.Database == "" {
		return errors.Validation("database.database is required")
	}
	if c.RateLimit.Limit < 0 {
		return errors.Validation("rate_limit.limit must not be negative")
	}
	if c.Cluster.ClusterZoomThreshold < 0 || c.Cluster.ClusterZoomThreshold > 24 {
		return errors.Validation("cluster.cluster_zoom_threshold out of range")
	}
	if c.Estimate.ScamFloorRatio < 0 || c.Estimate.ScamFloorRatio >= 1 {
		if c.Estimate.ScamFloorRatio != 0 {
			return errors.Validation("estimate.scam_floor_ratio must be in (0,1)")
		}
	}
	w := c.Estimate.Weights
	if w.Benchmark < 0 || w.Comps < 0 || w.Fallback < 0 {
		return errors.Validation("estimate.weights must not be negative")
	}
	return nil
}
