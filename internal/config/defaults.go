package config

import "github.com/spf13/viper"

// setDefaults seeds viper so a bare environment still yields a runnable
// local configuration.  Subsystem applyDefaults functions cover zero values
// for anything not listed here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "rentscope")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.migrations_path", "migrations")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "rentscope:")

	v.SetDefault("cache.ttl", "120s")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("cluster.cluster_zoom_threshold", 14)
	v.SetDefault("cluster.max_listings", 2000)
	v.SetDefault("cluster.abusive_span_degrees", 50)

	v.SetDefault("estimate.radius_miles", 2.0)
	v.SetDefault("estimate.sparse_radius_miles", 3.5)
	v.SetDefault("estimate.lookback_days", 90)
	v.SetDefault("estimate.weights.benchmark", 0.30)
	v.SetDefault("estimate.weights.comps", 0.50)
	v.SetDefault("estimate.weights.fallback", 0.20)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.benchmark_sync_spec", "0 4 * * *")
	v.SetDefault("scheduler.backfill_spec", "*/30 * * * *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
