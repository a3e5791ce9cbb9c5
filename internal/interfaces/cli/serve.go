package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appbenchmark "github.com/rentscope/rentscope/internal/application/benchmark"
	"github.com/rentscope/rentscope/internal/application/cluster"
	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/config"
	"github.com/rentscope/rentscope/internal/infrastructure/database/postgres"
	"github.com/rentscope/rentscope/internal/infrastructure/database/redis"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	httpiface "github.com/rentscope/rentscope/internal/interfaces/http"
	"github.com/rentscope/rentscope/internal/interfaces/http/handlers"
	"github.com/rentscope/rentscope/internal/interfaces/http/middleware"
	"github.com/rentscope/rentscope/internal/scheduler"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}

	metrics := prometheus.NewMetrics("rentscope")

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, &cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// Redis is optional at startup: the cache and limiter both fail open,
	// so a missing backend degrades rather than blocks.
	var (
		cacheLayer  *redis.Cache
		rateLimiter *redis.RateLimiter
		limiter     middleware.Limiter
		cachePing   handlers.Pinger
	)
	redisClient, err := redis.NewClient(&cfg.Redis, log)
	if err != nil {
		log.Warn("redis unavailable, running without cache and rate limiting", logging.Err(err))
	} else {
		defer redisClient.Close()
		cacheLayer = redis.NewCache(redisClient, cfg.Cache, log, metrics)
		rateLimiter = redis.NewRateLimiter(redisClient, cfg.RateLimit, log, metrics)
		limiter = rateLimiter
		cachePing = redisClient
	}

	// Hot reload applies the safe subset (the rate limit knobs); everything
	// else needs a restart and a reload only logs it.
	if cfgPath != "" {
		err := config.Watch(cfgPath,
			func(next *config.Config) {
				if rateLimiter != nil {
					rateLimiter.SetConfig(next.RateLimit)
				}
				log.Info("configuration reloaded",
					logging.Int("rate_limit", next.RateLimit.Limit))
			},
			func(err error) {
				log.Warn("config reload rejected, previous configuration stays", logging.Err(err))
			})
		if err != nil {
			log.Warn("config watch unavailable", logging.Err(err))
		}
	}

	listings := postgres.NewListingRepository(db, metrics)
	rentals := postgres.NewRentalRepository(db, metrics)
	benchmarks := postgres.NewBenchmarkRepository(db, metrics)

	var clusterCache cluster.Cache
	var keyFn cluster.KeyFunc
	if cacheLayer != nil {
		clusterCache = cacheLayer
		keyFn = redis.Key
	}
	clusters := cluster.NewService(listings, clusterCache, keyFn, cfg.Cluster, log, metrics)
	estimates := estimate.NewService(benchmarks, rentals, nil, cfg.Estimate, log, metrics)

	syncer := appbenchmark.NewSyncer(appbenchmark.NewStaticSeedSource(), benchmarks, log)
	backfiller := estimate.NewBackfiller(listings, estimates, log)
	sched, err := scheduler.New(cfg.Scheduler, syncer, backfiller, log)
	if err != nil {
		return err
	}
	sched.Start()

	router := httpiface.NewRouter(httpiface.RouterDeps{
		Clusters:  clusters,
		Estimates: estimates,
		Health:    handlers.NewHealthHandler(Version, db, cachePing),
		Limiter:   limiter,
		Metrics:   metrics,
		CORS:      cfg.CORS,
		Logger:    log,
	})
	server := httpiface.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sched.Stop(shutdownCtx)
	return server.Shutdown(shutdownCtx)
}
