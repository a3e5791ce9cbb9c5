package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appbenchmark "github.com/rentscope/rentscope/internal/application/benchmark"
	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/config"
	"github.com/rentscope/rentscope/internal/infrastructure/database/postgres"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
)

// jobDeps bundles what every one-off command needs.
type jobDeps struct {
	cfg *config.Config
	log logging.Logger
	db  *postgres.DB
}

func setupJob(ctx context.Context) (*jobDeps, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	db, err := postgres.NewDB(ctx, &cfg.Database, log)
	if err != nil {
		return nil, nil, err
	}
	return &jobDeps{cfg: cfg, log: log, db: db}, db.Close, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			log, err := logging.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			return postgres.RunMigrations(&cfg.Database, log)
		},
	}
}

func newBenchmarkSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "benchmark-sync",
		Short: "Run one benchmark sync pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, closeDB, err := setupJob(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			repo := postgres.NewBenchmarkRepository(deps.db, nil)
			syncer := appbenchmark.NewSyncer(appbenchmark.NewStaticSeedSource(), repo, deps.log)
			stats, err := syncer.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("fetched=%d written=%d skipped=%d\n", stats.Fetched, stats.Written, stats.Skipped)
			return nil
		},
	}
}

func newBackfillCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Run one estimate backfill pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, closeDB, err := setupJob(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			listings := postgres.NewListingRepository(deps.db, nil)
			rentals := postgres.NewRentalRepository(deps.db, nil)
			benchmarks := postgres.NewBenchmarkRepository(deps.db, nil)
			svc := estimate.NewService(benchmarks, rentals, nil, deps.cfg.Estimate, deps.log, nil)
			job := estimate.NewBackfiller(listings, svc, deps.log)

			stats, err := job.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d estimated=%d unavailable=%d failed=%d\n",
				stats.Scanned, stats.Estimated, stats.Unavailable, stats.Failed)
			return nil
		},
	}
}

func newEstimateCommand() *cobra.Command {
	var (
		lat, lon, baths float64
		beds, sqft      int
		areaKey, ptype  string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate rent for a single property",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, closeDB, err := setupJob(ctx)
			if err != nil {
				return err
			}
			defer closeDB()

			params := query.EstimateParams{
				Lat: lat, Lon: lon,
				AreaKey: areaKey, PropertyType: ptype,
			}
			if cmd.Flags().Changed("beds") {
				params.Beds = &beds
			}
			if cmd.Flags().Changed("baths") {
				params.Baths = &baths
			}
			if cmd.Flags().Changed("sqft") {
				params.Sqft = &sqft
			}

			req, err := query.CompileEstimate(params)
			if err != nil {
				return err
			}

			rentals := postgres.NewRentalRepository(deps.db, nil)
			benchmarks := postgres.NewBenchmarkRepository(deps.db, nil)
			svc := estimate.NewService(benchmarks, rentals, nil, deps.cfg.Estimate, deps.log, nil)

			result, err := svc.Estimate(ctx, req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "subject latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "subject longitude")
	cmd.Flags().IntVar(&beds, "beds", 3, "bedroom count")
	cmd.Flags().Float64Var(&baths, "baths", 0, "bathroom count")
	cmd.Flags().IntVar(&sqft, "sqft", 0, "living area")
	cmd.Flags().StringVar(&areaKey, "area-key", "", "benchmark area key")
	cmd.Flags().StringVar(&ptype, "property-type", "", "property type")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}
