// Package scheduler runs the background jobs on a cron cadence: the
// benchmark sync (slow, upstream data changes monthly) and the estimate
// backfill (faster, keeps freshly ingested listings annotated).
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	appbenchmark "github.com/rentscope/rentscope/internal/application/benchmark"
	"github.com/rentscope/rentscope/internal/application/estimate"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Config holds the job schedules in cron syntax.
type Config struct {
	Enabled           bool          `mapstructure:"enabled"`
	BenchmarkSyncSpec string        `mapstructure:"benchmark_sync_spec"`
	BackfillSpec      string        `mapstructure:"backfill_spec"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
}

func (c *Config) applyDefaults() {
	if c.BenchmarkSyncSpec == "" {
		c.BenchmarkSyncSpec = "0 4 * * *" // daily, off-peak
	}
	if c.BackfillSpec == "" {
		c.BackfillSpec = "*/30 * * * *"
	}
	if c.JobTimeout == 0 {
		c.JobTimeout = 10 * time.Minute
	}
}

// Scheduler owns the cron runner and the job wiring.
type Scheduler struct {
	cron       *cron.Cron
	config     Config
	syncer     *appbenchmark.Syncer
	backfiller *estimate.Backfiller
	logger     logging.Logger
}

// New builds the scheduler.  Either job may be nil and is then not
// registered.
func New(cfg Config, syncer *appbenchmark.Syncer, backfiller *estimate.Backfiller, log logging.Logger) (*Scheduler, error) {
	cfg.applyDefaults()
	s := &Scheduler{
		cron:       cron.New(cron.WithChain(cron.Recover(cronLogger{log}), cron.SkipIfStillRunning(cronLogger{log}))),
		config:     cfg,
		syncer:     syncer,
		backfiller: backfiller,
		logger:     log,
	}

	if syncer != nil {
		if _, err := s.cron.AddFunc(cfg.BenchmarkSyncSpec, s.runBenchmarkSync); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "invalid benchmark sync schedule")
		}
	}
	if backfiller != nil {
		if _, err := s.cron.AddFunc(cfg.BackfillSpec, s.runBackfill); err != nil {
			return nil, errors.Wrap(err, errors.CodeValidation, "invalid backfill schedule")
		}
	}
	return s, nil
}

// Start begins the cron loop.  No-op when disabled.
func (s *Scheduler) Start() {
	if !s.config.Enabled {
		s.logger.Info("scheduler disabled")
		return
	}
	s.cron.Start()
	s.logger.Info("scheduler started",
		logging.String("benchmark_sync", s.config.BenchmarkSyncSpec),
		logging.String("backfill", s.config.BackfillSpec))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out with jobs still running")
	}
}

func (s *Scheduler) runBenchmarkSync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()
	if _, err := s.syncer.Run(ctx); err != nil {
		s.logger.Error("benchmark sync failed", logging.Err(err))
	}
}

func (s *Scheduler) runBackfill() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.JobTimeout)
	defer cancel()
	if _, err := s.backfiller.Run(ctx); err != nil {
		s.logger.Error("estimate backfill failed", logging.Err(err))
	}
}

// cronLogger adapts the structured logger to cron's logging contract.
type cronLogger struct {
	log logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, logging.Any("kv", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, logging.Err(err), logging.Any("kv", keysAndValues))
}
