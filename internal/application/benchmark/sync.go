package benchmark

import (
	"context"
	"time"

	domain "github.com/rentscope/rentscope/internal/domain/benchmark"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

// SyncStats summarizes one sync pass.
type SyncStats struct {
	Fetched int
	Written int
	Skipped int
}

// Syncer refreshes the benchmark table from an external source.  Invalid
// rows are logged and skipped so one bad upstream record cannot starve the
// rest of the feed.
type Syncer struct {
	source domain.Source
	repo   domain.Repository
	logger logging.Logger
	now    func() time.Time
}

// NewSyncer wires the sync job.
func NewSyncer(source domain.Source, repo domain.Repository, log logging.Logger) *Syncer {
	return &Syncer{source: source, repo: repo, logger: log, now: time.Now}
}

// Run performs one full sync pass.
func (s *Syncer) Run(ctx context.Context) (*SyncStats, error) {
	rows, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "benchmark source fetch failed")
	}

	stats := &SyncStats{Fetched: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		row.UpdatedAt = s.now().UTC()
		if err := row.Validate(); err != nil {
			stats.Skipped++
			s.logger.Warn("skipping invalid benchmark row",
				logging.String("area_key", row.AreaKey), logging.Err(err))
			continue
		}
		if err := s.repo.Upsert(ctx, row); err != nil {
			stats.Skipped++
			s.logger.Warn("benchmark upsert failed",
				logging.String("area_key", row.AreaKey), logging.Err(err))
			continue
		}
		stats.Written++
	}

	s.logger.Info("benchmark sync complete",
		logging.Int("fetched", stats.Fetched),
		logging.Int("written", stats.Written),
		logging.Int("skipped", stats.Skipped))
	return stats, nil
}
