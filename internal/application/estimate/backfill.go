package estimate

import (
	"context"

	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

// BackfillBatchSize bounds one backfill pass.  The job is cheap to rerun,
// so a modest batch keeps each pass well inside a scheduler tick.
const BackfillBatchSize = 500

// BackfillStats summarizes one backfill pass.
type BackfillStats struct {
	Scanned     int
	Estimated   int
	Unavailable int
	Failed      int
}

// Backfiller walks for-sale listings with no estimated rent and persists a
// fresh estimate onto each.  Persistence is idempotent; a failed row is
// logged and skipped, never retried within the pass.
type Backfiller struct {
	listings listing.Repository
	service  *Service
	logger   logging.Logger
}

// NewBackfiller wires the backfill job.
func NewBackfiller(listings listing.Repository, service *Service, log logging.Logger) *Backfiller {
	return &Backfiller{listings: listings, service: service, logger: log}
}

// Run performs one batch pass.  Stops early when the context is cancelled;
// already-persisted rows stay persisted.
func (b *Backfiller) Run(ctx context.Context) (*BackfillStats, error) {
	ids, err := b.listings.FindMissingEstimate(ctx, BackfillBatchSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "backfill candidate scan failed")
	}

	stats := &BackfillStats{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Scanned++

		if err := b.backfillOne(ctx, id); err != nil {
			if errors.IsCode(err, errors.CodeEstimateNotAvailable) {
				stats.Unavailable++
				continue
			}
			stats.Failed++
			b.logger.Warn("backfill row failed", logging.String("id", id), logging.Err(err))
			continue
		}
		stats.Estimated++
	}

	b.logger.Info("backfill pass complete",
		logging.Int("scanned", stats.Scanned),
		logging.Int("estimated", stats.Estimated),
		logging.Int("unavailable", stats.Unavailable),
		logging.Int("failed", stats.Failed))
	return stats, nil
}

func (b *Backfiller) backfillOne(ctx context.Context, id string) error {
	l, err := b.listings.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !l.HasCoordinates() {
		return errors.New(errors.CodeEstimateNotAvailable, "listing has no coordinates")
	}

	req := &query.EstimateRequest{
		Subject:      l.Point(),
		Beds:         l.Bedrooms,
		AreaKey:      l.AreaKey,
		PropertyType: l.PropertyType,
	}
	if l.Bathrooms > 0 {
		baths := l.Bathrooms
		req.Baths = &baths
	}
	if l.Sqft > 0 {
		sqft := l.Sqft
		req.Sqft = &sqft
	}
	if l.Attributes.YearBuilt > 0 {
		year := l.Attributes.YearBuilt
		req.YearBuilt = &year
	}
	if req.Beds == 0 {
		req.Beds = 3
	}

	result, err := b.service.Estimate(ctx, req)
	if err != nil {
		return err
	}
	if !result.Available {
		return errors.New(errors.CodeEstimateNotAvailable, result.Reason)
	}
	return b.listings.SaveEstimatedRent(ctx, id, result.EstimatedRent)
}
