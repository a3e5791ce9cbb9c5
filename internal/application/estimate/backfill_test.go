package estimate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

type fakeListings struct {
	byID    map[string]*listing.Listing
	missing []string
	saved   map[string]float64
}

func (f *fakeListings) FindInBBox(ctx context.Context, box geo.BBox, filter listing.BBoxFilter, limit int) ([]*listing.Listing, error) {
	return nil, nil
}

func (f *fakeListings) FindByID(ctx context.Context, id string) (*listing.Listing, error) {
	l, ok := f.byID[id]
	if !ok {
		return nil, errors.NotFound("listing not found").WithDetail(id)
	}
	return l, nil
}

func (f *fakeListings) FindMissingEstimate(ctx context.Context, limit int) ([]string, error) {
	if len(f.missing) > limit {
		return f.missing[:limit], nil
	}
	return f.missing, nil
}

func (f *fakeListings) SaveEstimatedRent(ctx context.Context, id string, rent float64) error {
	if f.saved == nil {
		f.saved = map[string]float64{}
	}
	f.saved[id] = rent
	return nil
}

func backfillListing(id, areaKey, propertyType string) *listing.Listing {
	lat, lon := subject.Lat, subject.Lon
	return &listing.Listing{
		ID:           id,
		Address:      id + " Backfill Rd",
		AreaKey:      areaKey,
		Bedrooms:     2,
		Latitude:     &lat,
		Longitude:    &lon,
		ListingType:  listing.TypeForSale,
		Status:       listing.StatusActive,
		PropertyType: propertyType,
	}
}

func TestBackfill_PersistsEstimates(t *testing.T) {
	listings := &fakeListings{
		byID: map[string]*listing.Listing{
			"covered":   backfillListing("covered", "44114", "SINGLE_FAMILY"),
			"uncovered": backfillListing("uncovered", "99999", "SINGLE_FAMILY"),
			"land":      backfillListing("land", "44114", "VACANT_LAND"),
		},
		missing: []string{"covered", "uncovered", "land"},
	}
	svc := newTestService(clevelandBenchmarks(1000), &fakeRentals{}, nil)
	job := NewBackfiller(listings, svc, logging.NewNopLogger())

	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 1, stats.Estimated)
	assert.Equal(t, 2, stats.Unavailable)
	assert.Equal(t, 0, stats.Failed)

	require.Contains(t, listings.saved, "covered")
	assert.InDelta(t, 1000, listings.saved["covered"], 1e-9)
	assert.NotContains(t, listings.saved, "uncovered")
	assert.NotContains(t, listings.saved, "land")
}

func TestBackfill_ScanFailurePropagates(t *testing.T) {
	listings := &fakeListings{missing: []string{"a"}}
	svc := newTestService(clevelandBenchmarks(1000), &fakeRentals{}, nil)
	job := NewBackfiller(listings, svc, logging.NewNopLogger())

	stats, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed, "a row that cannot load counts as failed")
	assert.Equal(t, 0, stats.Estimated)
}
