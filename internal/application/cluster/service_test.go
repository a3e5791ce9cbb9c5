package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

// fixtureRepo serves canned listings, applying the bbox and limit the way a
// real store would.
type fixtureRepo struct {
	listings []*listing.Listing
	err      error
	calls    int
}

func (r *fixtureRepo) FindInBBox(ctx context.Context, box geo.BBox, filter listing.BBoxFilter, limit int) ([]*listing.Listing, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []*listing.Listing
	for _, l := range r.listings {
		if !l.HasCoordinates() || !box.Contains(l.Point()) {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *fixtureRepo) FindByID(ctx context.Context, id string) (*listing.Listing, error) {
	return nil, errors.NotFound("not implemented")
}

func (r *fixtureRepo) FindMissingEstimate(ctx context.Context, limit int) ([]string, error) {
	return nil, nil
}

func (r *fixtureRepo) SaveEstimatedRent(ctx context.Context, id string, rent float64) error {
	return nil
}

// mapCache is an in-process Cache round-tripping values through the
// interface the redis cache satisfies.
type mapCache struct {
	entries map[string]any
	sets    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]any{}} }

func (c *mapCache) Get(ctx context.Context, key string, dest any) error {
	v, ok := c.entries[key]
	if !ok {
		return errors.NotFound("miss")
	}
	*dest.(*FeatureCollection) = *v.(*FeatureCollection)
	return nil
}

func (c *mapCache) Set(ctx context.Context, key string, value any) {
	c.sets++
	c.entries[key] = value
}

func fixtureListing(id string, lat, lon, price float64) *listing.Listing {
	return &listing.Listing{
		ID:          id,
		Address:     id + " Test Ave",
		Price:       &price,
		Latitude:    &lat,
		Longitude:   &lon,
		ListingType: listing.TypeForSale,
		Status:      listing.StatusActive,
		Bedrooms:    3,
		Bathrooms:   2,
		Sqft:        1400,
	}
}

func viewport(t *testing.T, west, south, east, north, zoom float64) *query.Viewport {
	t.Helper()
	v, err := query.CompileViewport(query.ViewportParams{
		West: west, South: south, East: east, North: north, Zoom: zoom,
	})
	require.NoError(t, err)
	return v
}

func newTestService(repo listing.Repository, cache Cache) *Service {
	var keyFn KeyFunc
	if cache != nil {
		keyFn = func(ns string, params map[string]string) string {
			key := ns
			for _, k := range []string{"west", "south", "east", "north", "zoom", "status"} {
				key += "|" + params[k]
			}
			return key
		}
	}
	return NewService(repo, cache, keyFn, Config{}, logging.NewNopLogger(), nil)
}

func TestCluster_CountsSumToMatchingListings(t *testing.T) {
	repo := &fixtureRepo{listings: []*listing.Listing{
		fixtureListing("in-1", 41.45, -82.95, 120000),
		fixtureListing("in-2", 41.46, -82.96, 130000),
		fixtureListing("in-3", 41.48, -82.92, 140000),
		fixtureListing("out-1", 40.0, -84.0, 150000),
		fixtureListing("out-2", 42.0, -81.0, 160000),
	}}
	svc := newTestService(repo, nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.4, -82.9, 41.5, 10))
	require.NoError(t, err)
	assert.Equal(t, StrategyClusters, fc.Strategy)

	sum := 0
	for _, f := range fc.Features {
		assert.Equal(t, "cluster", f.Kind)
		sum += f.Count
		assert.NotEqual(t, "out-1", f.ID)
		assert.NotEqual(t, "out-2", f.ID)
	}
	assert.Equal(t, 3, sum)
	assert.Equal(t, 3, fc.Total)
}

func TestCluster_SingletonSurfacesListing(t *testing.T) {
	repo := &fixtureRepo{listings: []*listing.Listing{
		fixtureListing("solo", 41.45, -82.95, 120000),
	}}
	svc := newTestService(repo, nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.4, -82.9, 41.5, 12))
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, 1, f.Count)
	assert.Equal(t, "solo", f.ID)
	assert.Equal(t, "solo Test Ave", f.Address)
	require.NotNil(t, f.Price)
	assert.InDelta(t, 120000, *f.Price, 1e-9)
}

func TestCluster_HighZoomReturnsIndividualListings(t *testing.T) {
	repo := &fixtureRepo{listings: []*listing.Listing{
		fixtureListing("a", 41.45, -82.95, 120000),
		fixtureListing("b", 41.46, -82.96, 130000),
	}}
	svc := newTestService(repo, nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.4, -82.9, 41.5, 15))
	require.NoError(t, err)
	assert.Equal(t, StrategyListings, fc.Strategy)
	require.Len(t, fc.Features, 2)
	for _, f := range fc.Features {
		assert.Equal(t, "listing", f.Kind)
		assert.NotEmpty(t, f.ID)
		assert.True(t, geo.BBox{West: -83.0, South: 41.4, East: -82.9, North: 41.5}.
			Contains(geo.Point{Lat: f.Lat, Lon: f.Lon}))
	}
}

func TestCluster_IndividualModeHonorsCap(t *testing.T) {
	repo := &fixtureRepo{}
	for i := 0; i < 30; i++ {
		repo.listings = append(repo.listings,
			fixtureListing(string(rune('a'+i)), 41.40+float64(i)*0.001, -82.95, 100000))
	}
	svc := NewService(repo, nil, nil, Config{MaxListings: 10}, logging.NewNopLogger(), nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.3, -82.9, 41.5, 16))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(fc.Features), 10)
}

func TestCluster_AbusiveViewportRejected(t *testing.T) {
	repo := &fixtureRepo{}
	svc := newTestService(repo, nil)

	_, err := svc.Cluster(context.Background(), viewport(t, -120.0, 20.0, -60.0, 50.0, 16))
	require.Error(t, err)
	assert.Equal(t, errors.CodeViewportAbusive, errors.GetCode(err))
	assert.Zero(t, repo.calls, "abusive viewports must fail before any store work")
}

func TestCluster_WideViewportAtLowZoomIsFine(t *testing.T) {
	repo := &fixtureRepo{}
	svc := newTestService(repo, nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -120.0, 20.0, -60.0, 50.0, 4))
	require.NoError(t, err)
	assert.Equal(t, StrategyClusters, fc.Strategy)
	assert.Empty(t, fc.Features)
	assert.Equal(t, 0, fc.Total)
}

func TestCluster_CacheHitSkipsStore(t *testing.T) {
	repo := &fixtureRepo{listings: []*listing.Listing{
		fixtureListing("a", 41.45, -82.95, 120000),
	}}
	cache := newMapCache()
	svc := newTestService(repo, cache)
	v := viewport(t, -83.0, 41.4, -82.9, 41.5, 10)

	first, err := svc.Cluster(context.Background(), v)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, repo.calls)

	second, err := svc.Cluster(context.Background(), v)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, repo.calls, "cache hit must not touch the store")
	assert.Equal(t, first.Total, second.Total)
}

func TestCluster_StoreFailureNotCached(t *testing.T) {
	repo := &fixtureRepo{err: errors.New(errors.CodeDatabase, "connection refused")}
	cache := newMapCache()
	svc := newTestService(repo, cache)

	_, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.4, -82.9, 41.5, 10))
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabase, errors.GetCode(err))
	assert.Zero(t, cache.sets, "failures must never be cached")
}

func TestCluster_SkipsListingsWithoutCoordinates(t *testing.T) {
	bare := &listing.Listing{ID: "no-coords", Address: "1 Nowhere", ListingType: listing.TypeForSale, Status: listing.StatusActive}
	repo := &fixtureRepo{listings: []*listing.Listing{
		bare,
		fixtureListing("a", 41.45, -82.95, 120000),
	}}
	svc := newTestService(repo, nil)

	fc, err := svc.Cluster(context.Background(), viewport(t, -83.0, 41.4, -82.9, 41.5, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, fc.Total)
}
