package postgres

import (
	"context"
	"math"
	"time"

	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Degrees of latitude per mile; used to turn a radius into a coarse
// bounding box the index can serve.
const degreesPerMile = 1.0 / 69.0

// Floor for the longitude convergence factor so boxes near the poles stay
// finite.
const minLonCos = 0.01

// searchBox returns the half-widths in degrees of a bounding box that
// covers a radius around the center.  A degree of longitude spans only
// 69*cos(lat) miles, so the east-west half-width widens with latitude; the
// box over-fetches the circle's corners and the caller applies the exact
// haversine cut.
func searchBox(centerLat, radiusMiles float64) (latHalf, lonHalf float64) {
	latHalf = radiusMiles * degreesPerMile
	c := math.Cos(centerLat * math.Pi / 180)
	if c < minLonCos {
		c = minLonCos
	}
	return latHalf, latHalf / c
}

// RentalRepository implements listing.RentalRepository over the relational
// store.
type RentalRepository struct {
	db      *DB
	metrics *prometheus.Metrics
}

// NewRentalRepository wires the rental-comparables repository.  metrics may
// be nil.
func NewRentalRepository(db *DB, metrics *prometheus.Metrics) *RentalRepository {
	return &RentalRepository{db: db, metrics: metrics}
}

// FindNearby returns recent rentals around the query center.  The box
// prefilter over-fetches the circle's corners; exact radius filtering is
// the caller's job per the repository contract.
func (r *RentalRepository) FindNearby(ctx context.Context, q listing.RentalQuery) ([]*listing.Rental, error) {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe(time.Now())

	latHalf, lonHalf := searchBox(q.Center.Lat, q.RadiusMiles)
	cutoff := time.Now().Add(-q.Lookback)

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, address, area_key, price, bedrooms, bathrooms, sqft,
		       latitude, longitude, COALESCE(year_built, 0), created_at
		FROM rental_listings
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4
		  AND price > $5
		  AND price < $6
		  AND bedrooms BETWEEN $7 AND $8
		  AND created_at > $9
		LIMIT $10`,
		q.Center.Lat-latHalf, q.Center.Lat+latHalf,
		q.Center.Lon-lonHalf, q.Center.Lon+lonHalf,
		q.MinPrice, q.MaxPrice,
		q.MinBeds, q.MaxBeds,
		cutoff, q.Limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "rental comps query failed")
	}
	defer rows.Close()

	var out []*listing.Rental
	for rows.Next() {
		var rental listing.Rental
		if err := rows.Scan(
			&rental.ID, &rental.Address, &rental.AreaKey, &rental.Price,
			&rental.Bedrooms, &rental.Bathrooms, &rental.Sqft,
			&rental.Latitude, &rental.Longitude, &rental.YearBuilt, &rental.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabase, "rental row scan failed")
		}
		out = append(out, &rental)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "rental rows iteration failed")
	}
	return out, nil
}

func (r *RentalRepository) observe(start time.Time) {
	if r.metrics != nil {
		r.metrics.DBQueryDuration.WithLabelValues("rentals_nearby").Observe(time.Since(start).Seconds())
	}
}
