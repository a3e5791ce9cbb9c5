package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

const listingColumns = `id, address, area_key, price, bedrooms, bathrooms, sqft,
	latitude, longitude, listing_type, status, property_type, estimated_rent,
	attributes, created_at, updated_at`

// ListingRepository implements listing.Repository over the relational store.
// All queries are parameterised and bounded by the pool's query timeout.
type ListingRepository struct {
	db      *DB
	metrics *prometheus.Metrics
}

// NewListingRepository wires the sale-inventory repository.  metrics may be
// nil.
func NewListingRepository(db *DB, metrics *prometheus.Metrics) *ListingRepository {
	return &ListingRepository{db: db, metrics: metrics}
}

// FindInBBox returns listings inside the box matching the filter, up to
// limit rows.  The composite (latitude, longitude) index carries the box
// predicate; attribute predicates are appended conjunctively.
func (r *ListingRepository) FindInBBox(ctx context.Context, box geo.BBox, filter listing.BBoxFilter, limit int) ([]*listing.Listing, error) {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("listings_bbox", time.Now())

	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds,
		"latitude IS NOT NULL",
		"longitude IS NOT NULL",
		fmt.Sprintf("latitude BETWEEN %s AND %s", arg(box.South), arg(box.North)),
		fmt.Sprintf("longitude BETWEEN %s AND %s", arg(box.West), arg(box.East)),
	)
	if filter.ListingType != "" {
		conds = append(conds, "listing_type = "+arg(string(filter.ListingType)))
	}
	if len(filter.Statuses) > 0 {
		holders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			holders[i] = arg(string(s))
		}
		conds = append(conds, "status IN ("+strings.Join(holders, ", ")+")")
	}
	if filter.MinPrice != nil {
		conds = append(conds, "price >= "+arg(*filter.MinPrice))
	}
	if filter.MaxPrice != nil {
		conds = append(conds, "price <= "+arg(*filter.MaxPrice))
	}
	if filter.MinBeds != nil {
		conds = append(conds, "bedrooms >= "+arg(*filter.MinBeds))
	}
	if filter.MinBaths != nil {
		conds = append(conds, "bathrooms >= "+arg(*filter.MinBaths))
	}
	if filter.PropertyType != "" {
		conds = append(conds, "property_type = "+arg(filter.PropertyType))
	}

	sql := fmt.Sprintf(`SELECT %s FROM listings WHERE %s LIMIT %s`,
		listingColumns, strings.Join(conds, " AND "), arg(limit))

	rows, err := r.db.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "listing bbox query failed")
	}
	defer rows.Close()

	return scanListings(rows)
}

// FindByID loads a single listing.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*listing.Listing, error) {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("listing_by_id", time.Now())

	rows, err := r.db.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM listings WHERE id = $1`, listingColumns), id)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "listing lookup failed")
	}
	defer rows.Close()

	out, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.NotFound("listing not found").WithDetail(id)
	}
	return out[0], nil
}

// FindMissingEstimate returns ids of for-sale listings with coordinates and
// no estimated rent, oldest first so backfill makes steady progress.
func (r *ListingRepository) FindMissingEstimate(ctx context.Context, limit int) ([]string, error) {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("listings_missing_estimate", time.Now())

	rows, err := r.db.pool.Query(ctx, `
		SELECT id FROM listings
		WHERE listing_type = 'for_sale'
		  AND latitude IS NOT NULL
		  AND longitude IS NOT NULL
		  AND estimated_rent IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "missing-estimate scan failed")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabase, "missing-estimate scan failed")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveEstimatedRent persists a rent snapshot.  Updating a row that no
// longer exists is not an error; the backfill job tolerates races with
// ingestion deletes.
func (r *ListingRepository) SaveEstimatedRent(ctx context.Context, id string, rent float64) error {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("listing_save_rent", time.Now())

	_, err := r.db.pool.Exec(ctx, `
		UPDATE listings SET estimated_rent = $1, updated_at = NOW() WHERE id = $2`,
		rent, id)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "estimated rent update failed")
	}
	return nil
}

func scanListings(rows pgx.Rows) ([]*listing.Listing, error) {
	var out []*listing.Listing
	for rows.Next() {
		var (
			l        listing.Listing
			attrsRaw []byte
		)
		if err := rows.Scan(
			&l.ID, &l.Address, &l.AreaKey, &l.Price, &l.Bedrooms, &l.Bathrooms,
			&l.Sqft, &l.Latitude, &l.Longitude, &l.ListingType, &l.Status,
			&l.PropertyType, &l.EstimatedRent, &attrsRaw, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabase, "listing row scan failed")
		}
		if len(attrsRaw) > 0 {
			if err := json.Unmarshal(attrsRaw, &l.Attributes); err != nil {
				return nil, errors.Wrap(err, errors.CodeSerialization, "listing attributes decode failed").WithDetail(l.ID)
			}
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "listing rows iteration failed")
	}
	return out, nil
}

func (r *ListingRepository) observe(query string, start time.Time) {
	if r.metrics != nil {
		r.metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
