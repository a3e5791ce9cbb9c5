package listing

import (
	"context"
	"time"

	"github.com/rentscope/rentscope/pkg/types/geo"
)

// BBoxFilter is the compiled, store-safe predicate set applied to bounding
// box queries.  Zero values mean "no constraint" except Statuses, which the
// filter compiler always populates (for-sale by default).
type BBoxFilter struct {
	MinPrice     *float64
	MaxPrice     *float64
	MinBeds      *int
	MinBaths     *float64
	PropertyType string
	ListingType  Type
	Statuses     []Status
}

// RentalQuery bounds a comparable-rental lookup around a subject property.
type RentalQuery struct {
	Center      geo.Point
	RadiusMiles float64
	MinBeds     int
	MaxBeds     int
	MinPrice    float64
	MaxPrice    float64
	Lookback    time.Duration
	Limit       int
}

// Repository is the spatial store contract for sale inventory.  The
// implementation must use parameterised queries only and bound every query
// with the calling context's deadline.
type Repository interface {
	// FindInBBox returns listings with valid coordinates inside the box
	// that match the filter, up to limit rows.  The result order is
	// unspecified.
	FindInBBox(ctx context.Context, box geo.BBox, filter BBoxFilter, limit int) ([]*Listing, error)

	// FindByID loads a single listing.
	FindByID(ctx context.Context, id string) (*Listing, error)

	// FindMissingEstimate returns ids of for-sale listings with coordinates
	// whose estimated_rent column is empty, up to limit rows.  Used by the
	// backfill job, never by request handlers.
	FindMissingEstimate(ctx context.Context, limit int) ([]string, error)

	// SaveEstimatedRent persists a computed rent snapshot onto a listing.
	// The update is idempotent and safe to retry or skip on failure.
	SaveEstimatedRent(ctx context.Context, id string, rent float64) error
}

// RentalRepository is the spatial store contract for rental comparables.
type RentalRepository interface {
	// FindNearby returns rentals matching the query.  Implementations may
	// pre-filter with a coarse bounding box and leave exact radius checks
	// to the caller, but every returned row must carry valid coordinates
	// and a positive price.
	FindNearby(ctx context.Context, q RentalQuery) ([]*Rental, error)
}
