// Package listing defines the sale-inventory and rental-comparable entities
// that the spatial query and rent estimation engines operate on, plus the
// repository contracts their persistence must satisfy.
package listing

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rentscope/rentscope/pkg/errors"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

// Type distinguishes the market segment a listing belongs to.
type Type string

const (
	TypeForSale Type = "for_sale"
	TypeForRent Type = "for_rent"
	TypeSold    Type = "sold"
)

// Status is the lifecycle state of a listing within its segment.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusOffMarket Status = "off_market"
)

// Attributes is the typed side-data carried by a listing.  Known fields the
// engines care about are explicit; everything else the ingestion pipeline
// delivers lands in Extra so nothing is lost but nothing untyped leaks into
// estimation or clustering logic.
type Attributes struct {
	YearBuilt    int            `json:"year_built,omitempty"`
	HOAFee       float64        `json:"hoa_fee,omitempty"`
	LotSqft      int            `json:"lot_sqft,omitempty"`
	Description  string         `json:"description,omitempty"`
	Neighborhood string         `json:"neighborhood,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Listing is a property on the sale market.  Coordinates are pointers: a
// listing without them is excluded from all spatial operations but remains
// valid for non-spatial views.
type Listing struct {
	ID            string
	Address       string
	AreaKey       string // postal-style area code, keys the benchmark table
	Price         *float64
	Bedrooms      int
	Bathrooms     float64
	Sqft          int
	Latitude      *float64
	Longitude     *float64
	ListingType   Type
	Status        Status
	PropertyType  string
	EstimatedRent *float64
	Attributes    Attributes
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New constructs a Listing with a fresh identifier and timestamps.
func New(address string, listingType Type) *Listing {
	now := time.Now().UTC()
	return &Listing{
		ID:          uuid.NewString(),
		Address:     address,
		ListingType: listingType,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HasCoordinates reports whether the listing carries a valid coordinate
// pair.  Listings failing this check never enter clustering or comps.
func (l *Listing) HasCoordinates() bool {
	if l.Latitude == nil || l.Longitude == nil {
		return false
	}
	return geo.Point{Lat: *l.Latitude, Lon: *l.Longitude}.Valid()
}

// Point returns the listing's coordinate pair.  Callers must check
// HasCoordinates first.
func (l *Listing) Point() geo.Point {
	return geo.Point{Lat: *l.Latitude, Lon: *l.Longitude}
}

// Validate checks the invariants a persisted listing must satisfy.
func (l *Listing) Validate() error {
	if strings.TrimSpace(l.ID) == "" {
		return errors.Validation("listing id must not be empty")
	}
	if strings.TrimSpace(l.Address) == "" {
		return errors.Validation("listing address must not be empty")
	}
	switch l.ListingType {
	case TypeForSale, TypeForRent, TypeSold:
	default:
		return errors.Validation("unknown listing type").WithDetail(string(l.ListingType))
	}
	if l.Price != nil && *l.Price < 0 {
		return errors.Validation("listing price must not be negative")
	}
	if l.Latitude != nil || l.Longitude != nil {
		if !l.HasCoordinates() {
			return errors.Validation("listing coordinates out of range").WithDetail(l.ID)
		}
	}
	return nil
}

// Rental is a comparable rental listing used as a market signal when
// estimating a subject property's rent.
type Rental struct {
	ID        string
	Address   string
	AreaKey   string
	Price     float64
	Bedrooms  int
	Bathrooms float64
	Sqft      int
	Latitude  float64
	Longitude float64
	YearBuilt int
	CreatedAt time.Time
}

// Point returns the rental's coordinate pair.
func (r *Rental) Point() geo.Point {
	return geo.Point{Lat: r.Latitude, Lon: r.Longitude}
}

// nonRentableMarkers flags property types with no rentable structure.
// Partial matching follows the upstream classifier: any type mentioning
// land, lots, or vacancy short-circuits estimation.
var nonRentableMarkers = []string{"LAND", "LOT", "VACANT"}

var nonRentableExact = map[string]struct{}{
	"FARM": {}, "MOBILE_LAND": {}, "TIMBERLAND": {}, "AGRICULTURAL": {}, "OTHER": {},
}

// NonRentable reports whether propertyType indicates a property with no
// rentable structure (vacant land, lots).  An empty type is assumed
// rentable.
func NonRentable(propertyType string) bool {
	if propertyType == "" {
		return false
	}
	pt := strings.ToUpper(strings.TrimSpace(propertyType))
	if _, ok := nonRentableExact[pt]; ok {
		return true
	}
	for _, marker := range nonRentableMarkers {
		if strings.Contains(pt, marker) {
			return true
		}
	}
	return false
}
