// Package query validates and compiles user-supplied query parameters into
// the typed, store-safe predicate sets consumed by the clustering and
// estimation services.  Nothing downstream of this package ever touches raw
// request input.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/pkg/errors"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

// Viewport zoom bounds.  Web mercator tile zooms run 0 (whole world) to 24
// (sub-meter).
const (
	MinZoom = 0
	MaxZoom = 24
)

// ViewportParams is the raw, unvalidated input of a map viewport request.
type ViewportParams struct {
	West  float64
	South float64
	East  float64
	North float64
	Zoom  float64

	MinPrice     *float64
	MaxPrice     *float64
	MinBeds      *int
	MinBaths     *float64
	PropertyType string
	Status       string
}

// Viewport is the validated form handed to the clustering service.
type Viewport struct {
	BBox   geo.BBox
	Zoom   float64
	Filter listing.BBoxFilter
}

// statusFilters maps an accepted status parameter to the store predicate it
// compiles to.  The absent-status default is deliberately "for sale", not
// "all statuses": map consumers overwhelmingly browse sale inventory and the
// permissive default would make every cache key and aggregation heavier.
var statusFilters = map[string]listing.BBoxFilter{
	"": {
		ListingType: listing.TypeForSale,
		Statuses:    []listing.Status{listing.StatusActive},
	},
	"for_sale": {
		ListingType: listing.TypeForSale,
		Statuses:    []listing.Status{listing.StatusActive},
	},
	"pending": {
		ListingType: listing.TypeForSale,
		Statuses:    []listing.Status{listing.StatusPending},
	},
	"sold": {
		ListingType: listing.TypeSold,
		Statuses:    []listing.Status{listing.StatusOffMarket},
	},
	"for_rent": {
		ListingType: listing.TypeForRent,
		Statuses:    []listing.Status{listing.StatusActive},
	},
}

// CompileViewport validates raw viewport parameters and compiles the filter
// predicates into a conjunctive, parameterised set.  All failures are
// validation errors naming the offending parameter.
func CompileViewport(p ViewportParams) (*Viewport, error) {
	box := geo.BBox{West: p.West, South: p.South, East: p.East, North: p.North}
	if err := box.Validate(); err != nil {
		return nil, errors.New(errors.CodeViewportInvalid, "invalid bounding box").WithDetail(err.Error())
	}
	if p.Zoom < MinZoom || p.Zoom > MaxZoom {
		return nil, errors.New(errors.CodeViewportInvalid, "zoom out of range").
			WithDetail(fmt.Sprintf("zoom=%v valid=[%d,%d]", p.Zoom, MinZoom, MaxZoom))
	}

	status := strings.ToLower(strings.TrimSpace(p.Status))
	base, ok := statusFilters[status]
	if !ok {
		return nil, errors.New(errors.CodeFilterInvalid, "unknown status filter").WithDetail(p.Status)
	}
	filter := base

	if p.MinPrice != nil {
		if *p.MinPrice < 0 {
			return nil, errors.New(errors.CodeFilterInvalid, "minPrice must not be negative")
		}
		filter.MinPrice = p.MinPrice
	}
	if p.MaxPrice != nil {
		if *p.MaxPrice <= 0 {
			return nil, errors.New(errors.CodeFilterInvalid, "maxPrice must be positive")
		}
		filter.MaxPrice = p.MaxPrice
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, errors.New(errors.CodeFilterInvalid, "minPrice exceeds maxPrice").
			WithDetail(fmt.Sprintf("min=%v max=%v", *filter.MinPrice, *filter.MaxPrice))
	}
	if p.MinBeds != nil {
		if *p.MinBeds < 0 || *p.MinBeds > 20 {
			return nil, errors.New(errors.CodeFilterInvalid, "minBeds out of range")
		}
		filter.MinBeds = p.MinBeds
	}
	if p.MinBaths != nil {
		if *p.MinBaths < 0 || *p.MinBaths > 20 {
			return nil, errors.New(errors.CodeFilterInvalid, "minBaths out of range")
		}
		filter.MinBaths = p.MinBaths
	}
	if pt := strings.TrimSpace(p.PropertyType); pt != "" {
		filter.PropertyType = strings.ToUpper(pt)
	}

	return &Viewport{BBox: box, Zoom: p.Zoom, Filter: filter}, nil
}

// CacheParams flattens validated viewport parameters into the string map the
// cache layer derives its key from.  Only set parameters appear, so a request
// that omits maxPrice shares an entry with one passing no price filter at all.
func (v *Viewport) CacheParams() map[string]string {
	params := map[string]string{
		"west":  trimFloat(v.BBox.West),
		"south": trimFloat(v.BBox.South),
		"east":  trimFloat(v.BBox.East),
		"north": trimFloat(v.BBox.North),
		"zoom":  trimFloat(v.Zoom),
		"type":  string(v.Filter.ListingType),
	}
	statuses := make([]string, 0, len(v.Filter.Statuses))
	for _, s := range v.Filter.Statuses {
		statuses = append(statuses, string(s))
	}
	sort.Strings(statuses)
	params["status"] = strings.Join(statuses, ",")

	if v.Filter.MinPrice != nil {
		params["minPrice"] = trimFloat(*v.Filter.MinPrice)
	}
	if v.Filter.MaxPrice != nil {
		params["maxPrice"] = trimFloat(*v.Filter.MaxPrice)
	}
	if v.Filter.MinBeds != nil {
		params["minBeds"] = fmt.Sprintf("%d", *v.Filter.MinBeds)
	}
	if v.Filter.MinBaths != nil {
		params["minBaths"] = trimFloat(*v.Filter.MinBaths)
	}
	if v.Filter.PropertyType != "" {
		params["propertyType"] = v.Filter.PropertyType
	}
	return params
}

func trimFloat(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
}

// EstimateParams is the raw input of a rent estimate request.
type EstimateParams struct {
	Lat          float64
	Lon          float64
	Beds         *int
	Baths        *float64
	Sqft         *int
	YearBuilt    *int
	AreaKey      string
	PropertyType string
}

// EstimateRequest is the validated form handed to the estimation service.
type EstimateRequest struct {
	Subject      geo.Point
	Beds         int // defaulted to 3 when the caller omits it
	Baths        *float64
	Sqft         *int
	YearBuilt    *int
	AreaKey      string
	PropertyType string
}

// defaultBedrooms is assumed when the caller supplies none; three bedrooms
// is the modal configuration in the single-family markets this engine
// serves.
const defaultBedrooms = 3

// CompileEstimate validates raw estimate parameters.
func CompileEstimate(p EstimateParams) (*EstimateRequest, error) {
	subject := geo.Point{Lat: p.Lat, Lon: p.Lon}
	if !subject.Valid() {
		return nil, errors.New(errors.CodeEstimateCoordinatesInvalid, "coordinates out of range").
			WithDetail(fmt.Sprintf("lat=%v lon=%v", p.Lat, p.Lon))
	}

	req := &EstimateRequest{
		Subject:      subject,
		Beds:         defaultBedrooms,
		Baths:        p.Baths,
		Sqft:         p.Sqft,
		YearBuilt:    p.YearBuilt,
		AreaKey:      strings.TrimSpace(p.AreaKey),
		PropertyType: strings.TrimSpace(p.PropertyType),
	}
	if p.Beds != nil {
		if *p.Beds < 0 || *p.Beds > 20 {
			return nil, errors.New(errors.CodeFilterInvalid, "beds out of range")
		}
		req.Beds = *p.Beds
	}
	if p.Baths != nil && (*p.Baths < 0 || *p.Baths > 20) {
		return nil, errors.New(errors.CodeFilterInvalid, "baths out of range")
	}
	if p.Sqft != nil && *p.Sqft < 0 {
		return nil, errors.New(errors.CodeFilterInvalid, "sqft must not be negative")
	}
	return req, nil
}
