// Package cluster implements the grid clustering engine behind the map
// viewport query.  Below the cluster zoom threshold listings are aggregated
// into grid-cell bubbles; at or above it individual listings are returned,
// capped to protect the client.
package cluster

import (
	"math"
)

// Grid resolution breakpoints.
//
//	zoom < 6    fixed 2.5 degree cells, bounding aggregation cost for
//	            whole-country overviews regardless of index selectivity
//	zoom 6..13  baseCellDegrees / 2^zoom, halving cell size per zoom step
//	            so bubble density stays visually stable
//
// baseCellDegrees is chosen so the two regimes meet exactly at zoom 6
// (160 / 2^6 = 2.5); the fixed cell also caps the exponential branch so
// fractional zooms between the regimes never coarsen the grid.
const (
	countryZoomCeiling = 5
	countryCellDegrees = 2.5
	baseCellDegrees    = 160.0
)

// GridSize returns the aggregation cell edge in degrees for a zoom level.
// Pure in zoom and monotonically non-increasing, including at fractional
// zooms between the two regimes; callers above the cluster threshold never
// consult it.
func GridSize(zoom float64) float64 {
	cell := baseCellDegrees / math.Pow(2, zoom)
	if zoom <= countryZoomCeiling || cell > countryCellDegrees {
		return countryCellDegrees
	}
	return cell
}

// cellKey identifies one grid cell by its snapped column and row.
type cellKey struct {
	col int64
	row int64
}

// cellOf snaps a coordinate pair to its grid cell at the given cell size.
func cellOf(lat, lon, size float64) cellKey {
	return cellKey{
		col: int64(math.Floor(lon / size)),
		row: int64(math.Floor(lat / size)),
	}
}

// cellAccumulator gathers members of one cell during the aggregation pass.
type cellAccumulator struct {
	count    int
	sumLat   float64
	sumLon   float64
	minPrice float64
	maxPrice float64
	sumPrice float64
	priced   int

	// retained while the cell still holds exactly one member, so singleton
	// clusters can surface the concrete listing
	soleID      string
	soleAddress string
	solePrice   *float64
}

func (a *cellAccumulator) add(id, address string, lat, lon float64, price *float64) {
	a.count++
	a.sumLat += lat
	a.sumLon += lon
	if price != nil {
		if a.priced == 0 || *price < a.minPrice {
			a.minPrice = *price
		}
		if a.priced == 0 || *price > a.maxPrice {
			a.maxPrice = *price
		}
		a.sumPrice += *price
		a.priced++
	}
	if a.count == 1 {
		a.soleID = id
		a.soleAddress = address
		a.solePrice = price
	} else {
		a.soleID = ""
		a.soleAddress = ""
		a.solePrice = nil
	}
}

func (a *cellAccumulator) centroid() (lat, lon float64) {
	return a.sumLat / float64(a.count), a.sumLon / float64(a.count)
}
