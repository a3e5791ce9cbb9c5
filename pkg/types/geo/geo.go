// Package geo holds the shared geographic primitives used by the spatial
// query and rent estimation engines: points, bounding boxes, and distance
// math.  It deliberately has no dependencies beyond the standard library so
// every layer can import it.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMiles is the mean Earth radius used for haversine distances.
const EarthRadiusMiles = 3958.8

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the valid WGS84 ranges.
func (p Point) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// BBox is a viewport rectangle in degrees: west/east bound longitude,
// south/north bound latitude.
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate checks each axis against its valid range and rejects inverted
// boxes.  Antimeridian-crossing viewports are rejected rather than split;
// the markets this engine serves are nowhere near longitude 180.
func (b BBox) Validate() error {
	if b.West < -180 || b.West > 180 || b.East < -180 || b.East > 180 {
		return fmt.Errorf("longitude out of range [-180,180]: west=%v east=%v", b.West, b.East)
	}
	if b.South < -90 || b.South > 90 || b.North < -90 || b.North > 90 {
		return fmt.Errorf("latitude out of range [-90,90]: south=%v north=%v", b.South, b.North)
	}
	if b.West >= b.East {
		return fmt.Errorf("west (%v) must be less than east (%v)", b.West, b.East)
	}
	if b.South >= b.North {
		return fmt.Errorf("south (%v) must be less than north (%v)", b.South, b.North)
	}
	return nil
}

// Width returns the longitudinal span in degrees.
func (b BBox) Width() float64 { return b.East - b.West }

// Height returns the latitudinal span in degrees.
func (b BBox) Height() float64 { return b.North - b.South }

// MaxSpan returns the larger of the two axis spans in degrees.
func (b BBox) MaxSpan() float64 {
	return math.Max(b.Width(), b.Height())
}

// Contains reports whether the point lies inside the box (inclusive edges).
func (b BBox) Contains(p Point) bool {
	return p.Lon >= b.West && p.Lon <= b.East && p.Lat >= b.South && p.Lat <= b.North
}

// HaversineMiles returns the great-circle distance between two points in
// miles.
func HaversineMiles(a, b Point) float64 {
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(a.Lat))*math.Cos(radians(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMiles * c
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
