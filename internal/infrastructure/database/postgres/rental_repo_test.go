package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rentscope/rentscope/pkg/types/geo"
)

func TestSearchBox_EquatorIsSquare(t *testing.T) {
	latHalf, lonHalf := searchBox(0, 2.0)
	assert.InDelta(t, 2.0/69.0, latHalf, 1e-9)
	assert.InDelta(t, latHalf, lonHalf, 1e-9)
}

func TestSearchBox_WidensWithLatitude(t *testing.T) {
	_, atEquator := searchBox(0, 2.0)
	_, atCleveland := searchBox(41.5, 2.0)
	assert.Greater(t, atCleveland, atEquator,
		"a degree of longitude shrinks away from the equator, so the box must widen")
}

func TestSearchBox_CoversRadiusAtMidLatitudes(t *testing.T) {
	// A comp just inside the radius due east of the subject sits at the
	// box's weakest axis; the prefilter must not drop it before the exact
	// haversine cut ever sees it.
	subject := geo.Point{Lat: 41.4993, Lon: -81.6944}
	comp := geo.Point{Lat: subject.Lat, Lon: subject.Lon + 0.0367}

	dist := geo.HaversineMiles(subject, comp)
	assert.Less(t, dist, 2.0, "fixture must lie inside the search radius")

	_, lonHalf := searchBox(subject.Lat, 2.0)
	assert.LessOrEqual(t, comp.Lon-subject.Lon, lonHalf,
		"comp %0.3f miles east must fall inside the longitude prefilter", dist)
}

func TestSearchBox_ClampsNearPoles(t *testing.T) {
	latHalf, lonHalf := searchBox(89.9, 2.0)
	assert.InDelta(t, latHalf/minLonCos, lonHalf, 1e-9)
}
