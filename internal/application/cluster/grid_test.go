package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridSize_CountryOverviewIsFixed(t *testing.T) {
	for _, zoom := range []float64{0, 1, 3, 5} {
		assert.InDelta(t, 2.5, GridSize(zoom), 1e-9, "zoom %v", zoom)
	}
}

func TestGridSize_HalvesPerZoomStep(t *testing.T) {
	for zoom := 6.0; zoom < 13; zoom++ {
		assert.InDelta(t, GridSize(zoom)/2, GridSize(zoom+1), 1e-9, "zoom %v", zoom)
	}
}

func TestGridSize_ContinuousAtRegimeBoundary(t *testing.T) {
	assert.InDelta(t, GridSize(5), GridSize(6), 1e-9)
}

func TestGridSize_MonotonicallyDecreasing(t *testing.T) {
	// Quarter-zoom steps cover the fractional levels clients send; the
	// stretch between the fixed and exponential regimes must not coarsen.
	prev := GridSize(0)
	for zoom := 0.25; zoom <= 13; zoom += 0.25 {
		cur := GridSize(zoom)
		assert.LessOrEqual(t, cur, prev, "zoom %v", zoom)
		prev = cur
	}
}

func TestGridSize_FractionalZoomsBetweenRegimesStayCapped(t *testing.T) {
	assert.InDelta(t, 2.5, GridSize(5.5), 1e-9)
	assert.Less(t, GridSize(6.5), 2.5)
}

func TestCellOf_SnapsToFloor(t *testing.T) {
	a := cellOf(41.44, -82.91, 1.0)
	b := cellOf(41.99, -82.01, 1.0)
	assert.Equal(t, a, b, "points in the same one-degree cell share a key")

	c := cellOf(42.01, -82.5, 1.0)
	assert.NotEqual(t, a, c, "crossing a cell edge changes the key")

	// Negative coordinates floor toward more negative, not toward zero.
	d := cellOf(-0.5, -0.5, 1.0)
	assert.Equal(t, cellKey{col: -1, row: -1}, d)
}

func TestCellAccumulator_CentroidAndPrices(t *testing.T) {
	price := func(v float64) *float64 { return &v }

	acc := &cellAccumulator{}
	acc.add("a", "1 Main St", 41.0, -82.0, price(100000))
	acc.add("b", "2 Main St", 42.0, -83.0, price(300000))
	acc.add("c", "3 Main St", 41.5, -82.5, nil)

	lat, lon := acc.centroid()
	assert.InDelta(t, 41.5, lat, 1e-9)
	assert.InDelta(t, -82.5, lon, 1e-9)
	assert.Equal(t, 3, acc.count)
	assert.InDelta(t, 100000, acc.minPrice, 1e-9)
	assert.InDelta(t, 300000, acc.maxPrice, 1e-9)
	assert.InDelta(t, 200000, acc.sumPrice/float64(acc.priced), 1e-9)
	assert.Empty(t, acc.soleID, "multi-member cell must not surface a listing")
}

func TestCellAccumulator_SingletonKeepsListing(t *testing.T) {
	price := 250000.0
	acc := &cellAccumulator{}
	acc.add("a", "1 Main St", 41.0, -82.0, &price)

	assert.Equal(t, "a", acc.soleID)
	assert.Equal(t, "1 Main St", acc.soleAddress)
	assert.Equal(t, &price, acc.solePrice)
}
