package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 41.49, Lon: -82.95}.Valid())
	assert.True(t, Point{Lat: -90, Lon: 180}.Valid())
	assert.False(t, Point{Lat: 90.1, Lon: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lon: -180.5}.Valid())
}

func TestBBoxValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     BBox
		wantErr bool
	}{
		{"ok", BBox{West: -83.0, South: 41.4, East: -82.9, North: 41.5}, false},
		{"west out of range", BBox{West: -181, South: 0, East: 0, North: 1}, true},
		{"north out of range", BBox{West: 0, South: 0, East: 1, North: 91}, true},
		{"inverted lon", BBox{West: -82.9, South: 41.4, East: -83.0, North: 41.5}, true},
		{"inverted lat", BBox{West: -83.0, South: 41.5, East: -82.9, North: 41.4}, true},
		{"degenerate", BBox{West: 1, South: 1, East: 1, North: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.box.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBBoxSpansAndContains(t *testing.T) {
	b := BBox{West: -84, South: 40, East: -82, North: 41}
	assert.InDelta(t, 2.0, b.Width(), 1e-9)
	assert.InDelta(t, 1.0, b.Height(), 1e-9)
	assert.InDelta(t, 2.0, b.MaxSpan(), 1e-9)

	assert.True(t, b.Contains(Point{Lat: 40.5, Lon: -83}))
	assert.True(t, b.Contains(Point{Lat: 40, Lon: -84})) // inclusive edge
	assert.False(t, b.Contains(Point{Lat: 41.5, Lon: -83}))
}

func TestHaversineMiles(t *testing.T) {
	// Cleveland Public Square to Edgewater Park, roughly 4.5 miles.
	a := Point{Lat: 41.4993, Lon: -81.6944}
	b := Point{Lat: 41.4895, Lon: -81.7791}
	d := HaversineMiles(a, b)
	assert.InDelta(t, 4.4, d, 0.5)

	// Zero distance.
	assert.InDelta(t, 0, HaversineMiles(a, a), 1e-9)
}
