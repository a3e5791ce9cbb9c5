package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	weights := map[string]float64{sourceBenchmark: 0.30, sourceComps: 0.50}
	normalize(weights)
	assert.InDelta(t, 0.375, weights[sourceBenchmark], 1e-9)
	assert.InDelta(t, 0.625, weights[sourceComps], 1e-9)

	empty := map[string]float64{}
	normalize(empty)
	assert.Empty(t, empty)
}

func TestVariancePct(t *testing.T) {
	assert.Zero(t, variancePct(nil))
	assert.Zero(t, variancePct([]float64{1000}))
	assert.InDelta(t, 0, variancePct([]float64{1000, 1000}), 1e-9)
	// mean 1500, max deviation 500
	assert.InDelta(t, 33.333, variancePct([]float64{1000, 2000}), 0.01)
}

func TestConfidence(t *testing.T) {
	assert.InDelta(t, 0.25, confidence(true, 0, false, false), 1e-9)
	assert.InDelta(t, 0.625, confidence(true, 3, false, false), 1e-9)
	assert.InDelta(t, 0.75, confidence(true, 4, false, false), 1e-9)
	assert.InDelta(t, 0.75, confidence(true, 10, false, false), 1e-9, "comps ramp saturates")
	assert.InDelta(t, 0.90, confidence(true, 10, true, false), 1e-9)
	assert.InDelta(t, 0.72, confidence(true, 10, true, true), 1e-9, "divergence haircut")
	assert.Zero(t, confidence(false, 0, false, false))
}
