package estimate

// Source names used in weight maps and method labels.
const (
	sourceBenchmark = "benchmark"
	sourceComps     = "comps"
	sourceFallback  = "fallback"
)

// Weights are the base contributions of each source before renormalization.
// The comps weight dominates when enough comps exist; the benchmark acts as
// a conservative floor and the fallback as a tertiary arbiter.
type Weights struct {
	Benchmark float64 `mapstructure:"benchmark"`
	Comps     float64 `mapstructure:"comps"`
	Fallback  float64 `mapstructure:"fallback"`
}

// DefaultWeights returns the production triangulation weights.
func DefaultWeights() Weights {
	return Weights{Benchmark: 0.30, Comps: 0.50, Fallback: 0.20}
}

// sparseCompsWeight replaces the full comps weight when fewer than
// minCompsFullWeight comps survive filtering: a thin comp set is a weaker
// market signal than the benchmark.
const (
	sparseCompsWeight  = 0.30
	minCompsFullWeight = 3
)

// normalize scales a present-source weight map so it sums to one.  The map
// is modified in place; an empty map is left alone.
func normalize(weights map[string]float64) {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total == 0 {
		return
	}
	for k := range weights {
		weights[k] /= total
	}
}

// variancePct measures disagreement between source values as the largest
// deviation from their mean, in percent of the mean.  Fewer than two values
// cannot disagree.
func variancePct(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if mean == 0 {
		return 0
	}
	maxDiff := 0.0
	for _, v := range values {
		diff := v - mean
		if diff < 0 {
			diff = -diff
		}
		if diff > maxDiff {
			maxDiff = diff
		}
	}
	return maxDiff / mean * 100
}

// confidence scores an estimate from source availability and agreement.
// Benchmark contributes a fixed 0.25, comps scale with count up to 0.50 at
// four comps, the fallback adds 0.15.  Sources diverging beyond the
// configured threshold cost a 20% haircut.
func confidence(hasBenchmark bool, compCount int, hasFallback bool, diverged bool) float64 {
	score := 0.0
	if hasBenchmark {
		score += 0.25
	}
	if compCount > 0 {
		comps := float64(compCount) / 4 * 0.50
		if comps > 0.50 {
			comps = 0.50
		}
		score += comps
	}
	if hasFallback {
		score += 0.15
	}
	if diverged {
		score *= 0.8
	}
	if score > 1 {
		score = 1
	}
	return score
}
