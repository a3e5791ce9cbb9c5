// Package estimate implements the rent triangulation engine: a weighted
// combination of a federal benchmark, nearby comparable rentals, and an
// optional tertiary fallback source, with a confidence score reflecting how
// much signal actually backed the number.
package estimate

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/domain/benchmark"
	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
)

// RentEstimate is the triangulation result.  Available=false is the
// NotAvailable outcome: data insufficiency or a non-rentable property type,
// never an infrastructure failure.
type RentEstimate struct {
	Available     bool               `json:"available"`
	EstimatedRent float64            `json:"estimated_rent,omitempty"`
	Confidence    float64            `json:"confidence,omitempty"`
	Method        string             `json:"method"`
	Benchmark     *float64           `json:"benchmark,omitempty"`
	CompsAvg      *float64           `json:"comps_avg,omitempty"`
	Fallback      *float64           `json:"fallback,omitempty"`
	CompCount     int                `json:"comp_count"`
	Comps         []Comp             `json:"comps,omitempty"`
	PropertyType  string             `json:"property_type,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	VariancePct   *float64           `json:"variance_pct,omitempty"`
	WeightsUsed   map[string]float64 `json:"weights_used,omitempty"`
}

// FallbackEstimator is the tertiary source, typically a commercial AVM
// collaborator.  A nil estimator means triangulation runs on the benchmark
// and comps alone; errors are degraded to an absent source, never failures.
type FallbackEstimator interface {
	EstimateRent(ctx context.Context, req *query.EstimateRequest, benchmarkRent *float64) (float64, error)
}

// Config bounds the triangulation engine.
type Config struct {
	RadiusMiles            float64 `mapstructure:"radius_miles"`
	SparseRadiusMiles      float64 `mapstructure:"sparse_radius_miles"`
	MaxComps               int     `mapstructure:"max_comps"`
	ResponseComps          int     `mapstructure:"response_comps"`
	LookbackDays           int     `mapstructure:"lookback_days"`
	MaxCompPrice           float64 `mapstructure:"max_comp_price"`
	ScamFloorRatio         float64 `mapstructure:"scam_floor_ratio"`
	DivergenceThresholdPct float64 `mapstructure:"divergence_threshold_pct"`
	SweepFetchLimit        int     `mapstructure:"sweep_fetch_limit"`
	Weights                Weights `mapstructure:"weights"`
}

// DefaultConfig returns the production triangulation bounds.
func DefaultConfig() Config {
	return Config{
		RadiusMiles:            2.0,
		SparseRadiusMiles:      3.5,
		MaxComps:               15,
		ResponseComps:          10,
		LookbackDays:           90,
		MaxCompPrice:           10000,
		ScamFloorRatio:         0.70,
		DivergenceThresholdPct: 25,
		SweepFetchLimit:        500,
		Weights:                DefaultWeights(),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.RadiusMiles == 0 {
		c.RadiusMiles = d.RadiusMiles
	}
	if c.SparseRadiusMiles == 0 {
		c.SparseRadiusMiles = d.SparseRadiusMiles
	}
	if c.MaxComps == 0 {
		c.MaxComps = d.MaxComps
	}
	if c.ResponseComps == 0 {
		c.ResponseComps = d.ResponseComps
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.MaxCompPrice == 0 {
		c.MaxCompPrice = d.MaxCompPrice
	}
	if c.ScamFloorRatio == 0 {
		c.ScamFloorRatio = d.ScamFloorRatio
	}
	if c.DivergenceThresholdPct == 0 {
		c.DivergenceThresholdPct = d.DivergenceThresholdPct
	}
	if c.SweepFetchLimit == 0 {
		c.SweepFetchLimit = d.SweepFetchLimit
	}
	if c.Weights == (Weights{}) {
		c.Weights = d.Weights
	}
}

// Service triangulates rent estimates.
type Service struct {
	benchmarks benchmark.Repository
	rentals    listing.RentalRepository
	fallback   FallbackEstimator
	config     Config
	logger     logging.Logger
	metrics    *prometheus.Metrics
}

// NewService wires the triangulation engine.  fallback and metrics may be
// nil.
func NewService(benchmarks benchmark.Repository, rentals listing.RentalRepository, fallback FallbackEstimator, cfg Config, log logging.Logger, metrics *prometheus.Metrics) *Service {
	cfg.applyDefaults()
	return &Service{
		benchmarks: benchmarks,
		rentals:    rentals,
		fallback:   fallback,
		config:     cfg,
		logger:     log,
		metrics:    metrics,
	}
}

// Estimate runs the triangulation for a validated request.  Infrastructure
// failures on the rental store propagate; a missing benchmark or fallback
// just removes that source from the blend.
func (s *Service) Estimate(ctx context.Context, req *query.EstimateRequest) (*RentEstimate, error) {
	start := time.Now()

	if listing.NonRentable(req.PropertyType) {
		return s.done(start, &RentEstimate{
			Available:    false,
			Method:       "non_rentable_property_type",
			PropertyType: req.PropertyType,
			Reason:       "property type indicates no rentable structure",
		}), nil
	}

	benchRent := s.lookupBenchmark(ctx, req)

	sweep, err := s.gatherComps(ctx, req, s.config.RadiusMiles, benchRent)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "comparable rental query failed")
	}
	// Sparse context: widen the sweep once before settling for a thin set.
	if len(sweep.comps) < minCompsFullWeight && s.config.SparseRadiusMiles > s.config.RadiusMiles {
		wider, err := s.gatherComps(ctx, req, s.config.SparseRadiusMiles, benchRent)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDatabase, "comparable rental query failed")
		}
		if len(wider.comps) > len(sweep.comps) {
			sweep = wider
		}
	}

	fallbackRent := s.lookupFallback(ctx, req, benchRent)

	weights := map[string]float64{}
	sources := map[string]float64{}
	if benchRent != nil && *benchRent > 0 {
		weights[sourceBenchmark] = s.config.Weights.Benchmark
		sources[sourceBenchmark] = *benchRent
	}
	if len(sweep.comps) >= minCompsFullWeight {
		weights[sourceComps] = s.config.Weights.Comps
		sources[sourceComps] = sweep.mean
	} else if len(sweep.comps) > 0 {
		weights[sourceComps] = sparseCompsWeight
		sources[sourceComps] = sweep.mean
	}
	if fallbackRent != nil && *fallbackRent > 0 {
		weights[sourceFallback] = s.config.Weights.Fallback
		sources[sourceFallback] = *fallbackRent
	}

	if len(sources) == 0 {
		return s.done(start, &RentEstimate{
			Available:    false,
			Method:       "insufficient_data",
			PropertyType: req.PropertyType,
			Reason:       "no benchmark, comparable, or fallback data available",
		}), nil
	}

	normalize(weights)
	blended := 0.0
	for name, value := range sources {
		blended += value * weights[name]
	}

	values := make([]float64, 0, len(sources))
	for _, v := range sources {
		values = append(values, v)
	}
	variance := variancePct(values)
	diverged := variance > s.config.DivergenceThresholdPct

	result := &RentEstimate{
		Available:     true,
		EstimatedRent: math.Round(blended),
		Confidence:    confidence(benchRent != nil, len(sweep.comps), fallbackRent != nil, diverged),
		Method:        methodLabel(sources),
		Benchmark:     benchRent,
		Fallback:      fallbackRent,
		CompCount:     len(sweep.comps),
		PropertyType:  req.PropertyType,
		WeightsUsed:   weights,
	}
	if len(sweep.comps) > 0 {
		mean := sweep.mean
		result.CompsAvg = &mean
		comps := sweep.comps
		if len(comps) > s.config.ResponseComps {
			comps = comps[:s.config.ResponseComps]
		}
		result.Comps = comps
	}
	if variance > 0 {
		v := math.Round(variance*10) / 10
		result.VariancePct = &v
	}

	s.logger.Debug("rent estimate computed",
		logging.Float64("estimate", result.EstimatedRent),
		logging.Float64("confidence", result.Confidence),
		logging.String("method", result.Method),
		logging.Int("comps", result.CompCount),
		logging.Int("scam_excluded", sweep.excluded))
	return s.done(start, result), nil
}

// lookupBenchmark fetches the area benchmark for the subject's bedroom
// bucket.  Absence is expected in uncovered markets and degrades silently.
func (s *Service) lookupBenchmark(ctx context.Context, req *query.EstimateRequest) *float64 {
	if req.AreaKey == "" {
		return nil
	}
	bench, err := s.benchmarks.FindByAreaKey(ctx, req.AreaKey)
	if err != nil {
		if !errors.IsNotFound(err) {
			s.logger.Warn("benchmark lookup failed",
				logging.String("area_key", req.AreaKey), logging.Err(err))
		}
		return nil
	}
	rent, ok := bench.Rent(req.Beds)
	if !ok || rent <= 0 {
		return nil
	}
	return &rent
}

// lookupFallback queries the tertiary source.  Errors make the source
// absent rather than failing the estimate.
func (s *Service) lookupFallback(ctx context.Context, req *query.EstimateRequest, benchRent *float64) *float64 {
	if s.fallback == nil {
		return nil
	}
	rent, err := s.fallback.EstimateRent(ctx, req, benchRent)
	if err != nil {
		s.logger.Warn("fallback estimator failed", logging.Err(err))
		return nil
	}
	if rent <= 0 {
		return nil
	}
	return &rent
}

// methodLabel names the blend: a single source keeps its own name, a blend
// is "triangulated_" plus the sorted source names.
func methodLabel(sources map[string]float64) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 1 {
		return names[0]
	}
	return "triangulated_" + strings.Join(names, "_")
}

func (s *Service) done(start time.Time, result *RentEstimate) *RentEstimate {
	if s.metrics != nil {
		s.metrics.EstimateRequests.WithLabelValues(result.Method).Inc()
		s.metrics.EstimateDuration.Observe(time.Since(start).Seconds())
		s.metrics.EstimateCompCount.Observe(float64(result.CompCount))
	}
	return result
}
