package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
)

// Strategy names the clustering mode a response was produced with.
type Strategy string

const (
	StrategyClusters Strategy = "clusters"
	StrategyListings Strategy = "listings"
)

// Feature is one element of a viewport response: either a cluster bubble or
// an individual listing, distinguished by Kind.
type Feature struct {
	Kind  string  `json:"kind"` // "cluster" or "listing"
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Count int     `json:"count,omitempty"`

	// cluster price summary, present when any member carries a price
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	AvgPrice *float64 `json:"avg_price,omitempty"`

	// listing fields, populated for individual listings and for singleton
	// clusters so the client can link through instead of zooming forever
	ID            string   `json:"id,omitempty"`
	Address       string   `json:"address,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Bedrooms      int      `json:"bedrooms,omitempty"`
	Bathrooms     float64  `json:"bathrooms,omitempty"`
	Sqft          int      `json:"sqft,omitempty"`
	Status        string   `json:"status,omitempty"`
	PropertyType  string   `json:"property_type,omitempty"`
	EstimatedRent *float64 `json:"estimated_rent,omitempty"`
}

// FeatureCollection is the viewport query response.
type FeatureCollection struct {
	Strategy  Strategy  `json:"strategy"`
	Features  []Feature `json:"features"`
	Total     int       `json:"total"`
	Cached    bool      `json:"cached"`
	ElapsedMS int64     `json:"elapsed_ms"`
}

// Cache is the slice of the cache layer this service needs.  A miss is any
// not-found error; Set never fails from the caller's point of view.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any)
}

// KeyFunc derives a cache key from a namespace and flattened parameters.
type KeyFunc func(namespace string, params map[string]string) string

// Config bounds the clustering engine.
type Config struct {
	// ClusterZoomThreshold is the zoom at or above which individual
	// listings are returned instead of aggregates.
	ClusterZoomThreshold float64 `mapstructure:"cluster_zoom_threshold"`
	// MaxListings caps individual-listing responses.
	MaxListings int `mapstructure:"max_listings"`
	// AbusiveSpanDegrees rejects viewports wider than this on either axis
	// when combined with high zoom.
	AbusiveSpanDegrees float64 `mapstructure:"abusive_span_degrees"`
	// AggregateFetchLimit bounds the row scan feeding an aggregation pass.
	AggregateFetchLimit int `mapstructure:"aggregate_fetch_limit"`
}

// DefaultConfig returns production clustering bounds.
func DefaultConfig() Config {
	return Config{
		ClusterZoomThreshold: 14,
		MaxListings:          2000,
		AbusiveSpanDegrees:   50,
		AggregateFetchLimit:  50000,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.ClusterZoomThreshold == 0 {
		c.ClusterZoomThreshold = d.ClusterZoomThreshold
	}
	if c.MaxListings == 0 {
		c.MaxListings = d.MaxListings
	}
	if c.AbusiveSpanDegrees == 0 {
		c.AbusiveSpanDegrees = d.AbusiveSpanDegrees
	}
	if c.AggregateFetchLimit == 0 {
		c.AggregateFetchLimit = d.AggregateFetchLimit
	}
}

// Service turns validated viewports into feature collections.
type Service struct {
	repo    listing.Repository
	cache   Cache
	keyFn   KeyFunc
	config  Config
	logger  logging.Logger
	metrics *prometheus.Metrics
}

// NewService wires the clustering engine.  cache and metrics may be nil:
// without a cache every request recomputes.
func NewService(repo listing.Repository, cache Cache, keyFn KeyFunc, cfg Config, log logging.Logger, metrics *prometheus.Metrics) *Service {
	cfg.applyDefaults()
	return &Service{repo: repo, cache: cache, keyFn: keyFn, config: cfg, logger: log, metrics: metrics}
}

// Cluster answers a validated viewport query.  Store failures propagate and
// are never cached; cache failures have already been degraded to misses by
// the cache layer.
func (s *Service) Cluster(ctx context.Context, v *query.Viewport) (*FeatureCollection, error) {
	start := time.Now()

	if err := s.guardAbusive(v); err != nil {
		return nil, err
	}

	strategy := StrategyClusters
	if v.Zoom >= s.config.ClusterZoomThreshold {
		strategy = StrategyListings
	}

	var cacheKey string
	if s.cache != nil && s.keyFn != nil {
		cacheKey = s.keyFn("map", v.CacheParams())
		var cached FeatureCollection
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			cached.Cached = true
			cached.ElapsedMS = time.Since(start).Milliseconds()
			s.observe(strategy, "hit", start, len(cached.Features))
			return &cached, nil
		}
	}

	var (
		fc  *FeatureCollection
		err error
	)
	switch strategy {
	case StrategyListings:
		fc, err = s.individual(ctx, v)
	default:
		fc, err = s.aggregate(ctx, v)
	}
	if err != nil {
		s.observe(strategy, "error", start, 0)
		return nil, err
	}

	fc.ElapsedMS = time.Since(start).Milliseconds()
	if cacheKey != "" {
		s.cache.Set(ctx, cacheKey, fc)
	}
	s.observe(strategy, "miss", start, len(fc.Features))

	s.logger.Debug("viewport query served",
		logging.String("strategy", string(strategy)),
		logging.Int("features", len(fc.Features)),
		logging.Int("total", fc.Total),
		logging.Float64("zoom", v.Zoom))
	return fc, nil
}

// guardAbusive rejects continent-wide viewports requested at street-level
// resolution before any store work happens.
func (s *Service) guardAbusive(v *query.Viewport) error {
	if v.Zoom >= s.config.ClusterZoomThreshold && v.BBox.MaxSpan() > s.config.AbusiveSpanDegrees {
		return errors.New(errors.CodeViewportAbusive, "viewport too large for requested zoom").
			WithDetail(fmt.Sprintf("span=%.1f max=%.1f zoom=%.0f", v.BBox.MaxSpan(), s.config.AbusiveSpanDegrees, v.Zoom))
	}
	return nil
}

func (s *Service) individual(ctx context.Context, v *query.Viewport) (*FeatureCollection, error) {
	rows, err := s.repo.FindInBBox(ctx, v.BBox, v.Filter, s.config.MaxListings)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "viewport listing query failed")
	}

	features := make([]Feature, 0, len(rows))
	for _, l := range rows {
		if !l.HasCoordinates() {
			continue
		}
		features = append(features, Feature{
			Kind:          "listing",
			Lat:           *l.Latitude,
			Lon:           *l.Longitude,
			ID:            l.ID,
			Address:       l.Address,
			Price:         l.Price,
			Bedrooms:      l.Bedrooms,
			Bathrooms:     l.Bathrooms,
			Sqft:          l.Sqft,
			Status:        string(l.Status),
			PropertyType:  l.PropertyType,
			EstimatedRent: l.EstimatedRent,
		})
	}
	return &FeatureCollection{Strategy: StrategyListings, Features: features, Total: len(features)}, nil
}

func (s *Service) aggregate(ctx context.Context, v *query.Viewport) (*FeatureCollection, error) {
	rows, err := s.repo.FindInBBox(ctx, v.BBox, v.Filter, s.config.AggregateFetchLimit)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "viewport aggregation query failed")
	}

	size := GridSize(v.Zoom)
	cells := make(map[cellKey]*cellAccumulator)
	total := 0
	for _, l := range rows {
		if !l.HasCoordinates() {
			continue
		}
		key := cellOf(*l.Latitude, *l.Longitude, size)
		acc, ok := cells[key]
		if !ok {
			acc = &cellAccumulator{}
			cells[key] = acc
		}
		acc.add(l.ID, l.Address, *l.Latitude, *l.Longitude, l.Price)
		total++
	}

	features := make([]Feature, 0, len(cells))
	for _, acc := range cells {
		lat, lon := acc.centroid()
		f := Feature{Kind: "cluster", Lat: lat, Lon: lon, Count: acc.count}
		if acc.priced > 0 {
			minP, maxP := acc.minPrice, acc.maxPrice
			avg := acc.sumPrice / float64(acc.priced)
			f.MinPrice, f.MaxPrice, f.AvgPrice = &minP, &maxP, &avg
		}
		if acc.count == 1 {
			f.ID = acc.soleID
			f.Address = acc.soleAddress
			f.Price = acc.solePrice
		}
		features = append(features, f)
	}

	// Map keys iterate in random order; sort for stable payloads and
	// cache-friendly equality.
	sort.Slice(features, func(i, j int) bool {
		if features[i].Lat != features[j].Lat {
			return features[i].Lat < features[j].Lat
		}
		return features[i].Lon < features[j].Lon
	})

	return &FeatureCollection{Strategy: StrategyClusters, Features: features, Total: total}, nil
}

func (s *Service) observe(strategy Strategy, outcome string, start time.Time, features int) {
	if s.metrics == nil {
		return
	}
	s.metrics.ClusterQueries.WithLabelValues(string(strategy), outcome).Inc()
	s.metrics.ClusterQueryDuration.Observe(time.Since(start).Seconds())
	if outcome != "error" {
		s.metrics.ClusterFeatureCount.Observe(float64(features))
	}
}
