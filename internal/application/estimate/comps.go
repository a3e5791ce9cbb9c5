package estimate

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rentscope/rentscope/internal/application/query"
	"github.com/rentscope/rentscope/internal/domain/listing"
	"github.com/rentscope/rentscope/pkg/types/geo"
)

// Comp is one comparable rental retained for caller transparency.
type Comp struct {
	Address       string  `json:"address"`
	Price         float64 `json:"price"`
	Bedrooms      int     `json:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms"`
	Sqft          int     `json:"sqft,omitempty"`
	DistanceMiles float64 `json:"distance_miles"`
	Score         float64 `json:"score"`
}

// compSweep is the result of one radius sweep over the rental store.
type compSweep struct {
	comps    []Comp
	mean     float64
	excluded int // comps dropped by the scam filter
}

// similarity scores how comparable a rental is to the subject.  Starts at
// 1.0, decays linearly with distance, and takes multiplicative penalties for
// attribute mismatches.
func similarity(req *query.EstimateRequest, r *listing.Rental, dist, radius float64) float64 {
	score := 1.0 * (1 - dist/radius)

	if r.Bedrooms != req.Beds {
		score *= 0.85
	}
	if req.Baths != nil && r.Bathrooms > 0 && math.Abs(r.Bathrooms-*req.Baths) > 0.5 {
		score *= 0.9
	}
	if req.Sqft != nil && *req.Sqft > 0 && r.Sqft > 0 {
		diff := math.Abs(float64(r.Sqft-*req.Sqft)) / float64(*req.Sqft)
		if diff > 0.2 {
			score *= 0.9
		}
		if diff > 0.5 {
			score *= 0.8
		}
	}
	if req.YearBuilt != nil && r.YearBuilt > 0 {
		diff := r.YearBuilt - *req.YearBuilt
		if diff < 0 {
			diff = -diff
		}
		if diff > 15 {
			score *= 0.9
		}
		if diff > 30 {
			score *= 0.85
		}
	}
	return score
}

// gatherComps sweeps the rental store around the subject at the given
// radius, applies the scam filter against the benchmark, scores and ranks
// survivors, and averages the top MaxComps of them.
func (s *Service) gatherComps(ctx context.Context, req *query.EstimateRequest, radius float64, benchmarkRent *float64) (*compSweep, error) {
	minBeds := req.Beds - 1
	if minBeds < 0 {
		minBeds = 0
	}
	rentals, err := s.rentals.FindNearby(ctx, listing.RentalQuery{
		Center:      req.Subject,
		RadiusMiles: radius,
		MinBeds:     minBeds,
		MaxBeds:     req.Beds + 1,
		MinPrice:    0,
		MaxPrice:    s.config.MaxCompPrice,
		Lookback:    time.Duration(s.config.LookbackDays) * 24 * time.Hour,
		Limit:       s.config.SweepFetchLimit,
	})
	if err != nil {
		return nil, err
	}

	sweep := &compSweep{}
	var scored []Comp
	for _, r := range rentals {
		if r.Price <= 0 || r.Price >= s.config.MaxCompPrice {
			continue
		}
		dist := geo.HaversineMiles(req.Subject, r.Point())
		if dist > radius {
			continue
		}
		// Scam filter: a price implausibly far below the federal benchmark
		// marks a placeholder or bait listing, not a cheap unit.
		if benchmarkRent != nil && r.Price < *benchmarkRent*s.config.ScamFloorRatio {
			sweep.excluded++
			continue
		}
		scored = append(scored, Comp{
			Address:       r.Address,
			Price:         r.Price,
			Bedrooms:      r.Bedrooms,
			Bathrooms:     r.Bathrooms,
			Sqft:          r.Sqft,
			DistanceMiles: math.Round(dist*100) / 100,
			Score:         similarity(req, r, dist, radius),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > s.config.MaxComps {
		scored = scored[:s.config.MaxComps]
	}
	sweep.comps = scored

	if len(scored) > 0 {
		sum := 0.0
		for _, c := range scored {
			sum += c.Price
		}
		sweep.mean = sum / float64(len(scored))
	}
	return sweep, nil
}
