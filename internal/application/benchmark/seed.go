// Package benchmark synchronizes federal market benchmarks into the local
// store so the triangulation engine's benchmark lookups never leave the
// process's own database.
package benchmark

import (
	"context"

	domain "github.com/rentscope/rentscope/internal/domain/benchmark"
)

// StaticSeedSource serves a fixed benchmark table for the launch markets
// (Cleveland and Indianapolis zip codes).  It stands in for the federal
// data feed until the upstream integration lands; the sync service treats
// it like any other Source.
type StaticSeedSource struct{}

// NewStaticSeedSource returns the built-in launch-market source.
func NewStaticSeedSource() *StaticSeedSource { return &StaticSeedSource{} }

var staticSeed = map[string]map[domain.Bucket]float64{
	"44109": {"0br": 700, "1br": 800, "2br": 950, "3br": 1200, "4br": 1400},
	"44111": {"0br": 750, "1br": 850, "2br": 1000, "3br": 1250, "4br": 1450},
	"44135": {"0br": 720, "1br": 820, "2br": 980, "3br": 1220, "4br": 1420},
	"44104": {"0br": 650, "1br": 750, "2br": 900, "3br": 1100, "4br": 1300},
	"44105": {"0br": 680, "1br": 780, "2br": 920, "3br": 1150, "4br": 1350},
	"44108": {"0br": 660, "1br": 760, "2br": 910, "3br": 1120, "4br": 1320},
	"44110": {"0br": 670, "1br": 770, "2br": 930, "3br": 1140, "4br": 1340},
	// Tremont and Ohio City run well above the county median.
	"44113": {"0br": 900, "1br": 1100, "2br": 1400, "3br": 1700, "4br": 2000},
	"44102": {"0br": 800, "1br": 950, "2br": 1150, "3br": 1400, "4br": 1600},
	"44128": {"0br": 750, "1br": 850, "2br": 1050, "3br": 1300, "4br": 1500},
	"44134": {"0br": 800, "1br": 900, "2br": 1100, "3br": 1350, "4br": 1550},
	"44144": {"0br": 780, "1br": 880, "2br": 1080, "3br": 1320, "4br": 1520},
	"44120": {"0br": 700, "1br": 800, "2br": 1000, "3br": 1250, "4br": 1450},
	"44130": {"0br": 850, "1br": 950, "2br": 1150, "3br": 1450, "4br": 1650},
	"44121": {"0br": 820, "1br": 920, "2br": 1120, "3br": 1400, "4br": 1600},
	"44129": {"0br": 810, "1br": 910, "2br": 1110, "3br": 1380, "4br": 1580},
	"44119": {"0br": 710, "1br": 810, "2br": 960, "3br": 1180, "4br": 1380},
	"44112": {"0br": 640, "1br": 740, "2br": 890, "3br": 1090, "4br": 1290},
	"44126": {"0br": 950, "1br": 1050, "2br": 1250, "3br": 1550, "4br": 1750},
	"44143": {"0br": 900, "1br": 1000, "2br": 1200, "3br": 1500, "4br": 1700},
	"44124": {"0br": 920, "1br": 1020, "2br": 1220, "3br": 1520, "4br": 1720},
	"44122": {"0br": 980, "1br": 1100, "2br": 1350, "3br": 1650, "4br": 1900},
	"46220": {"0br": 950, "1br": 1050, "2br": 1250, "3br": 1550, "4br": 1750},
	"46204": {"0br": 1100, "1br": 1300, "2br": 1600, "3br": 2000, "4br": 2400},
}

// Fetch returns the full static table.
func (s *StaticSeedSource) Fetch(ctx context.Context) ([]*domain.Benchmark, error) {
	out := make([]*domain.Benchmark, 0, len(staticSeed))
	for areaKey, rents := range staticSeed {
		copied := make(map[domain.Bucket]float64, len(rents))
		for bucket, rent := range rents {
			copied[bucket] = rent
		}
		out = append(out, &domain.Benchmark{AreaKey: areaKey, Rents: copied})
	}
	return out, nil
}
