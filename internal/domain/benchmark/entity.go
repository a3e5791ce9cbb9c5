// Package benchmark defines the federal fair-market-rent benchmark entity
// and its repository contract.  Benchmark rows are refreshed on a slow
// cadence by a background sync job and are only ever read on the request
// path.
package benchmark

import (
	"fmt"
	"time"

	"github.com/rentscope/rentscope/pkg/errors"
)

// Bucket is a bedroom-count bucket key in the "<n>br" form used by the
// upstream data set ("0br" through "4br").
type Bucket string

// BucketFor clamps a bedroom count into the supported bucket range.
// Studios map to "0br"; anything above four bedrooms uses the "4br" figure,
// which is the most conservative available.
func BucketFor(bedrooms int) Bucket {
	if bedrooms < 0 {
		bedrooms = 0
	}
	if bedrooms > 4 {
		bedrooms = 4
	}
	return Bucket(fmt.Sprintf("%dbr", bedrooms))
}

// Benchmark holds the conservative monthly-rent figures for one geographic
// area, keyed by bedroom bucket.  At most one row exists per area key.
type Benchmark struct {
	AreaKey   string
	Rents     map[Bucket]float64
	UpdatedAt time.Time
}

// Rent returns the benchmark monthly rent for the given bedroom count, or
// false when the bucket has no figure.
func (b *Benchmark) Rent(bedrooms int) (float64, bool) {
	if b == nil || len(b.Rents) == 0 {
		return 0, false
	}
	v, ok := b.Rents[BucketFor(bedrooms)]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// Validate checks the invariants a benchmark row must satisfy before being
// persisted.
func (b *Benchmark) Validate() error {
	if b.AreaKey == "" {
		return errors.Validation("benchmark area key must not be empty")
	}
	if len(b.Rents) == 0 {
		return errors.Validation("benchmark must carry at least one bucket").WithDetail(b.AreaKey)
	}
	for bucket, rent := range b.Rents {
		if rent <= 0 {
			return errors.Validation("benchmark rent must be positive").
				WithDetail(fmt.Sprintf("area=%s bucket=%s rent=%v", b.AreaKey, bucket, rent))
		}
	}
	return nil
}
