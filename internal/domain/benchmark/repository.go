package benchmark

import "context"

// Repository is the lookup-and-refresh contract for benchmark rows.
type Repository interface {
	// FindByAreaKey returns the benchmark row for an area, or a
	// CodeNotFound error when the area has no row.
	FindByAreaKey(ctx context.Context, areaKey string) (*Benchmark, error)

	// Upsert writes a benchmark row, replacing any existing row for the
	// same area key.  Used only by the sync job.
	Upsert(ctx context.Context, b *Benchmark) error
}

// Source supplies fresh benchmark rows from an external provider.  The
// concrete federal API client is a collaborator outside this engine; a
// static seed source ships for development.
type Source interface {
	Fetch(ctx context.Context) ([]*Benchmark, error)
}
