package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rentscope/rentscope/internal/domain/benchmark"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/prometheus"
	"github.com/rentscope/rentscope/pkg/errors"
)

// BenchmarkRepository implements benchmark.Repository over the relational
// store.  Rents are stored as a jsonb bucket map, matching the upstream
// feed's shape.
type BenchmarkRepository struct {
	db      *DB
	metrics *prometheus.Metrics
}

// NewBenchmarkRepository wires the benchmark repository.  metrics may be
// nil.
func NewBenchmarkRepository(db *DB, metrics *prometheus.Metrics) *BenchmarkRepository {
	return &BenchmarkRepository{db: db, metrics: metrics}
}

// FindByAreaKey loads the benchmark row for an area.
func (r *BenchmarkRepository) FindByAreaKey(ctx context.Context, areaKey string) (*benchmark.Benchmark, error) {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("benchmark_by_area", time.Now())

	var (
		b        benchmark.Benchmark
		rentsRaw []byte
	)
	err := r.db.pool.QueryRow(ctx, `
		SELECT area_key, rents, updated_at FROM market_benchmarks WHERE area_key = $1`,
		areaKey).Scan(&b.AreaKey, &rentsRaw, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.New(errors.CodeBenchmarkNotFound, "no benchmark for area").WithDetail(areaKey)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabase, "benchmark lookup failed")
	}
	if err := json.Unmarshal(rentsRaw, &b.Rents); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "benchmark rents decode failed").WithDetail(areaKey)
	}
	return &b, nil
}

// Upsert writes a benchmark row, replacing any existing row for the area.
func (r *BenchmarkRepository) Upsert(ctx context.Context, b *benchmark.Benchmark) error {
	ctx, cancel := r.db.queryCtx(ctx)
	defer cancel()
	defer r.observe("benchmark_upsert", time.Now())

	rentsRaw, err := json.Marshal(b.Rents)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "benchmark rents encode failed").WithDetail(b.AreaKey)
	}

	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO market_benchmarks (area_key, rents, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (area_key) DO UPDATE SET rents = $2, updated_at = $3`,
		b.AreaKey, rentsRaw, b.UpdatedAt)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabase, "benchmark upsert failed")
	}
	return nil
}

func (r *BenchmarkRepository) observe(query string, start time.Time) {
	if r.metrics != nil {
		r.metrics.DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}
