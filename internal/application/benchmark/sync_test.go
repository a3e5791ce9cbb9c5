package benchmark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/rentscope/rentscope/internal/domain/benchmark"
	"github.com/rentscope/rentscope/internal/infrastructure/monitoring/logging"
	"github.com/rentscope/rentscope/pkg/errors"
)

type memoryRepo struct {
	rows map[string]*domain.Benchmark
	err  error
}

func (m *memoryRepo) FindByAreaKey(ctx context.Context, areaKey string) (*domain.Benchmark, error) {
	b, ok := m.rows[areaKey]
	if !ok {
		return nil, errors.New(errors.CodeBenchmarkNotFound, "no benchmark for area")
	}
	return b, nil
}

func (m *memoryRepo) Upsert(ctx context.Context, b *domain.Benchmark) error {
	if m.err != nil {
		return m.err
	}
	if m.rows == nil {
		m.rows = map[string]*domain.Benchmark{}
	}
	m.rows[b.AreaKey] = b
	return nil
}

type sliceSource struct {
	rows []*domain.Benchmark
	err  error
}

func (s *sliceSource) Fetch(ctx context.Context) ([]*domain.Benchmark, error) {
	return s.rows, s.err
}

func TestSyncer_WritesAllValidRows(t *testing.T) {
	repo := &memoryRepo{}
	source := &sliceSource{rows: []*domain.Benchmark{
		{AreaKey: "44109", Rents: map[domain.Bucket]float64{"2br": 950}},
		{AreaKey: "46204", Rents: map[domain.Bucket]float64{"2br": 1600}},
	}}
	syncer := NewSyncer(source, repo, logging.NewNopLogger())

	stats, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 2, stats.Written)
	assert.Equal(t, 0, stats.Skipped)

	row, err := repo.FindByAreaKey(context.Background(), "44109")
	require.NoError(t, err)
	assert.False(t, row.UpdatedAt.IsZero())
}

func TestSyncer_SkipsInvalidRows(t *testing.T) {
	repo := &memoryRepo{}
	source := &sliceSource{rows: []*domain.Benchmark{
		{AreaKey: "", Rents: map[domain.Bucket]float64{"2br": 950}},
		{AreaKey: "44111", Rents: map[domain.Bucket]float64{"2br": -5}},
		{AreaKey: "44113", Rents: map[domain.Bucket]float64{"2br": 1400}},
	}}
	syncer := NewSyncer(source, repo, logging.NewNopLogger())

	stats, err := syncer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Written)
	assert.Equal(t, 2, stats.Skipped)
}

func TestSyncer_SourceFailurePropagates(t *testing.T) {
	syncer := NewSyncer(&sliceSource{err: errors.Internal("upstream 500")}, &memoryRepo{}, logging.NewNopLogger())

	_, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}

func TestStaticSeedSource_CoversLaunchMarkets(t *testing.T) {
	rows, err := NewStaticSeedSource().Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	byArea := map[string]*domain.Benchmark{}
	for _, r := range rows {
		require.NoError(t, r.Validate())
		byArea[r.AreaKey] = r
	}

	tremont, ok := byArea["44113"]
	require.True(t, ok)
	rent, ok := tremont.Rent(2)
	require.True(t, ok)
	assert.InDelta(t, 1400, rent, 1e-9)

	indy, ok := byArea["46204"]
	require.True(t, ok)
	rent, ok = indy.Rent(9) // clamps to the 4br bucket
	require.True(t, ok)
	assert.InDelta(t, 2400, rent, 1e-9)
}
