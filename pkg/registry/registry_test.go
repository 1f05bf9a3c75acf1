package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/index/hnsw"
	"github.com/wyrmhollow/vectorcore/pkg/index/lsh"
)

func testConfig() Config {
	return Config{
		Dimensions:       4,
		DefaultAlgorithm: index.BruteForce,
		HNSW:             hnsw.DefaultConfig(),
		LSH:              lsh.DefaultConfig(),
	}
}

func TestAddCreatesInstanceLazily(t *testing.T) {
	reg := New(testConfig())
	library := uuid.New()
	chunk := uuid.New()

	_, ok := reg.StatsFor(library, index.BruteForce)
	assert.False(t, ok)

	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, false))

	stats, ok := reg.StatsFor(library, index.BruteForce)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Size)
}

func TestBuildAllCreatesEveryAlgorithm(t *testing.T) {
	reg := New(testConfig())
	library := uuid.New()
	chunk := uuid.New()

	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, true))

	for _, algo := range index.Algorithms() {
		stats, ok := reg.StatsFor(library, algo)
		require.True(t, ok, "expected instance for %s", algo)
		assert.Equal(t, 1, stats.Size)
	}
}

func TestQueryUnknownLibraryReturnsEmptyNotError(t *testing.T) {
	reg := New(testConfig())
	results, err := reg.Query(context.Background(), uuid.New(), []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryUsesDefaultAlgorithmWhenNilGiven(t *testing.T) {
	reg := New(testConfig())
	library := uuid.New()
	chunk := uuid.New()
	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, false))

	results, err := reg.Query(context.Background(), library, []float32{1, 0, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chunk, results[0].ID)
}

func TestRemoveReportsWhetherAnyInstanceHadIt(t *testing.T) {
	reg := New(testConfig())
	library := uuid.New()
	chunk := uuid.New()
	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, true))

	assert.True(t, reg.Remove(library, chunk))
	assert.False(t, reg.Remove(library, chunk))
}

func TestDropRemovesAllAlgorithmInstances(t *testing.T) {
	reg := New(testConfig())
	library := uuid.New()
	chunk := uuid.New()
	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, true))

	assert.True(t, reg.Drop(library))
	for _, algo := range index.Algorithms() {
		_, ok := reg.StatsFor(library, algo)
		assert.False(t, ok)
	}
	assert.False(t, reg.Drop(library))
}

func TestDefaultAlgorithmReflectsConfig(t *testing.T) {
	reg := New(testConfig())
	assert.Equal(t, index.BruteForce, reg.DefaultAlgorithm())
}
