package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/index/hnsw"
	"github.com/wyrmhollow/vectorcore/pkg/index/lsh"
	"github.com/wyrmhollow/vectorcore/pkg/registry"
)

type stubEmbedder struct {
	vector index.Vector
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) (index.Vector, error) {
	return s.vector, s.err
}

type stubStore struct {
	records map[index.ChunkID]ChunkRecord
}

func (s *stubStore) GetChunk(ctx context.Context, library index.LibraryID, chunk index.ChunkID) (ChunkRecord, bool, error) {
	record, ok := s.records[chunk]
	return record, ok, nil
}

func testRegistry() *registry.Registry {
	return registry.New(registry.Config{
		Dimensions:       4,
		DefaultAlgorithm: index.BruteForce,
		HNSW:             hnsw.DefaultConfig(),
		LSH:              lsh.DefaultConfig(),
	})
}

func TestSearchEnrichesResultsInRankOrder(t *testing.T) {
	reg := testRegistry()
	library := uuid.New()
	first, second := uuid.New(), uuid.New()
	require.NoError(t, reg.Add(library, first, []float32{1, 0, 0, 0}, nil, false))
	require.NoError(t, reg.Add(library, second, []float32{0.9, 0.1, 0, 0}, nil, false))

	store := &stubStore{records: map[index.ChunkID]ChunkRecord{
		first:  {Text: "first chunk", DocumentName: "doc-a"},
		second: {Text: "second chunk", DocumentName: "doc-b"},
	}}
	orch := New(reg, &stubEmbedder{}, store)

	resp := orch.Search(context.Background(), Request{
		Library:     library,
		QueryVector: []float32{1, 0, 0, 0},
		K:           2,
	})

	require.Len(t, resp.Results, 2)
	assert.Equal(t, first, resp.Results[0].ChunkID)
	assert.Equal(t, "doc-a", resp.Results[0].DocumentName)
	assert.Equal(t, second, resp.Results[1].ChunkID)
	assert.Equal(t, 2, resp.TotalResults)
}

func TestSearchDropsStoreFetchMisses(t *testing.T) {
	reg := testRegistry()
	library := uuid.New()
	present, missing := uuid.New(), uuid.New()
	require.NoError(t, reg.Add(library, present, []float32{1, 0, 0, 0}, nil, false))
	require.NoError(t, reg.Add(library, missing, []float32{0.9, 0.1, 0, 0}, nil, false))

	store := &stubStore{records: map[index.ChunkID]ChunkRecord{
		present: {Text: "still here", DocumentName: "doc-a"},
	}}
	orch := New(reg, &stubEmbedder{}, store)

	resp := orch.Search(context.Background(), Request{
		Library:     library,
		QueryVector: []float32{1, 0, 0, 0},
		K:           2,
	})

	require.Len(t, resp.Results, 1)
	assert.Equal(t, present, resp.Results[0].ChunkID)
}

func TestSearchEmbeddingFailureCollapsesToEmptyResult(t *testing.T) {
	reg := testRegistry()
	library := uuid.New()
	store := &stubStore{records: map[index.ChunkID]ChunkRecord{}}
	orch := New(reg, &stubEmbedder{err: errors.New("embedding service unreachable")}, store)

	resp := orch.Search(context.Background(), Request{
		Library:   library,
		QueryText: "some query",
		K:         5,
	})

	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalResults)
}

func TestSearchEmptyQueryWithNoVectorReturnsEmptyResult(t *testing.T) {
	reg := testRegistry()
	orch := New(reg, &stubEmbedder{}, &stubStore{records: map[index.ChunkID]ChunkRecord{}})

	resp := orch.Search(context.Background(), Request{Library: uuid.New(), K: 5})
	assert.Empty(t, resp.Results)
}

func TestSearchUsesExplicitAlgorithmOverDefault(t *testing.T) {
	reg := testRegistry()
	library := uuid.New()
	chunk := uuid.New()
	require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, true))

	store := &stubStore{records: map[index.ChunkID]ChunkRecord{
		chunk: {Text: "chunk", DocumentName: "doc"},
	}}
	orch := New(reg, &stubEmbedder{}, store)

	hnswAlgo := index.HNSW
	resp := orch.Search(context.Background(), Request{
		Library:     library,
		QueryVector: []float32{1, 0, 0, 0},
		K:           1,
		Algorithm:   &hnswAlgo,
	})

	assert.Equal(t, index.HNSW, resp.AlgorithmUsed)
	require.Len(t, resp.Results, 1)
}
