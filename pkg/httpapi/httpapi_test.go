package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/index/hnsw"
	"github.com/wyrmhollow/vectorcore/pkg/index/lsh"
	"github.com/wyrmhollow/vectorcore/pkg/orchestrator"
	"github.com/wyrmhollow/vectorcore/pkg/registry"
)

type fixedEmbedder struct{ vector index.Vector }

func (f fixedEmbedder) Embed(ctx context.Context, text string) (index.Vector, error) {
	return f.vector, nil
}

type mapStore struct {
	records map[index.ChunkID]orchestrator.ChunkRecord
}

func (m mapStore) GetChunk(ctx context.Context, library index.LibraryID, chunk index.ChunkID) (orchestrator.ChunkRecord, bool, error) {
	record, ok := m.records[chunk]
	return record, ok, nil
}

func newTestServer(t *testing.T, n int) (*Server, index.LibraryID) {
	t.Helper()
	reg := registry.New(registry.Config{
		Dimensions:       4,
		DefaultAlgorithm: index.BruteForce,
		HNSW:             hnsw.DefaultConfig(),
		LSH:              lsh.DefaultConfig(),
	})

	library := uuid.New()
	records := make(map[index.ChunkID]orchestrator.ChunkRecord, n)
	for i := 0; i < n; i++ {
		chunk := uuid.New()
		require.NoError(t, reg.Add(library, chunk, []float32{1, 0, 0, 0}, nil, false))
		records[chunk] = orchestrator.ChunkRecord{Text: "chunk text", DocumentName: "doc.txt"}
	}

	orch := orchestrator.New(reg, fixedEmbedder{vector: []float32{1, 0, 0, 0}}, mapStore{records: records})
	return New(orch), library
}

func postSearch(t *testing.T, srv *Server, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleSearchReturnsDocumentedShape(t *testing.T) {
	srv, library := newTestServer(t, 3)

	body, err := json.Marshal(searchRequest{Library: library.String(), Query: "hello", K: 2})
	require.NoError(t, err)

	rec := postSearch(t, srv, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello", resp.Query)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalResults)
	assert.Equal(t, "brute_force", resp.AlgorithmUsed)
	require.NotNil(t, resp.IndexStats)
	assert.Equal(t, "brute_force", resp.IndexStats.Algorithm)
	for _, r := range resp.Results {
		assert.Equal(t, "chunk text", r.Text)
		assert.Equal(t, "doc.txt", r.DocumentName)
		assert.NotEmpty(t, r.ChunkID)
	}
}

func TestHandleSearchDefaultsKWhenNotPositive(t *testing.T) {
	srv, library := newTestServer(t, 15)

	body, err := json.Marshal(searchRequest{Library: library.String(), Query: "hello"})
	require.NoError(t, err)

	rec := postSearch(t, srv, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 10)
}

func TestHandleSearchUnknownAlgorithmReturns400(t *testing.T) {
	srv, library := newTestServer(t, 1)

	bogus := "quantum"
	body, err := json.Marshal(searchRequest{Library: library.String(), Query: "hello", Algorithm: &bogus})
	require.NoError(t, err)

	rec := postSearch(t, srv, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchInvalidLibraryIDReturns400(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	body, err := json.Marshal(searchRequest{Library: "not-a-uuid", Query: "hello"})
	require.NoError(t, err)

	rec := postSearch(t, srv, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchRejectsNonPost(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleHealthReportsErrorCount(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	// Trigger one error response before checking /health.
	rec := postSearch(t, srv, []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.EqualValues(t, 1, body["error_count"])
}
