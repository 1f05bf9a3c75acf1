// Package httpapi exposes the search core over HTTP: POST /search, which
// marshals a request into an orchestrator.Request and the response back out
// in the documented shape (spec.md §6), plus a /health status endpoint. The
// search algorithm comes from the JSON body's "algorithm" field or, when
// that is absent, from the "algorithm" query parameter. It is
// deliberately thin — an external collaborator of the core, not the core
// itself — and carries no business logic of its own.
package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/orchestrator"
)

// MaxRequestSize caps the body size accepted on /search, guarding against an
// oversized query payload tying up a worker goroutine decoding it.
const MaxRequestSize = 1 << 20 // 1MB

// Server serves the search HTTP surface.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	errorCount   atomic.Int64
}

// New wires a Server to the orchestrator it delegates every request to.
func New(o *orchestrator.Orchestrator) *Server {
	return &Server{orchestrator: o}
}

// Handler builds the http.Handler serving /search and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/health", s.handleHealth)
	return s.loggingMiddleware(mux)
}

type searchRequest struct {
	Library   string  `json:"library_id"`
	Query     string  `json:"query"`
	K         int     `json:"k,omitempty"`
	Algorithm *string `json:"algorithm,omitempty"`
}

type searchResultJSON struct {
	ChunkID         string  `json:"chunk_id"`
	Text            string  `json:"text"`
	SimilarityScore float64 `json:"similarity_score"`
	DocumentName    string  `json:"document_name"`
}

type searchResponse struct {
	Query         string             `json:"query"`
	Results       []searchResultJSON `json:"results"`
	TotalResults  int                `json:"total_results"`
	AlgorithmUsed string             `json:"algorithm_used"`
	IndexStats    *indexStatsJSON    `json:"index_stats,omitempty"`
}

type indexStatsJSON struct {
	Algorithm  string         `json:"algorithm"`
	Size       int            `json:"size"`
	Built      bool           `json:"built"`
	Complexity string         `json:"complexity"`
	Counters   map[string]any `json:"counters,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req searchRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	libraryID, err := uuid.Parse(req.Library)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid library_id")
		return
	}

	k := req.K
	if k <= 0 {
		k = 10
	}

	tag := req.Algorithm
	if tag == nil && r.URL.Query().Has("algorithm") {
		queryTag := r.URL.Query().Get("algorithm")
		tag = &queryTag
	}

	var algo *index.Algorithm
	if tag != nil {
		parsed, err := index.ParseAlgorithm(*tag)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "unknown algorithm")
			return
		}
		algo = &parsed
	}

	resp := s.orchestrator.Search(r.Context(), orchestrator.Request{
		Library:   libraryID,
		QueryText: req.Query,
		K:         k,
		Algorithm: algo,
	})

	s.writeJSON(w, http.StatusOK, toSearchResponse(resp))
}

func toSearchResponse(resp orchestrator.Response) searchResponse {
	results := make([]searchResultJSON, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultJSON{
			ChunkID:         r.ChunkID.String(),
			Text:            r.Text,
			SimilarityScore: r.Similarity,
			DocumentName:    r.DocumentName,
		}
	}

	out := searchResponse{
		Query:         resp.Query,
		Results:       results,
		TotalResults:  resp.TotalResults,
		AlgorithmUsed: resp.AlgorithmUsed.String(),
	}
	if resp.IndexStatsFound {
		out.IndexStats = &indexStatsJSON{
			Algorithm:  resp.IndexStats.Algorithm.String(),
			Size:       resp.IndexStats.Size,
			Built:      resp.IndexStats.Built,
			Complexity: resp.IndexStats.Complexity,
			Counters:   resp.IndexStats.Counters,
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"time":        time.Now().Format(time.RFC3339),
		"error_count": s.errorCount.Load(),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("vectorcore: %s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) readJSON(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, MaxRequestSize)
	return json.NewDecoder(body).Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.errorCount.Add(1)
	s.writeJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
