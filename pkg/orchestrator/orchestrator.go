// Package orchestrator implements SearchOrchestrator (spec.md §4.6): it
// turns a query (text or vector) plus k into a ranked, enriched result list,
// treating the embedding provider and the external chunk store as
// collaborators injected at construction rather than singletons.
package orchestrator

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/registry"
)

// EmbeddingProvider converts query text into a vector. It is an external
// collaborator (spec.md §1): the core never calls an embedding model
// directly, only through this interface.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) (index.Vector, error)
}

// ChunkRecord is the text/document data the external store owns for a
// chunk id. The core does not persist this; it only reads it to enrich a
// ranked result.
type ChunkRecord struct {
	Text         string
	DocumentName string
}

// ChunkStore fetches chunk text and owning-document name for enrichment.
// Found is false when the chunk was removed between the index hit and the
// fetch (spec.md §7 StoreFetchMiss) — not an error.
type ChunkStore interface {
	GetChunk(ctx context.Context, library index.LibraryID, chunk index.ChunkID) (record ChunkRecord, found bool, err error)
}

// Result is one enriched, ranked hit.
type Result struct {
	ChunkID      index.ChunkID
	Text         string
	DocumentName string
	Similarity   float64
}

// Request is a query from above the core: either QueryText (embedded via
// the EmbeddingProvider) or QueryVector (used directly) must be set.
type Request struct {
	Library     index.LibraryID
	QueryText   string
	QueryVector index.Vector
	K           int
	Algorithm   *index.Algorithm
}

// Response mirrors the HTTP surface's documented shape (spec.md §6) so the
// thin httpapi layer can marshal it directly.
type Response struct {
	Query           string
	Results         []Result
	TotalResults    int
	AlgorithmUsed   index.Algorithm
	IndexStats      index.Stats
	IndexStatsFound bool
}

// Orchestrator is SearchOrchestrator: query -> registry lookup -> store
// enrichment.
type Orchestrator struct {
	registry *registry.Registry
	embedder EmbeddingProvider
	store    ChunkStore
}

// New wires an Orchestrator to its registry and external collaborators.
// Either may be swapped independently of the other — dependency injection,
// not a process-wide singleton (spec.md §9).
func New(reg *registry.Registry, embedder EmbeddingProvider, store ChunkStore) *Orchestrator {
	return &Orchestrator{registry: reg, embedder: embedder, store: store}
}

// Search resolves req.QueryVector (embedding req.QueryText first if no
// vector was supplied), queries the registry, and enriches the ranked
// result with external text/document data.
//
// Embedding failure and store fetch misses are recovered locally per
// spec.md §7: an embedding failure collapses to an empty result (after
// being logged); a missing chunk is dropped from the result set, the rest
// is returned.
func (o *Orchestrator) Search(ctx context.Context, req Request) Response {
	algo := o.registry.DefaultAlgorithm()
	if req.Algorithm != nil {
		algo = *req.Algorithm
	}

	queryVector := req.QueryVector
	if queryVector == nil {
		if req.QueryText == "" {
			return Response{Query: req.QueryText, Results: []Result{}, AlgorithmUsed: algo}
		}
		vec, err := o.embedder.Embed(ctx, req.QueryText)
		if err != nil {
			log.Printf("vectorcore: embedding failed for query, returning empty result: %v", err)
			return Response{Query: req.QueryText, Results: []Result{}, AlgorithmUsed: algo}
		}
		queryVector = vec
	}

	hits, err := o.registry.Query(ctx, req.Library, queryVector, req.K, req.Algorithm)
	if err != nil {
		log.Printf("vectorcore: query failed, returning empty result: %v", err)
		return Response{Query: req.QueryText, Results: []Result{}, AlgorithmUsed: algo}
	}

	results := o.enrich(ctx, req.Library, hits)
	stats, statsFound := o.registry.StatsFor(req.Library, algo)

	return Response{
		Query:           req.QueryText,
		Results:         results,
		TotalResults:    len(results),
		AlgorithmUsed:   algo,
		IndexStats:      stats,
		IndexStatsFound: statsFound,
	}
}

// enrich fetches text/document data for each hit concurrently while
// preserving similarity order; chunks missing from the store are silently
// dropped, making search eventually consistent with deletions.
func (o *Orchestrator) enrich(ctx context.Context, library index.LibraryID, hits []index.SearchResult) []Result {
	if len(hits) == 0 {
		return []Result{}
	}

	type fetched struct {
		result Result
		found  bool
	}
	slots := make([]fetched, len(hits))

	group, gctx := errgroup.WithContext(ctx)
	for i, hit := range hits {
		i, hit := i, hit
		group.Go(func() error {
			record, found, err := o.store.GetChunk(gctx, library, hit.ID)
			if err != nil {
				log.Printf("vectorcore: store fetch failed for chunk %s, skipping: %v", hit.ID, err)
				return nil
			}
			if !found {
				return nil
			}
			slots[i] = fetched{
				result: Result{
					ChunkID:      hit.ID,
					Text:         record.Text,
					DocumentName: record.DocumentName,
					Similarity:   hit.Similarity,
				},
				found: true,
			}
			return nil
		})
	}
	_ = group.Wait()

	out := make([]Result, 0, len(hits))
	for _, s := range slots {
		if s.found {
			out = append(out, s.result)
		}
	}
	return out
}
