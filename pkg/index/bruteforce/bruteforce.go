// Package bruteforce implements an exact linear-scan vector index.
//
// It is the ground-truth baseline the other two algorithms are graded
// against in the acceptance properties of spec.md §8: O(N*d) per query,
// O(1) per insert, no approximation.
package bruteforce

import (
	"context"
	"sort"
	"sync"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/vector"
)

// Index is a brute-force vector index: a flat map of normalized vectors,
// scanned in full on every search.
type Index struct {
	dimensions int

	mu      sync.RWMutex
	vectors map[index.ChunkID]index.Vector
	meta    map[index.ChunkID]index.Metadata
	order   map[index.ChunkID]int // insertion sequence, for tie-breaking
	seq     int
	built   bool
}

// New creates an empty brute-force index for vectors of the given width.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		vectors:    make(map[index.ChunkID]index.Vector),
		meta:       make(map[index.ChunkID]index.Metadata),
		order:      make(map[index.ChunkID]int),
	}
}

// Dimensions returns the configured vector width.
func (b *Index) Dimensions() int { return b.dimensions }

// Add normalizes v and stores it keyed by id, overwriting any existing entry
// in place.
func (b *Index) Add(id index.ChunkID, v index.Vector, meta index.Metadata) error {
	if len(v) != b.dimensions {
		return index.ErrDimensionMismatch
	}

	normalized := vector.Normalize(v)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.vectors[id]; !exists {
		b.order[id] = b.seq
		b.seq++
	}
	b.vectors[id] = normalized
	b.meta[id] = meta
	return nil
}

// Remove deletes id and reports whether it existed.
func (b *Index) Remove(id index.ChunkID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.vectors[id]; !exists {
		return false
	}
	delete(b.vectors, id)
	delete(b.meta, id)
	delete(b.order, id)
	return true
}

// Search normalizes q and returns the min(k, Size) most similar stored
// vectors, ties broken by insertion order.
func (b *Index) Search(ctx context.Context, q index.Vector, k int) ([]index.SearchResult, error) {
	if len(q) != b.dimensions {
		return nil, index.ErrDimensionMismatch
	}
	if k < 0 {
		return nil, index.ErrInvalidK
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.vectors) == 0 {
		return []index.SearchResult{}, nil
	}

	normalizedQuery := vector.Normalize(q)

	type scored struct {
		id    index.ChunkID
		sim   float64
		order int
	}
	results := make([]scored, 0, len(b.vectors))
	for id, v := range b.vectors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim := vector.Dot(normalizedQuery, v)
		results = append(results, scored{id: id, sim: sim, order: b.order[id]})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].sim != results[j].sim {
			return results[i].sim > results[j].sim
		}
		return results[i].order < results[j].order
	})

	if k < len(results) {
		results = results[:k]
	}

	out := make([]index.SearchResult, len(results))
	for i, r := range results {
		out[i] = index.SearchResult{ID: r.id, Similarity: r.sim, Distance: vector.Distance(r.sim)}
	}
	return out, nil
}

// Build is a no-op; brute-force has nothing to precompute. It only marks the
// instance built, for Stats.
func (b *Index) Build() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = true
	return nil
}

// Size returns the number of distinct stored ids.
func (b *Index) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.vectors)
}

// Stats reports size and build status.
func (b *Index) Stats() index.Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return index.Stats{
		Algorithm:  index.BruteForce,
		Size:       len(b.vectors),
		Built:      b.built,
		Complexity: "O(N*d) search, O(1) insert",
		Counters:   map[string]any{"dimensions": b.dimensions},
	}
}
