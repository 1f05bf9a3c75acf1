// Package lsh implements locality-sensitive hashing over random hyperplane
// projections for sublinear approximate candidate generation, refined by an
// exact cosine re-rank (spec.md §4.3).
//
// Each of L tables owns K fixed, unit-norm hyperplanes drawn from a standard
// normal distribution. A vector's signature in a table is the bitstring of
// the signs of its projections onto that table's hyperplanes; the signature
// is digested into a compact bucket key. Search unions the candidate buckets
// across all tables and falls back to an exact scan if that union is empty,
// so quality degrades gracefully rather than returning nothing.
package lsh

import (
	"context"
	"encoding/binary"
	mrand "math/rand"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/vector"
)

// Config holds LSH tuning parameters.
type Config struct {
	// Tables is L, the number of independent hash tables (default 8-10).
	Tables int
	// HashBits is K, the number of hyperplanes (and signature bits) per
	// table (default 10-12).
	HashBits int
	// Seed is the base seed every table's hyperplanes are derived from.
	// Two instances built with the same Seed, Tables and HashBits produce
	// identical hyperplanes and therefore identical buckets for identical
	// insert sequences.
	Seed int64
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{Tables: 8, HashBits: 10, Seed: 0x5eed}
}

type hashTable struct {
	hyperplanes [][]float32 // HashBits vectors of length `dimensions`, unit norm
	buckets     map[uint64]map[index.ChunkID]struct{}
}

// Index is a multi-table LSH vector index.
type Index struct {
	dimensions int
	config     Config

	mu      sync.RWMutex
	tables  []*hashTable
	vectors map[index.ChunkID]index.Vector
	meta    map[index.ChunkID]index.Metadata
	order   map[index.ChunkID]int
	seq     int
	built   bool
}

// New builds an LSH index for the given vector width. Hyperplanes for every
// table are generated immediately and are fixed for the life of the
// instance.
func New(dimensions int, config Config) *Index {
	if config.Tables <= 0 || config.HashBits <= 0 {
		config = DefaultConfig()
	}

	idx := &Index{
		dimensions: dimensions,
		config:     config,
		tables:     make([]*hashTable, config.Tables),
		vectors:    make(map[index.ChunkID]index.Vector),
		meta:       make(map[index.ChunkID]index.Metadata),
		order:      make(map[index.ChunkID]int),
	}

	for t := 0; t < config.Tables; t++ {
		idx.tables[t] = &hashTable{
			hyperplanes: newHyperplanes(config.Seed, t, config.HashBits, dimensions),
			buckets:     make(map[uint64]map[index.ChunkID]struct{}),
		}
	}
	return idx
}

// newHyperplanes deterministically derives K unit-norm hyperplanes for table
// t from baseSeed. The per-table seed is a blake2b digest of baseSeed and t
// rather than baseSeed+t directly, so nearby base seeds don't produce
// correlated tables; the result is still fully deterministic across
// processes given the same baseSeed, t, k and dimensions.
func newHyperplanes(baseSeed int64, t, k, dimensions int) [][]float32 {
	var seedInput [16]byte
	binary.LittleEndian.PutUint64(seedInput[0:8], uint64(baseSeed))
	binary.LittleEndian.PutUint64(seedInput[8:16], uint64(t))
	digest := blake2b.Sum512(seedInput[:])
	tableSeed := int64(binary.LittleEndian.Uint64(digest[:8]))

	rng := mrand.New(mrand.NewSource(tableSeed))
	planes := make([][]float32, k)
	for i := 0; i < k; i++ {
		plane := make([]float32, dimensions)
		for d := 0; d < dimensions; d++ {
			plane[d] = float32(rng.NormFloat64())
		}
		planes[i] = vector.Normalize(plane)
	}
	return planes
}

// Dimensions returns the configured vector width.
func (l *Index) Dimensions() int { return l.dimensions }

// signature computes the bucket key for x in table t: the sign bitstring of
// x's projections onto the table's hyperplanes, packed and digested with
// xxhash so identical signatures always yield identical keys.
func signature(t *hashTable, x index.Vector) uint64 {
	bits := make([]byte, (len(t.hyperplanes)+7)/8)
	for i, plane := range t.hyperplanes {
		if vector.Dot(plane, x) >= 0 {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	return xxhash.Sum64(bits)
}

// Add normalizes v, stores it, and inserts id into every table's bucket for
// v's signature.
func (l *Index) Add(id index.ChunkID, v index.Vector, meta index.Metadata) error {
	if len(v) != l.dimensions {
		return index.ErrDimensionMismatch
	}

	normalized := vector.Normalize(v)

	l.mu.Lock()
	defer l.mu.Unlock()

	if old, exists := l.vectors[id]; exists {
		l.removeFromBuckets(id, old)
	} else {
		l.order[id] = l.seq
		l.seq++
	}

	l.vectors[id] = normalized
	l.meta[id] = meta
	for _, t := range l.tables {
		key := signature(t, normalized)
		bucket := t.buckets[key]
		if bucket == nil {
			bucket = make(map[index.ChunkID]struct{})
			t.buckets[key] = bucket
		}
		bucket[id] = struct{}{}
	}
	return nil
}

func (l *Index) removeFromBuckets(id index.ChunkID, v index.Vector) {
	for _, t := range l.tables {
		key := signature(t, v)
		bucket, ok := t.buckets[key]
		if !ok {
			continue
		}
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(t.buckets, key)
		}
	}
}

// Remove deletes id from the vector map and every table bucket it hashed
// into, re-deriving the signature from the stored vector. Idempotent.
func (l *Index) Remove(id index.ChunkID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.vectors[id]
	if !exists {
		return false
	}

	l.removeFromBuckets(id, v)
	delete(l.vectors, id)
	delete(l.meta, id)
	delete(l.order, id)
	return true
}

// Search normalizes q, unions the candidate buckets across all tables, falls
// back to an exact scan if that union is empty, and returns the top k exact
// cosine matches among the candidates.
func (l *Index) Search(ctx context.Context, q index.Vector, k int) ([]index.SearchResult, error) {
	if len(q) != l.dimensions {
		return nil, index.ErrDimensionMismatch
	}
	if k < 0 {
		return nil, index.ErrInvalidK
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.vectors) == 0 {
		return []index.SearchResult{}, nil
	}

	normalizedQuery := vector.Normalize(q)

	candidates := make(map[index.ChunkID]struct{})
	for _, t := range l.tables {
		key := signature(t, normalizedQuery)
		for id := range t.buckets[key] {
			candidates[id] = struct{}{}
		}
	}

	if len(candidates) == 0 {
		// Fallback: degrade to an exact scan rather than return nothing.
		for id := range l.vectors {
			candidates[id] = struct{}{}
		}
	}

	type scored struct {
		id    index.ChunkID
		sim   float64
		order int
	}
	results := make([]scored, 0, len(candidates))
	for id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim := vector.Dot(normalizedQuery, l.vectors[id])
		results = append(results, scored{id: id, sim: sim, order: l.order[id]})
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

// Build marks the instance built. LSH indexes incrementally; there is
// nothing to finalize.
func (l *Index) Build() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.built = true
	return nil
}

// Size returns the number of distinct stored ids.
func (l *Index) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.vectors)
}

// Stats reports size, table/bucket counts and average bucket occupancy.
func (l *Index) Stats() index.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()

	totalBuckets := 0
	totalEntries := 0
	for _, t := range l.tables {
		totalBuckets += len(t.buckets)
		for _, bucket := range t.buckets {
			totalEntries += len(bucket)
		}
	}
	avgBucket := 0.0
	if totalBuckets > 0 {
		avgBucket = float64(totalEntries) / float64(totalBuckets)
	}

	return index.Stats{
		Algorithm:  index.LSH,
		Size:       len(l.vectors),
		Built:      l.built,
		Complexity: "O(L*K + candidates) search, O(L*K) insert",
		Counters: map[string]any{
			"tables":          l.config.Tables,
			"hash_bits":       l.config.HashBits,
			"total_buckets":   totalBuckets,
			"avg_bucket_size": avgBucket,
		},
	}
}
