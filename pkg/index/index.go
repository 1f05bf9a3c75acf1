// Package index defines the types and contracts shared by every vector index
// algorithm in vectorcore: ChunkID/LibraryID identifiers, the normalized
// vector and metadata tuple, the algorithm tag, the ranked search result, and
// the Index interface the registry dispatches through.
//
// Concrete algorithms (pkg/index/bruteforce, pkg/index/lsh, pkg/index/hnsw)
// implement Index; pkg/registry owns instances keyed by (library, algorithm).
package index

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ChunkID is an opaque identifier supplied by the caller. Identifiers are
// unique within a library; no ordering is implied.
type ChunkID = uuid.UUID

// LibraryID names a namespace: each library owns independent index
// instances for every algorithm.
type LibraryID = uuid.UUID

// Vector is a fixed-width sequence of 32-bit floats. All vectors within one
// library index share the same length; mixing lengths is a programmer error
// reported as ErrDimensionMismatch.
type Vector = []float32

// Metadata is an opaque string-to-string mapping retained for diagnostics
// only. The core never interprets its contents.
type Metadata = map[string]string

// IndexedVector is the stored form of a chunk: its id, its L2-normalized
// vector (or the zero vector, preserved as-is), and its metadata.
type IndexedVector struct {
	ID       ChunkID
	Vector   Vector
	Metadata Metadata
}

// Algorithm is the closed set of index implementations. It is a sealed
// variant rather than an interface hierarchy: adding a fourth algorithm
// means adding a case here and a branch in the registry's factory, not a new
// subtype relationship.
type Algorithm int

const (
	// HNSW selects the hierarchical navigable small world graph index.
	HNSW Algorithm = iota
	// LSH selects the random-hyperplane locality-sensitive hashing index.
	LSH
	// BruteForce selects the exact linear-scan baseline.
	BruteForce
)

// String renders the algorithm tag in its canonical external spelling.
func (a Algorithm) String() string {
	switch a {
	case HNSW:
		return "hnsw"
	case LSH:
		return "lsh"
	case BruteForce:
		return "brute_force"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps an external tag (case-insensitive, as accepted from an
// HTTP query parameter or an environment variable) to an Algorithm. Returns
// ErrUnknownAlgorithm for anything else.
func ParseAlgorithm(tag string) (Algorithm, error) {
	switch strings.ToLower(tag) {
	case "hnsw":
		return HNSW, nil
	case "lsh":
		return LSH, nil
	case "brute_force", "bruteforce":
		return BruteForce, nil
	default:
		return 0, ErrUnknownAlgorithm
	}
}

// Algorithms lists the closed set, in a stable order, for callers that need
// to iterate "every algorithm for this library" (build_all, remove, drop).
func Algorithms() []Algorithm {
	return []Algorithm{HNSW, LSH, BruteForce}
}

// SearchResult is one ranked hit: a chunk id paired with its similarity (and
// the diagnostic complement, distance) against the query.
type SearchResult struct {
	ID         ChunkID
	Similarity float64
	Distance   float64
}

// Stats reports size, algorithm identity, and algorithm-specific counters
// for one index instance. Complexity is a descriptive annotation only, never
// parsed by callers.
type Stats struct {
	Algorithm   Algorithm
	Size        int
	Built       bool
	Complexity  string
	Counters    map[string]any
}

// Index is the contract every algorithm implements. The registry (pkg/registry)
// is the only caller; it dispatches through this interface rather than a
// runtime type switch.
//
// Implementations must be internally thread-safe per §5: Search/Stats take a
// shared lock, Add/Remove/Build take an exclusive lock, and a single
// insert/remove step is atomic under one lock acquisition so a concurrent
// search never observes a half-applied mutation.
type Index interface {
	// Add inserts or overwrites the vector for id. Re-inserting an existing
	// id replaces it in place without changing Size.
	Add(id ChunkID, v Vector, meta Metadata) error

	// Remove deletes id if present and reports whether it existed. It is
	// idempotent: a repeat call returns false without side effects.
	Remove(id ChunkID) bool

	// Search returns up to k nearest neighbours to q by descending
	// similarity. The brute-force index is exact and returns min(k, Size)
	// results; LSH and HNSW rank only their candidate set and may return
	// fewer. Brute force and LSH break ties by insertion order; HNSW's order
	// among equal similarities is not defined. Returns an empty slice,
	// never an error, when the index is empty.
	Search(ctx context.Context, q Vector, k int) ([]SearchResult, error)

	// Build finalizes/optimizes the index structure. Every implementation in
	// this module builds incrementally, so Build only marks the instance
	// "built" for Stats purposes.
	Build() error

	// Size returns the number of distinct ids currently stored.
	Size() int

	// Stats reports size, algorithm and algorithm-specific counters.
	Stats() Stats

	// Dimensions returns the configured vector width for this instance.
	Dimensions() int
}

// Sentinel errors. DimensionMismatch is fatal for the call and signals a
// programming error (wrong embedding dimension wired to the wrong library).
// No index operation returns ErrNotFound: Remove reports a missing id by
// returning false, per the core's "UnknownLibrary/not-found is not an
// error" design (spec §7).
var (
	ErrDimensionMismatch = errors.New("vectorcore/index: vector dimension mismatch")
	ErrUnknownAlgorithm  = errors.New("vectorcore/index: unknown algorithm tag")
	ErrNotFound          = errors.New("vectorcore/index: chunk id not found")
	ErrInvalidK          = errors.New("vectorcore/index: k must be non-negative")
)
