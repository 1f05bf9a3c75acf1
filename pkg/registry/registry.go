// Package registry owns per-library, per-algorithm index instances
// (spec.md §4.5): creation on first write, dispatch by (library, algorithm)
// key, and the lifecycle operations (build, stats, drop) the orchestrator
// and the HTTP surface call through.
package registry

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/index/bruteforce"
	"github.com/wyrmhollow/vectorcore/pkg/index/hnsw"
	"github.com/wyrmhollow/vectorcore/pkg/index/lsh"
)

type instanceKey struct {
	library index.LibraryID
	algo    index.Algorithm
}

// Config bundles the per-algorithm tuning knobs a Registry hands to every
// instance it creates.
type Config struct {
	Dimensions       int
	DefaultAlgorithm index.Algorithm
	HNSW             hnsw.Config
	LSH              lsh.Config
}

// Registry is the single owner of every (library, algorithm) index
// instance. The map itself is guarded by a readers-writer lock per spec.md
// §5: resolving an existing instance (query, add-to-existing) takes the
// read lock; creating a new instance or dropping a library takes the write
// lock. Each instance is internally guarded on top of that.
type Registry struct {
	config Config

	mu        sync.RWMutex
	instances map[instanceKey]index.Index
}

// New creates an empty registry. The registry starts empty; cmd/vectorcore's
// stats and rehydrate commands replay one library's stored vectors into it
// through pkg/store's ForEachIndexed. The serve command does not.
func New(config Config) *Registry {
	return &Registry{
		config:    config,
		instances: make(map[instanceKey]index.Index),
	}
}

func newInstance(algo index.Algorithm, cfg Config) index.Index {
	switch algo {
	case index.HNSW:
		return hnsw.New(cfg.Dimensions, cfg.HNSW)
	case index.LSH:
		return lsh.New(cfg.Dimensions, cfg.LSH)
	default:
		return bruteforce.New(cfg.Dimensions)
	}
}

// getOrCreate resolves the instance for key, creating it under the write
// lock on first use. Double-checked so the common "already exists" path
// only needs the read lock.
func (r *Registry) getOrCreate(key instanceKey) index.Index {
	r.mu.RLock()
	inst, ok := r.instances[key]
	r.mu.RUnlock()
	if ok {
		return inst
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[key]; ok {
		return inst
	}
	inst = newInstance(key.algo, r.config)
	r.instances[key] = inst
	return inst
}

func (r *Registry) get(key instanceKey) (index.Index, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[key]
	return inst, ok
}

// Add converts the caller's vector into the internal form and dispatches it
// to the default algorithm's instance for library, creating it lazily on
// first write. If buildAll is true (used by comparison tooling, not the hot
// path) it is also dispatched to every other algorithm's instance for the
// same library.
func (r *Registry) Add(library index.LibraryID, chunk index.ChunkID, v index.Vector, meta index.Metadata, buildAll bool) error {
	algos := []index.Algorithm{r.config.DefaultAlgorithm}
	if buildAll {
		algos = index.Algorithms()
	}

	group, _ := errgroup.WithContext(context.Background())
	for _, algo := range algos {
		algo := algo
		group.Go(func() error {
			inst := r.getOrCreate(instanceKey{library: library, algo: algo})
			return inst.Add(chunk, v, meta)
		})
	}
	return group.Wait()
}

// Remove dispatches to every instance that already exists for library and
// reports whether any of them actually removed the chunk.
func (r *Registry) Remove(library index.LibraryID, chunk index.ChunkID) bool {
	var mu sync.Mutex
	removed := false

	var wg sync.WaitGroup
	for _, algo := range index.Algorithms() {
		inst, ok := r.get(instanceKey{library: library, algo: algo})
		if !ok {
			continue
		}
		wg.Add(1)
		go func(inst index.Index) {
			defer wg.Done()
			if inst.Remove(chunk) {
				mu.Lock()
				removed = true
				mu.Unlock()
			}
		}(inst)
	}
	wg.Wait()
	return removed
}

// Query locates the instance for (library, algorithm) and returns its
// ranked results. algo defaults to the registry's configured default
// algorithm. An unknown library yields an empty result, not an error —
// this keeps search idempotent across warm-ups (spec.md §7).
func (r *Registry) Query(ctx context.Context, library index.LibraryID, q index.Vector, k int, algo *index.Algorithm) ([]index.SearchResult, error) {
	resolved := r.config.DefaultAlgorithm
	if algo != nil {
		resolved = *algo
	}

	inst, ok := r.get(instanceKey{library: library, algo: resolved})
	if !ok {
		return []index.SearchResult{}, nil
	}
	return inst.Search(ctx, q, k)
}

// Build invokes the Build entry point for library. If algo is nil, every
// existing instance for library is built; an unknown library is a no-op
// success, matching the "unknown library" absent-form handling used
// elsewhere in the registry.
func (r *Registry) Build(library index.LibraryID, algo *index.Algorithm) error {
	algos := index.Algorithms()
	if algo != nil {
		algos = []index.Algorithm{*algo}
	}

	group, _ := errgroup.WithContext(context.Background())
	for _, a := range algos {
		inst, ok := r.get(instanceKey{library: library, algo: a})
		if !ok {
			continue
		}
		group.Go(inst.Build)
	}
	return group.Wait()
}

// Stats reports size/algorithm/counters for the registry's default
// algorithm instance of library. ok is false if no instance exists yet.
func (r *Registry) Stats(library index.LibraryID) (index.Stats, bool) {
	return r.StatsFor(library, r.config.DefaultAlgorithm)
}

// StatsFor reports stats for a specific algorithm's instance of library.
func (r *Registry) StatsFor(library index.LibraryID, algo index.Algorithm) (index.Stats, bool) {
	inst, ok := r.get(instanceKey{library: library, algo: algo})
	if !ok {
		return index.Stats{}, false
	}
	return inst.Stats(), true
}

// DefaultAlgorithm returns the algorithm this registry dispatches to when a
// caller does not specify one.
func (r *Registry) DefaultAlgorithm() index.Algorithm {
	return r.config.DefaultAlgorithm
}

// Drop destroys every instance keyed by library and reports whether any
// existed.
func (r *Registry) Drop(library index.LibraryID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for _, algo := range index.Algorithms() {
		key := instanceKey{library: library, algo: algo}
		if _, ok := r.instances[key]; ok {
			delete(r.instances, key)
			removed = true
		}
	}
	return removed
}
