// Package hnsw implements a simplified Hierarchical Navigable Small World
// graph index (spec.md §4.4).
//
// This is the "no ef_construction beam" construction the spec permits:
// insert ranks every level-eligible node against the new vector directly
// (O(N*d) worst case) rather than running a bounded beam search from the
// entry point. That is acceptable at the target scale (<=10^6 vectors per
// library) and keeps the bidirectional-edge invariant trivial to maintain
// without a partially-converged beam. A beam-search substitute of width W
// is a natural follow-up if a library grows past that scale, but isn't
// implemented here since the spec explicitly allows either.
//
// State is a dense arena (slot-map) of nodes indexed by integer slot rather
// than a map of chunk-id-keyed pointers: neighbour sets are slices of slot
// indices, and the ChunkID -> slot mapping lives separately. This avoids
// heap-allocated back-references between nodes and keeps bidirectional edge
// maintenance a matter of two slice edits.
//
// The whole index is guarded by a single RWMutex (spec.md §5 explicitly
// permits this over per-node locking at this scale): a single insert or
// remove step is one write-lock acquisition, so a concurrent search never
// observes a half-wired edge.
package hnsw

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/wyrmhollow/vectorcore/pkg/index"
	"github.com/wyrmhollow/vectorcore/pkg/vector"
)

// Config holds HNSW tuning parameters.
type Config struct {
	// M is the soft neighbour cap at levels >= 1 (default 16).
	M int
	// M0 is the soft neighbour cap at level 0 (default 32).
	M0 int
	// LevelCap bounds how high a node's level can climb (default 8).
	LevelCap int
	// P is the level-draw success probability (default 0.5).
	P float64
	// Seed seeds the instance's dedicated PRNG. Two instances built with
	// the same seed and the same insert sequence produce identical graphs.
	Seed int64
}

// DefaultConfig returns the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{M: 16, M0: 32, LevelCap: 8, P: 0.5, Seed: 0x5eed}
}

type node struct {
	id        index.ChunkID
	vector    index.Vector
	level     int
	neighbors [][]int // neighbors[l] = slot indices connected at level l
}

// Index is a simplified HNSW vector index.
type Index struct {
	dimensions int
	config     Config

	mu         sync.RWMutex
	nodes      []*node // arena; a nil entry is a freed slot
	freeSlots  []int
	idToSlot   map[index.ChunkID]int
	entryPoint int // slot index, -1 if empty
	rng        *rand.Rand
	built      bool
}

// New creates an empty HNSW index for vectors of the given width.
func New(dimensions int, config Config) *Index {
	if config.M <= 0 || config.M0 <= 0 {
		config = DefaultConfig()
	}
	return &Index{
		dimensions: dimensions,
		config:     config,
		idToSlot:   make(map[index.ChunkID]int),
		entryPoint: -1,
		rng:        rand.New(rand.NewSource(config.Seed)),
	}
}

// Dimensions returns the configured vector width.
func (h *Index) Dimensions() int { return h.dimensions }

func (h *Index) randomLevel() int {
	level := 0
	for h.rng.Float64() < h.config.P && level < h.config.LevelCap {
		level++
	}
	return level
}

func (h *Index) allocSlot(n *node) int {
	if l := len(h.freeSlots); l > 0 {
		slot := h.freeSlots[l-1]
		h.freeSlots = h.freeSlots[:l-1]
		h.nodes[slot] = n
		return slot
	}
	h.nodes = append(h.nodes, n)
	return len(h.nodes) - 1
}

// Add inserts or replaces the vector for id. An existing id is removed and
// reinserted under the hood so the graph's edges always reflect the current
// vector; size is unaffected because the remove and the insert net out.
func (h *Index) Add(id index.ChunkID, v index.Vector, meta index.Metadata) error {
	if len(v) != h.dimensions {
		return index.ErrDimensionMismatch
	}
	normalized := vector.Normalize(v)

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.idToSlot[id]; exists {
		h.removeLocked(id)
	}

	level := h.randomLevel()
	n := &node{id: id, vector: normalized, level: level, neighbors: make([][]int, level+1)}
	for l := range n.neighbors {
		n.neighbors[l] = []int{}
	}
	slot := h.allocSlot(n)
	h.idToSlot[id] = slot

	if h.entryPoint == -1 {
		h.entryPoint = slot
		return nil
	}

	for l := 0; l <= level; l++ {
		cap := h.config.M
		if l == 0 {
			cap = h.config.M0
		}

		candidates := h.levelEligible(l, slot)
		chosen := h.topBySimilarity(normalized, candidates, cap)

		for _, neighborSlot := range chosen {
			h.connect(slot, neighborSlot, l)
			h.connect(neighborSlot, slot, l)
			h.pruneIfOverflow(neighborSlot, l, cap)
		}
	}

	if level > h.nodes[h.entryPoint].level {
		h.entryPoint = slot
	}
	return nil
}

// levelEligible returns every live slot (excluding exclude) whose node level
// is >= l.
func (h *Index) levelEligible(l, exclude int) []int {
	eligible := make([]int, 0, len(h.nodes))
	for s, n := range h.nodes {
		if n == nil || s == exclude {
			continue
		}
		if n.level >= l {
			eligible = append(eligible, s)
		}
	}
	return eligible
}

// topBySimilarity ranks candidate slots by cosine similarity to v (stored
// vectors are already normalized, so Dot is the fast path) and returns the
// top cap slot indices.
func (h *Index) topBySimilarity(v index.Vector, candidates []int, cap int) []int {
	type scored struct {
		slot int
		sim  float64
	}
	scoredList := make([]scored, len(candidates))
	for i, s := range candidates {
		scoredList[i] = scored{slot: s, sim: vector.Dot(v, h.nodes[s].vector)}
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].sim > scoredList[j].sim })

	if cap > len(scoredList) {
		cap = len(scoredList)
	}
	out := make([]int, cap)
	for i := 0; i < cap; i++ {
		out[i] = scoredList[i].slot
	}
	return out
}

func (h *Index) connect(from, to, level int) {
	for _, s := range h.nodes[from].neighbors[level] {
		if s == to {
			return
		}
	}
	h.nodes[from].neighbors[level] = append(h.nodes[from].neighbors[level], to)
}

func (h *Index) disconnect(from, to, level int) {
	neighbors := h.nodes[from].neighbors[level]
	for i, s := range neighbors {
		if s == to {
			h.nodes[from].neighbors[level] = append(neighbors[:i], neighbors[i+1:]...)
			return
		}
	}
}

// pruneIfOverflow removes n's single least-similar neighbour at level if n
// now has more than cap, per spec.md's "at most one above cap, eventually
// pruned" pruning rule.
func (h *Index) pruneIfOverflow(slot, level, cap int) {
	n := h.nodes[slot]
	if len(n.neighbors[level]) <= cap {
		return
	}

	worstSlot := -1
	worstSim := 0.0
	for i, s := range n.neighbors[level] {
		sim := vector.Dot(n.vector, h.nodes[s].vector)
		if i == 0 || sim < worstSim {
			worstSim = sim
			worstSlot = s
		}
	}
	if worstSlot != -1 {
		h.disconnect(slot, worstSlot, level)
		h.disconnect(worstSlot, slot, level)
	}
}

// Remove deletes id and reports whether it existed. Idempotent.
func (h *Index) Remove(id index.ChunkID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(id)
}

func (h *Index) removeLocked(id index.ChunkID) bool {
	slot, exists := h.idToSlot[id]
	if !exists {
		return false
	}

	n := h.nodes[slot]
	for l, neighbors := range n.neighbors {
		for _, neighborSlot := range neighbors {
			h.disconnect(neighborSlot, slot, l)
		}
	}

	h.nodes[slot] = nil
	h.freeSlots = append(h.freeSlots, slot)
	delete(h.idToSlot, id)

	if h.entryPoint == slot {
		h.entryPoint = h.pickNewEntryPoint()
	}
	return true
}

// pickNewEntryPoint scans for the live node with the highest level, to
// preserve top-level graph reachability; returns -1 if the index is empty.
func (h *Index) pickNewEntryPoint() int {
	best := -1
	bestLevel := -1
	for s, n := range h.nodes {
		if n == nil {
			continue
		}
		if n.level > bestLevel {
			bestLevel = n.level
			best = s
		}
	}
	return best
}

// Search normalizes q, greedily descends from the entry point down to level
// 1, expands a candidate pool of up to 3k nodes at level 0 by breadth-first
// search, and returns the top k by exact cosine similarity.
func (h *Index) Search(ctx context.Context, q index.Vector, k int) ([]index.SearchResult, error) {
	if len(q) != h.dimensions {
		return nil, index.ErrDimensionMismatch
	}
	if k < 0 {
		return nil, index.ErrInvalidK
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.entryPoint == -1 {
		return []index.SearchResult{}, nil
	}

	normalizedQuery := vector.Normalize(q)

	current := h.entryPoint
	for l := h.nodes[h.entryPoint].level; l >= 1; l-- {
		current = h.greedyDescend(normalizedQuery, current, l)
	}

	pool := 3 * k
	if pool <= 0 {
		pool = k
	}
	candidates := h.bfsExpand(current, pool)

	type scored struct {
		slot int
		sim  float64
	}
	scoredList := make([]scored, 0, len(candidates))
	for _, s := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scoredList = append(scoredList, scored{slot: s, sim: vector.Dot(normalizedQuery, h.nodes[s].vector)})
	}
	sort.Slice(scoredList, func(i, j int) bool { return scoredList[i].sim > scoredList[j].sim })

	if k < len(scoredList) {
		scoredList = scoredList[:k]
	}
	out := make([]index.SearchResult, len(scoredList))
	for i, s := range scoredList {
		out[i] = index.SearchResult{ID: h.nodes[s.slot].id, Similarity: s.sim, Distance: vector.Distance(s.sim)}
	}
	return out, nil
}

// greedyDescend repeatedly moves to the neighbour at level l with strictly
// higher similarity to query, stopping when no neighbour improves.
func (h *Index) greedyDescend(query index.Vector, start, level int) int {
	current := start
	currentSim := vector.Dot(query, h.nodes[current].vector)

	for {
		improved := false
		for _, neighborSlot := range h.nodes[current].neighbors[level] {
			sim := vector.Dot(query, h.nodes[neighborSlot].vector)
			if sim > currentSim {
				current = neighborSlot
				currentSim = sim
				improved = true
			}
		}
		if !improved {
			return current
		}
	}
}

// bfsExpand visits nodes reachable from start at level 0, breadth-first,
// until it has gathered `limit` distinct nodes or exhausted the reachable
// component.
func (h *Index) bfsExpand(start, limit int) []int {
	visited := map[int]bool{start: true}
	order := []int{start}
	queue := []int{start}

	for len(queue) > 0 && len(order) < limit {
		head := queue[0]
		queue = queue[1:]

		for _, neighborSlot := range h.nodes[head].neighbors[0] {
			if visited[neighborSlot] {
				continue
			}
			visited[neighborSlot] = true
			order = append(order, neighborSlot)
			queue = append(queue, neighborSlot)
			if len(order) >= limit {
				break
			}
		}
	}
	return order
}

// Build marks the instance built. HNSW indexes incrementally; there is
// nothing further to finalize.
func (h *Index) Build() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.built = true
	return nil
}

// Size returns the number of distinct stored ids.
func (h *Index) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToSlot)
}

// Stats reports size, max level and average per-node neighbour count.
func (h *Index) Stats() index.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	maxLevel := 0
	totalEdges := 0
	levelCounts := make(map[int]int)
	for _, n := range h.nodes {
		if n == nil {
			continue
		}
		if n.level > maxLevel {
			maxLevel = n.level
		}
		levelCounts[n.level]++
		for _, neighbors := range n.neighbors {
			totalEdges += len(neighbors)
		}
	}
	avgEdges := 0.0
	if len(h.idToSlot) > 0 {
		avgEdges = float64(totalEdges) / float64(len(h.idToSlot))
	}

	return index.Stats{
		Algorithm:  index.HNSW,
		Size:       len(h.idToSlot),
		Built:      h.built,
		Complexity: "O(log N) search (expected), O(N*d) insert (simplified construction)",
		Counters: map[string]any{
			"max_level":           maxLevel,
			"level_distribution":  levelCounts,
			"avg_edges_per_node":  avgEdges,
			"entry_point_present": h.entryPoint != -1,
		},
	}
}
