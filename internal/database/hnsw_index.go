package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/matcher"
)

// Neighbor is an identity returned by an index search together with its exact distance.
type Neighbor struct {
	Identity *Identity
	Distance float64
}

// IdentityIndex wraps an HNSW graph over enrolled identity embeddings.
// It is only used to spot near-duplicate enrollments; recognition always uses
// the linear first-match scan in the matcher package.
type IdentityIndex struct {
	graph      *hnsw.Graph[string]
	identities map[string]*Identity
	dim        int
	mu         sync.RWMutex
}

// NewIdentityIndex creates an empty index for embeddings of length dim. With
// dim <= 0 the length is taken from the first embedding added.
func NewIdentityIndex(dim int) *IdentityIndex {
	return &IdentityIndex{
		identities: make(map[string]*Identity),
		dim:        max(dim, 0),
	}
}

func newEuclideanGraph() *hnsw.Graph[string] {
	g := hnsw.NewGraph[string]()
	g.M = constants.HNSWMaxNeighbors
	g.Ml = 1.0 / float64(constants.HNSWMaxNeighbors)
	g.Distance = hnsw.EuclideanDistance
	return g
}

// Build replaces the index contents. Identities without an embedding, or with
// an embedding of the wrong length, are skipped.
func (x *IdentityIndex) Build(identities []Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.graph = nil
	x.identities = make(map[string]*Identity, len(identities))

	for i := range identities {
		identity := &identities[i]
		if !x.acceptsLocked(identity) {
			continue
		}
		if _, exists := x.identities[identity.ID]; exists {
			x.identities[identity.ID] = identity
			x.rebuildLocked()
			continue
		}
		x.insertLocked(identity)
	}
}

// Add inserts or replaces a single identity.
func (x *IdentityIndex) Add(identity *Identity) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if !x.acceptsLocked(identity) {
		return
	}
	if _, exists := x.identities[identity.ID]; exists {
		// coder/hnsw cannot delete and re-add a key safely, so the graph is
		// rebuilt from the lookup map instead.
		x.identities[identity.ID] = identity
		x.rebuildLocked()
		return
	}
	x.insertLocked(identity)
}

func (x *IdentityIndex) acceptsLocked(identity *Identity) bool {
	if len(identity.Embedding) == 0 {
		return false
	}
	if x.dim == 0 {
		x.dim = len(identity.Embedding)
	}
	return len(identity.Embedding) == x.dim
}

func (x *IdentityIndex) insertLocked(identity *Identity) {
	if x.graph == nil {
		x.graph = newEuclideanGraph()
	}
	x.graph.Add(hnsw.MakeNode(identity.ID, identity.Embedding))
	x.identities[identity.ID] = identity
}

func (x *IdentityIndex) rebuildLocked() {
	x.graph = newEuclideanGraph()
	for id, identity := range x.identities {
		x.graph.Add(hnsw.MakeNode(id, identity.Embedding))
	}
}

// Count returns the number of indexed identities.
func (x *IdentityIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.identities)
}

// Nearest returns up to k identities closest to query, nearest first.
// The identity with excludeID (if any) is left out of the result.
func (x *IdentityIndex) Nearest(query []float32, k int, excludeID string) ([]Neighbor, error) {
	if k <= 0 {
		return nil, errors.New("k must be positive")
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.graph == nil || x.graph.Len() == 0 {
		return nil, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(query), x.dim)
	}

	// One extra so that excluding an identity still leaves k results.
	nodes := x.graph.Search(query, k+1)

	neighbors := make([]Neighbor, 0, len(nodes))
	for _, n := range nodes {
		if n.Key == excludeID {
			continue
		}
		identity, ok := x.identities[n.Key]
		if !ok {
			continue
		}
		dist, err := matcher.Distance(query, n.Value)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, Neighbor{Identity: identity, Distance: dist})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// FindConflict returns the nearest other identity closer than threshold, or nil.
func (x *IdentityIndex) FindConflict(embedding []float32, threshold float64, excludeID string) (*Neighbor, error) {
	neighbors, err := x.Nearest(embedding, constants.DuplicateSearchK, excludeID)
	if err != nil {
		return nil, err
	}
	if len(neighbors) == 0 || neighbors[0].Distance >= threshold {
		return nil, nil
	}
	return &neighbors[0], nil
}
