package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/hnsw"
)

// HNSWStore is an approximate dense index backed by coder/hnsw.
// Candidates from the graph are re-scored exactly so that scores and tie
// order match FlatStore for every vector the graph returns.
type HNSWStore struct {
	mu      sync.RWMutex
	graph   *hnsw.Graph[uint64]
	ids     []string
	vectors [][]float32
	config  VectorStoreConfig
	closed  bool
}

var _ VectorStore = (*HNSWStore)(nil)

// NewHNSWStore creates an empty HNSW store.
func NewHNSWStore(cfg VectorStoreConfig) (*HNSWStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	defaults := DefaultVectorStoreConfig(cfg.Dimensions)
	if cfg.M <= 0 {
		cfg.M = defaults.M
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = defaults.EfSearch
	}
	if cfg.Oversample <= 0 {
		cfg.Oversample = defaults.Oversample
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &HNSWStore{graph: graph, config: cfg}, nil
}

// Add inserts vectors into the graph. Keys are insertion positions.
func (s *HNSWStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for i, v := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(v) != s.config.Dimensions {
			return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(v)}
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		NormalizeVector(vec)

		key := uint64(len(s.ids))
		s.ids = append(s.ids, ids[i])
		s.vectors = append(s.vectors, vec)
		s.graph.Add(hnsw.MakeNode(key, vec))
	}

	return nil
}

// Search returns the approximate top-k by cosine similarity.
func (s *HNSWStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(query)}
	}
	if k <= 0 || s.graph.Len() == 0 {
		return []*VectorResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	q := make([]float32, len(query))
	copy(q, query)
	NormalizeVector(q)

	nodes := s.graph.Search(q, k*s.config.Oversample)

	results := make([]*VectorResult, 0, len(nodes))
	for _, node := range nodes {
		pos := int(node.Key)
		if pos >= len(s.ids) {
			continue
		}
		results = append(results, &VectorResult{ID: s.ids[pos], Score: Dot(q, s.vectors[pos])})
	}
	sortVectorResults(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Dimensions returns the vector dimensionality.
func (s *HNSWStore) Dimensions() int { return s.config.Dimensions }

// Len returns the number of stored vectors.
func (s *HNSWStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Close releases the graph.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = hnsw.NewGraph[uint64]()
	s.ids = nil
	s.vectors = nil
	return nil
}
