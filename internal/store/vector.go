package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// NormalizeVector scales v to unit length in place. Zero vectors are left unchanged.
func NormalizeVector(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// Dot returns the dot product of a and b, accumulated in float64.
// For unit vectors this is the cosine similarity.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func sortVectorResults(results []*VectorResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}

// FlatStore is an exact dense index: every search scans all vectors.
type FlatStore struct {
	mu      sync.RWMutex
	dims    int
	ids     []string
	vectors [][]float32
	closed  bool
}

var _ VectorStore = (*FlatStore)(nil)

// NewFlatStore creates an empty exact vector store.
func NewFlatStore(cfg VectorStoreConfig) (*FlatStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", cfg.Dimensions)
	}
	return &FlatStore{dims: cfg.Dimensions}, nil
}

// Add appends vectors, normalizing copies of them to unit length.
func (s *FlatStore) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	for i, v := range vectors {
		if len(v) != s.dims {
			return ErrDimensionMismatch{Expected: s.dims, Got: len(v)}
		}
		vec := make([]float32, len(v))
		copy(vec, v)
		NormalizeVector(vec)
		s.ids = append(s.ids, ids[i])
		s.vectors = append(s.vectors, vec)
	}

	return nil
}

// Search scans every vector and returns the exact top-k.
func (s *FlatStore) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if len(query) != s.dims {
		return nil, ErrDimensionMismatch{Expected: s.dims, Got: len(query)}
	}
	if k <= 0 || len(s.ids) == 0 {
		return []*VectorResult{}, nil
	}

	q := make([]float32, len(query))
	copy(q, query)
	NormalizeVector(q)

	results := make([]*VectorResult, len(s.ids))
	for i, v := range s.vectors {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		results[i] = &VectorResult{ID: s.ids[i], Score: Dot(q, v)}
	}
	sortVectorResults(results)

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Dimensions returns the vector dimensionality.
func (s *FlatStore) Dimensions() int { return s.dims }

// Len returns the number of stored vectors.
func (s *FlatStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Close releases the stored vectors.
func (s *FlatStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ids = nil
	s.vectors = nil
	return nil
}
