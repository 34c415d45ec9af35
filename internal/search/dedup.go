package search

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/Aman-CERP/leedrag/internal/store"
)

// Deduplicator collapses near-identical passages in a fused, sorted list,
// keeping the first (highest-scored) representative.
//
// Each rule is a sequential pass that compares every hit against the
// representatives already kept by that pass:
//   - DedupSimilarity: same credit id and section, and embedding cosine
//     similarity strictly above the threshold. Hits without a credit id are
//     never collapsed by this rule.
//   - DedupPages: same source document and identical known page range.
//
// Because kept representatives are pairwise distinct under every rule,
// running the deduplicator on its own output is a no-op.
type Deduplicator struct {
	threshold float64
	order     []DedupRule
	pool      *ants.Pool
}

// NewDeduplicator creates a deduplicator. pool may be nil, in which case
// similarity matrices are computed on the calling goroutine.
func NewDeduplicator(threshold float64, order []DedupRule, pool *ants.Pool) *Deduplicator {
	if threshold <= 0 {
		threshold = DefaultDedupThreshold
	}
	if order == nil {
		order = []DedupRule{DedupSimilarity, DedupPages}
	}
	return &Deduplicator{threshold: threshold, order: order, pool: pool}
}

// Dedup returns the surviving hits in their original order.
func (d *Deduplicator) Dedup(hits []Hit) []Hit {
	out := hits
	for _, rule := range d.order {
		switch rule {
		case DedupSimilarity:
			out = d.similarityPass(out)
		case DedupPages:
			out = pagesPass(out)
		}
	}
	return out
}

// similarityKey buckets hits by (credit id, section). Empty credit ids get no bucket.
func similarityKey(c *store.Chunk) (string, bool) {
	if c == nil || c.CreditID == "" {
		return "", false
	}
	return c.CreditID + "\x00" + string(c.Section), true
}

// pageKey identifies a document page range. Unknown documents or pages get no key.
func pageKey(c *store.Chunk) (string, bool) {
	if c == nil || c.SourceDocument == "" || !c.HasPages() {
		return "", false
	}
	return fmt.Sprintf("%s\x00%d-%d", c.SourceDocument, c.PageStart, c.PageEnd), true
}

// simMatrix holds pairwise similarities for the members of one bucket,
// indexed by position within the bucket.
type simMatrix struct {
	n    int
	vals []float64
}

func (m *simMatrix) at(i, j int) float64 {
	return m.vals[i*m.n+j]
}

func (d *Deduplicator) similarityPass(hits []Hit) []Hit {
	buckets := make(map[string][]int)
	position := make([]int, len(hits))
	for i, h := range hits {
		key, ok := similarityKey(h.Chunk)
		if !ok {
			continue
		}
		position[i] = len(buckets[key])
		buckets[key] = append(buckets[key], i)
	}

	matrices := d.similarityMatrices(hits, buckets)

	kept := make([]Hit, 0, len(hits))
	keptPositions := make(map[string][]int)
	for i, h := range hits {
		key, ok := similarityKey(h.Chunk)
		if !ok {
			kept = append(kept, h)
			continue
		}

		duplicate := false
		if m, has := matrices[key]; has {
			for _, kp := range keptPositions[key] {
				if m.at(kp, position[i]) > d.threshold {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}
		keptPositions[key] = append(keptPositions[key], position[i])
		kept = append(kept, h)
	}
	return kept
}

// similarityMatrices computes one matrix per bucket with at least two members,
// spreading buckets across the worker pool.
func (d *Deduplicator) similarityMatrices(hits []Hit, buckets map[string][]int) map[string]*simMatrix {
	matrices := make(map[string]*simMatrix, len(buckets))
	var wg sync.WaitGroup

	for key, members := range buckets {
		if len(members) < 2 {
			continue
		}
		m := &simMatrix{n: len(members), vals: make([]float64, len(members)*len(members))}
		matrices[key] = m

		task := func() {
			fillSimilarities(m, hits, members)
		}
		if d.pool == nil {
			task()
			continue
		}
		wg.Add(1)
		if err := d.pool.Submit(func() {
			defer wg.Done()
			task()
		}); err != nil {
			wg.Done()
			task()
		}
	}

	wg.Wait()
	return matrices
}

func fillSimilarities(m *simMatrix, hits []Hit, members []int) {
	for a := 0; a < m.n; a++ {
		ea := hits[members[a]].Chunk.Embedding
		for b := a + 1; b < m.n; b++ {
			sim := cosine(ea, hits[members[b]].Chunk.Embedding)
			m.vals[a*m.n+b] = sim
			m.vals[b*m.n+a] = sim
		}
	}
}

// cosine is the dot product of two unit vectors. Missing or mismatched
// embeddings have similarity 0.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	return store.Dot(a, b)
}

func pagesPass(hits []Hit) []Hit {
	seen := make(map[string]bool)
	kept := make([]Hit, 0, len(hits))
	for _, h := range hits {
		key, ok := pageKey(h.Chunk)
		if ok {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		kept = append(kept, h)
	}
	return kept
}
