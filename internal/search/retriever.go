package search

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// Retriever is the candidate retrieval capability over one snapshot.
// Both methods return candidates ranked 1..n, best first, ties broken by
// chunk id ascending. Origin is left for the caller to fill in.
type Retriever interface {
	DenseSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error)
	LexicalSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error)
}

// BackendRetriever adapts the snapshot's read-only indices to Retriever.
// Any of the three dependencies may be nil; the matching method then
// reports the backend as unavailable.
type BackendRetriever struct {
	dense    store.VectorStore
	lexical  store.BM25Index
	embedder embed.Embedder
}

var _ Retriever = (*BackendRetriever)(nil)

// NewBackendRetriever creates a retriever over the given backends.
func NewBackendRetriever(dense store.VectorStore, lexical store.BM25Index, embedder embed.Embedder) *BackendRetriever {
	return &BackendRetriever{dense: dense, lexical: lexical, embedder: embedder}
}

// DenseSearch embeds the sub-query and returns the top-k chunks by cosine similarity.
func (r *BackendRetriever) DenseSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error) {
	if r.dense == nil {
		return nil, errors.New(errors.ErrCodeBackendUnavailable, "dense index not loaded", nil)
	}
	if r.embedder == nil {
		return nil, errors.New(errors.ErrCodeBackendUnavailable, "no query embedder configured", nil)
	}

	vec, err := r.embedder.Embed(ctx, subquery)
	if err != nil {
		return nil, errors.New(errors.ErrCodeEmbeddingFailed, "query embedding failed", err)
	}
	if len(vec) != r.dense.Dimensions() {
		return nil, errors.New(errors.ErrCodeDimensionMismatch,
			fmt.Sprintf("query embedding has %d dimensions, index has %d", len(vec), r.dense.Dimensions()), nil).
			WithSuggestion("Use the embedding model the snapshot was built with")
	}

	results, err := r.dense.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	out := make([]RankedCandidate, len(results))
	for i, res := range results {
		out[i] = RankedCandidate{ChunkID: res.ID, RawScore: res.Score, Rank: i + 1}
	}
	return out, nil
}

// LexicalSearch returns the top-k chunks by BM25 relevance. Only positive scores are returned.
func (r *BackendRetriever) LexicalSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error) {
	if r.lexical == nil {
		return nil, errors.New(errors.ErrCodeBackendUnavailable, "lexical index not loaded", nil)
	}

	results, err := r.lexical.Search(ctx, subquery, k)
	if err != nil {
		return nil, err
	}

	out := make([]RankedCandidate, 0, len(results))
	for _, res := range results {
		if res.Score <= 0 {
			continue
		}
		out = append(out, RankedCandidate{ChunkID: res.DocID, RawScore: res.Score, Rank: len(out) + 1})
	}
	return out, nil
}
