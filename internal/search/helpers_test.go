package search

import (
	"context"
	"sync"

	"github.com/Aman-CERP/leedrag/internal/store"
)

// cands builds a ranked list from chunk id/score pairs in the given order.
func cands(pairs ...any) []RankedCandidate {
	out := make([]RankedCandidate, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, RankedCandidate{
			ChunkID:  pairs[i].(string),
			RawScore: pairs[i+1].(float64),
			Rank:     len(out) + 1,
		})
	}
	return out
}

// withOrigin stamps the list origin the way fanOut does.
func withOrigin(list []RankedCandidate, index int, subquery string, backend Backend) []RankedCandidate {
	for i := range list {
		list[i].Origin = ListOrigin{SubqueryIndex: index, Subquery: subquery, Backend: backend}
	}
	return list
}

func sqLists(index int, dense, lexical []RankedCandidate) SubqueryLists {
	sq := SubqueryLists{Index: index, Subquery: "q"}
	sq.Dense = withOrigin(dense, index, sq.Subquery, BackendDense)
	sq.Lexical = withOrigin(lexical, index, sq.Subquery, BackendLexical)
	return sq
}

// hit builds a hit with the given fused score and chunk attributes.
func hit(id string, score float64, creditID string, section store.Section, embedding ...float32) Hit {
	return Hit{
		Fused: &FusedResult{ChunkID: id, FusedScore: score},
		Chunk: &store.Chunk{
			ChunkID:   id,
			CreditID:  creditID,
			Section:   section,
			DocType:   store.DocTypeCredit,
			Embedding: embedding,
		},
	}
}

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.Chunk.ChunkID
	}
	return ids
}

// fakeRetriever is a Retriever driven by func fields. Nil funcs return empty lists.
type fakeRetriever struct {
	mu      sync.Mutex
	calls   []string
	denseFn func(ctx context.Context, subquery string, k int) ([]RankedCandidate, error)
	lexFn   func(ctx context.Context, subquery string, k int) ([]RankedCandidate, error)
}

func (f *fakeRetriever) record(backend Backend, subquery string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, string(backend)+":"+subquery)
}

func (f *fakeRetriever) DenseSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error) {
	f.record(BackendDense, subquery)
	if f.denseFn == nil {
		return nil, nil
	}
	return f.denseFn(ctx, subquery, k)
}

func (f *fakeRetriever) LexicalSearch(ctx context.Context, subquery string, k int) ([]RankedCandidate, error) {
	f.record(BackendLexical, subquery)
	if f.lexFn == nil {
		return nil, nil
	}
	return f.lexFn(ctx, subquery, k)
}

func (f *fakeRetriever) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// blockUntilDone waits for the call context and reports its error.
func blockUntilDone(ctx context.Context, _ string, _ int) ([]RankedCandidate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
