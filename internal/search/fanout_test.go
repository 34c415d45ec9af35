package search

import (
	"context"
	stderrors "errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

func TestFanOut_OrderedBySubquery(t *testing.T) {
	// Given: later sub-queries answer first
	r := &fakeRetriever{
		denseFn: func(_ context.Context, sq string, _ int) ([]RankedCandidate, error) {
			if sq == "first" {
				time.Sleep(20 * time.Millisecond)
			}
			return cands(sq+"-d", 0.5), nil
		},
		lexFn: func(_ context.Context, sq string, _ int) ([]RankedCandidate, error) {
			return cands(sq+"-l", 2.0), nil
		},
	}

	// When: fanning out
	lists, degraded := fanOut(context.Background(), r, []string{"first", "second"},
		[]Backend{BackendDense, BackendLexical}, 5, time.Second, 4)

	// Then: lists are in sub-query order with origins stamped
	require.Empty(t, degraded)
	require.Len(t, lists, 2)
	assert.Equal(t, "first", lists[0].Subquery)
	assert.Equal(t, "first-d", lists[0].Dense[0].ChunkID)
	assert.Equal(t, "second-l", lists[1].Lexical[0].ChunkID)
	assert.Equal(t, ListOrigin{SubqueryIndex: 1, Subquery: "second", Backend: BackendLexical}, lists[1].Lexical[0].Origin)
	assert.Equal(t, 4, r.callCount())
}

func TestFanOut_FailureDegradesOneCall(t *testing.T) {
	r := &fakeRetriever{
		denseFn: func(context.Context, string, int) ([]RankedCandidate, error) {
			return nil, stderrors.New("connection refused")
		},
		lexFn: func(context.Context, string, int) ([]RankedCandidate, error) {
			return nil, nil
		},
	}

	lists, degraded := fanOut(context.Background(), r, []string{"q"},
		[]Backend{BackendDense, BackendLexical}, 5, time.Second, 2)

	require.Len(t, degraded, 1)
	assert.Equal(t, BackendDense, degraded[0].Backend)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, degraded[0].Code)
	assert.Contains(t, degraded[0].Reason, "connection refused")
	assert.Nil(t, lists[0].Dense, "failed backend has no list")
	assert.NotNil(t, lists[0].Lexical, "answered-empty backend has an empty list")
	assert.Empty(t, lists[0].Lexical)
}

func TestFanOut_KeepsStructuredCode(t *testing.T) {
	r := &fakeRetriever{
		denseFn: func(context.Context, string, int) ([]RankedCandidate, error) {
			return nil, errors.New(errors.ErrCodeEmbeddingFailed, "embedding failed", nil)
		},
	}

	_, degraded := fanOut(context.Background(), r, []string{"q"}, []Backend{BackendDense}, 5, time.Second, 1)

	require.Len(t, degraded, 1)
	assert.Equal(t, errors.ErrCodeEmbeddingFailed, degraded[0].Code)
}

func TestFanOut_TimeoutEvenWhenBackendIgnoresContext(t *testing.T) {
	// Given: a backend that blocks without watching its context
	release := make(chan struct{})
	defer close(release)
	r := &fakeRetriever{
		denseFn: func(context.Context, string, int) ([]RankedCandidate, error) {
			<-release
			return nil, nil
		},
		lexFn: blockUntilDone,
	}

	// When: fanning out with a short per-call timeout
	start := time.Now()
	lists, degraded := fanOut(context.Background(), r, []string{"a", "b"},
		[]Backend{BackendDense, BackendLexical}, 5, 30*time.Millisecond, 4)

	// Then: every call times out and the join does not wait for the stuck calls
	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, degraded, 4)
	for _, d := range degraded {
		assert.Equal(t, errors.ErrCodeBackendTimeout, d.Code)
	}
	assert.False(t, anyAnswered(lists, BackendDense))
	assert.False(t, anyAnswered(lists, BackendLexical))
}

func TestFanOut_BoundedParallelism(t *testing.T) {
	var inFlight, peak atomic.Int32
	track := func(context.Context, string, int) ([]RankedCandidate, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil, nil
	}
	r := &fakeRetriever{denseFn: track, lexFn: track}

	fanOut(context.Background(), r, []string{"a", "b", "c", "d", "e", "f"},
		[]Backend{BackendDense, BackendLexical}, 5, time.Second, 3)

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, 12, r.callCount())
}

func TestFanOut_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeRetriever{denseFn: blockUntilDone, lexFn: blockUntilDone}

	lists, degraded := fanOut(ctx, r, []string{"q"}, []Backend{BackendDense, BackendLexical}, 5, time.Second, 2)

	assert.Len(t, degraded, 2)
	assert.Nil(t, lists[0].Dense)
	assert.Nil(t, lists[0].Lexical)
}

func TestFilterDocTypes(t *testing.T) {
	meta, err := store.NewMemoryMetadata([]*store.Chunk{
		{ChunkID: "p", CreditID: "EA-p2", DocType: store.DocTypePrerequisite},
		{ChunkID: "g", CreditID: "EA-p2", DocType: store.DocTypeGuide},
		{ChunkID: "c", CreditID: "WE-c1", DocType: store.DocTypeCredit},
	}, nil)
	require.NoError(t, err)

	lists := []SubqueryLists{sqLists(0, cands("g", 0.9, "p", 0.8, "c", 0.7), nil)}
	before := []SubqueryLists{sqLists(0, cands("g", 0.9, "p", 0.8, "c", 0.7), nil)}

	filtered := filterDocTypes(lists, meta, []store.DocType{store.DocTypePrerequisite, store.DocTypeCredit})

	require.Len(t, filtered[0].Dense, 2)
	assert.Equal(t, "p", filtered[0].Dense[0].ChunkID)
	assert.Equal(t, 1, filtered[0].Dense[0].Rank)
	assert.Equal(t, 2, filtered[0].Dense[1].Rank)
	assert.Nil(t, filtered[0].Lexical, "unanswered stays unanswered")
	assert.Equal(t, before, lists, "input lists are not modified")

	assert.Equal(t, lists, filterDocTypes(lists, meta, nil))
}

func TestNewDegradation_Timeout(t *testing.T) {
	d := newDegradation(BackendLexical, "q", context.DeadlineExceeded)

	assert.Equal(t, errors.ErrCodeBackendTimeout, d.Code)
	assert.True(t, strings.Contains(d.Reason, "deadline"))
}
