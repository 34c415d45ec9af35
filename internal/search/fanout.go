package search

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// backendCall is one (sub-query, backend) retrieval.
type backendCall struct {
	subquery int
	backend  Backend
}

// callOutcome is what one backendCall produced.
type callOutcome struct {
	candidates []RankedCandidate
	degraded   *Degradation
}

// fanOut runs every sub-query against every requested backend with bounded
// parallelism and a per-call timeout. Failed or timed-out calls yield a nil
// list and a Degradation; they never fail the request.
//
// The returned lists and degradations are in sub-query order regardless of
// completion order.
func fanOut(
	ctx context.Context,
	r Retriever,
	subqueries []string,
	backends []Backend,
	k int,
	timeout time.Duration,
	limit int,
) ([]SubqueryLists, []Degradation) {
	calls := make([]backendCall, 0, len(subqueries)*len(backends))
	for i := range subqueries {
		for _, b := range backends {
			calls = append(calls, backendCall{subquery: i, backend: b})
		}
	}
	outcomes := make([]callOutcome, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, call := range calls {
		g.Go(func() error {
			sq := subqueries[call.subquery]
			cands, err := callWithTimeout(gctx, timeout, func(callCtx context.Context) ([]RankedCandidate, error) {
				if call.backend == BackendDense {
					return r.DenseSearch(callCtx, sq, k)
				}
				return r.LexicalSearch(callCtx, sq, k)
			})
			if err != nil {
				outcomes[i].degraded = newDegradation(call.backend, sq, err)
				return nil
			}

			origin := ListOrigin{SubqueryIndex: call.subquery, Subquery: sq, Backend: call.backend}
			for j := range cands {
				cands[j].Origin = origin
			}
			if cands == nil {
				cands = []RankedCandidate{}
			}
			outcomes[i].candidates = cands
			return nil
		})
	}
	// Calls never return errors, so Wait only joins.
	_ = g.Wait()

	lists := make([]SubqueryLists, len(subqueries))
	for i, sq := range subqueries {
		lists[i] = SubqueryLists{Index: i, Subquery: sq}
	}
	var degraded []Degradation
	for i, call := range calls {
		out := outcomes[i]
		if out.degraded != nil {
			degraded = append(degraded, *out.degraded)
			continue
		}
		if call.backend == BackendDense {
			lists[call.subquery].Dense = out.candidates
		} else {
			lists[call.subquery].Lexical = out.candidates
		}
	}

	return lists, degraded
}

// callWithTimeout runs fn under a deadline and stops waiting when it expires,
// even if fn ignores its context.
func callWithTimeout(
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) ([]RankedCandidate, error),
) ([]RankedCandidate, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		cands []RankedCandidate
		err   error
	}
	done := make(chan result, 1)
	go func() {
		cands, err := fn(callCtx)
		done <- result{cands, err}
	}()

	select {
	case res := <-done:
		return res.cands, res.err
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// newDegradation classifies a failed backend call.
func newDegradation(backend Backend, subquery string, err error) *Degradation {
	code := errors.GetCode(err)
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		code = errors.ErrCodeBackendTimeout
	case code == "":
		code = errors.BackendError(string(backend), err).Code
	}
	slog.Debug("backend_call_degraded",
		slog.String("backend", string(backend)),
		slog.String("subquery", subquery),
		slog.String("code", code),
		slog.String("error", err.Error()))
	return &Degradation{
		Backend:  backend,
		Subquery: subquery,
		Code:     code,
		Reason:   err.Error(),
	}
}

// anyAnswered reports whether at least one sub-query got a list from backend.
func anyAnswered(lists []SubqueryLists, backend Backend) bool {
	for _, l := range lists {
		if backend == BackendDense && l.Dense != nil {
			return true
		}
		if backend == BackendLexical && l.Lexical != nil {
			return true
		}
	}
	return false
}

// filterDocTypes drops candidates whose chunk is not of an allowed type
// and renumbers ranks so each list stays 1..n.
func filterDocTypes(lists []SubqueryLists, meta store.MetadataStore, allowed []store.DocType) []SubqueryLists {
	if len(allowed) == 0 || meta == nil {
		return lists
	}
	ok := make(map[store.DocType]bool, len(allowed))
	for _, dt := range allowed {
		ok[store.ParseDocType(string(dt))] = true
	}

	keep := func(cands []RankedCandidate) []RankedCandidate {
		if cands == nil {
			return nil
		}
		out := make([]RankedCandidate, 0, len(cands))
		for _, c := range cands {
			chunk, found := meta.GetChunk(c.ChunkID)
			if !found || !ok[chunk.DocType] {
				continue
			}
			c.Rank = len(out) + 1
			out = append(out, c)
		}
		return out
	}

	filtered := make([]SubqueryLists, len(lists))
	for i, l := range lists {
		filtered[i] = SubqueryLists{
			Index:    l.Index,
			Subquery: l.Subquery,
			Dense:    keep(l.Dense),
			Lexical:  keep(l.Lexical),
		}
	}
	return filtered
}
