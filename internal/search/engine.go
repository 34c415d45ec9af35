package search

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
	"github.com/Aman-CERP/leedrag/internal/telemetry"
)

// Engine runs searches against the current snapshot.
// It is safe for concurrent use; requests share nothing but the snapshot holder.
type Engine struct {
	holder       *snapshot.Holder
	embedder     embed.Embedder
	logger       *slog.Logger
	metrics      *telemetry.Metrics
	pool         *ants.Pool
	ownsPool     bool
	newRetriever func(*snapshot.Snapshot) Retriever
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records search and degradation metrics.
func WithMetrics(m *telemetry.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithDedupPool shares an existing worker pool for similarity matrices.
// The engine does not release a pool it did not create.
func WithDedupPool(pool *ants.Pool) EngineOption {
	return func(e *Engine) {
		e.pool = pool
	}
}

// WithRetriever replaces snapshot-backed retrieval. Chunk metadata still
// comes from the current snapshot.
func WithRetriever(r Retriever) EngineOption {
	return func(e *Engine) {
		e.newRetriever = func(*snapshot.Snapshot) Retriever { return r }
	}
}

// NewEngine creates an engine over holder. embedder embeds sub-queries for
// the dense backend; when nil, dense calls degrade as unavailable.
func NewEngine(holder *snapshot.Holder, embedder embed.Embedder, opts ...EngineOption) (*Engine, error) {
	e := &Engine{
		holder:   holder,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.pool == nil {
		pool, err := ants.NewPool(runtime.GOMAXPROCS(0))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err)
		}
		e.pool = pool
		e.ownsPool = true
	}
	if e.newRetriever == nil {
		e.newRetriever = func(s *snapshot.Snapshot) Retriever {
			return NewBackendRetriever(s.Dense, s.Lexical, e.embedder)
		}
	}

	return e, nil
}

// Search answers query with a ranked, deduplicated, credit-grouped list of
// passages. Backend failures and timeouts degrade the response instead of
// failing it. Search returns an error in two cases only:
//   - an empty query or invalid opts, as an ERR_401 *errors.Error;
//   - ctx cancelled before the response is assembled, as ctx.Err() with a
//     nil response, so a disconnected caller never gets partial results.
func (e *Engine) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		e.metrics.ObserveSearch(telemetry.OutcomeInvalid, time.Since(start), 0, 0)
		return nil, errors.ValidationError("query must not be empty", nil).WithDetail("option", "query")
	}
	if err := opts.Validate(); err != nil {
		e.metrics.ObserveSearch(telemetry.OutcomeInvalid, time.Since(start), 0, 0)
		return nil, err
	}
	opts = opts.withDefaults()

	resp := &Response{
		RequestID: uuid.NewString(),
		Query:     query,
		Results:   []Result{},
	}
	log := e.logger.With(slog.String("request_id", resp.RequestID))

	if opts.UseQueryExpansion {
		resp.Subqueries = Expand(query, opts.MaxSubqueries)
	} else {
		resp.Subqueries = []string{query}
	}

	snap := e.holder.Current()
	if snap == nil {
		for _, b := range []Backend{BackendDense, BackendLexical} {
			resp.Degraded = append(resp.Degraded, Degradation{
				Backend: b,
				Code:    errors.ErrCodeBackendUnavailable,
				Reason:  "no snapshot loaded",
			})
		}
		e.finish(log, resp, start)
		return resp, nil
	}
	resp.Generation = snap.Generation()

	lists, degraded, fuser := e.retrieve(ctx, snap, resp.Subqueries, opts)
	resp.Degraded = degraded
	if err := ctx.Err(); err != nil {
		log.Debug("search_cancelled", slog.String("error", err.Error()))
		return nil, err
	}

	lists = filterDocTypes(lists, snap.Metadata, opts.DocTypes)
	fused := fuser.Fuse(lists)

	hits := make([]Hit, 0, len(fused))
	for _, f := range fused {
		chunk, ok := snap.Metadata.GetChunk(f.ChunkID)
		if !ok {
			log.Warn("fused chunk missing from metadata", slog.String("chunk_id", f.ChunkID))
			continue
		}
		hits = append(hits, Hit{Fused: f, Chunk: chunk})
	}

	hits = NewDeduplicator(opts.DedupThreshold, opts.DedupRuleOrder, e.pool).Dedup(hits)
	if opts.UseGrouping {
		hits = FlattenGroups(GroupByCredit(hits, opts.TopCredits, opts.MaxChunksPerCredit))
	}
	resp.Results = Assemble(hits, opts.Limit)

	e.finish(log, resp, start)
	return resp, nil
}

// retrieve runs the fan-out for the requested backends and returns the
// fuser matching what actually answered.
func (e *Engine) retrieve(ctx context.Context, snap *snapshot.Snapshot, subqueries []string, opts Options) ([]SubqueryLists, []Degradation, *Fuser) {
	r := e.newRetriever(snap)
	k := opts.CandidatesPerList

	if opts.UseHybrid {
		lists, degraded := fanOut(ctx, r, subqueries, []Backend{BackendDense, BackendLexical}, k, opts.BackendTimeout, opts.MaxConcurrency)
		return lists, degraded, NewFuser(opts)
	}

	lists, degraded := fanOut(ctx, r, subqueries, []Backend{BackendDense}, k, opts.BackendTimeout, opts.MaxConcurrency)
	if anyAnswered(lists, BackendDense) || ctx.Err() != nil {
		opts.DenseWeight, opts.LexicalWeight = 1, 0
		return lists, degraded, NewFuser(opts)
	}

	e.logger.Debug("dense_unavailable_falling_back_to_lexical")
	lexLists, lexDegraded := fanOut(ctx, r, subqueries, []Backend{BackendLexical}, k, opts.BackendTimeout, opts.MaxConcurrency)
	opts.DenseWeight, opts.LexicalWeight = 0, 1
	return lexLists, append(degraded, lexDegraded...), NewFuser(opts)
}

func (e *Engine) finish(log *slog.Logger, resp *Response, start time.Time) {
	resp.Took = time.Since(start)

	outcome := telemetry.OutcomeOK
	switch {
	case resp.IsDegraded():
		outcome = telemetry.OutcomeDegraded
	case len(resp.Results) == 0:
		outcome = telemetry.OutcomeEmpty
	}
	for _, d := range resp.Degraded {
		e.metrics.RecordDegradation(string(d.Backend), d.Code)
	}
	e.metrics.ObserveSearch(outcome, resp.Took, len(resp.Results), len(resp.Subqueries))

	log.Info("search_completed",
		slog.String("query", resp.Query),
		slog.Int("subqueries", len(resp.Subqueries)),
		slog.Int("results", len(resp.Results)),
		slog.Int("degraded", len(resp.Degraded)),
		slog.String("generation", resp.Generation),
		slog.Duration("took", resp.Took))
}

// Credits lists the credits of the current snapshot, sorted by id.
func (e *Engine) Credits() []store.Credit {
	snap := e.holder.Current()
	if snap == nil || snap.Metadata == nil {
		return []store.Credit{}
	}
	return snap.Metadata.Credits()
}

// Status summarizes the current snapshot. The zero Status means nothing is loaded.
func (e *Engine) Status() Status {
	snap := e.holder.Current()
	if snap == nil {
		return Status{DocTypes: []store.DocType{}}
	}

	st := Status{
		Generation:     snap.Generation(),
		DenseBackend:   snap.DenseBackend,
		DenseReady:     snap.Dense != nil && e.embedder != nil,
		LexicalBackend: snap.LexicalBackend,
		LexicalReady:   snap.Lexical != nil,
		EmbeddingModel: snap.Manifest.EmbeddingModel,
		LoadedAt:       snap.LoadedAt,
		DocTypes:       []store.DocType{},
	}
	if snap.Metadata != nil {
		st.Chunks = snap.Metadata.Len()
		st.Credits = len(snap.Metadata.Credits())
		st.DocTypes = snap.Metadata.DocTypes()
	}
	return st
}

// Close releases the engine's worker pool. The snapshot holder and embedder
// belong to the caller.
func (e *Engine) Close() error {
	if e.ownsPool && e.pool != nil {
		e.pool.Release()
	}
	return nil
}
