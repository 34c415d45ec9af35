// Package search implements the hybrid retrieval pipeline: query expansion,
// dense and lexical candidate retrieval, score fusion, deduplication,
// credit grouping, and result assembly.
package search

import (
	"time"

	"github.com/Aman-CERP/leedrag/internal/store"
)

// Backend identifies the ranked list a candidate came from.
type Backend string

const (
	BackendDense   Backend = "dense"
	BackendLexical Backend = "lexical"
	// BackendHybrid marks a list produced by intra-list weighting.
	BackendHybrid Backend = "hybrid"
)

// ListOrigin records which sub-query and backend produced a ranked list.
type ListOrigin struct {
	SubqueryIndex int     `json:"subquery_index"`
	Subquery      string  `json:"subquery"`
	Backend       Backend `json:"backend"`
}

// less orders origins by sub-query index, then backend name.
func (o ListOrigin) less(other ListOrigin) bool {
	if o.SubqueryIndex != other.SubqueryIndex {
		return o.SubqueryIndex < other.SubqueryIndex
	}
	return o.Backend < other.Backend
}

// RankedCandidate is one entry of a single backend's ranked list.
type RankedCandidate struct {
	ChunkID  string
	RawScore float64
	// Rank is 1-based within its list.
	Rank   int
	Origin ListOrigin
}

// SubqueryLists holds both backends' answers for one sub-query.
// A nil list means the backend did not answer.
type SubqueryLists struct {
	Index    int
	Subquery string
	Dense    []RankedCandidate
	Lexical  []RankedCandidate
}

// Contribution is one list's reciprocal-rank term for a chunk.
type Contribution struct {
	Origin ListOrigin `json:"origin"`
	Rank   int        `json:"rank"`
	Score  float64    `json:"score"`
}

// ComponentScores keeps every score that went into a fused result, for audit.
// Raw and normalized values are the best seen across sub-queries.
type ComponentScores struct {
	HasDense      bool           `json:"has_dense"`
	DenseRaw      float64        `json:"dense_raw"`
	DenseNorm     float64        `json:"dense_norm"`
	HasLexical    bool           `json:"has_lexical"`
	LexicalRaw    float64        `json:"lexical_raw"`
	LexicalNorm   float64        `json:"lexical_norm"`
	Hybrid        float64        `json:"hybrid,omitempty"`
	Contributions []Contribution `json:"contributions,omitempty"`
}

// FusedResult is a chunk after fusion.
type FusedResult struct {
	ChunkID    string
	FusedScore float64
	Components ComponentScores
}

// RetrievalMethod reports which backends found the chunk.
func (f *FusedResult) RetrievalMethod() string {
	switch {
	case f.Components.HasDense && f.Components.HasLexical:
		return string(BackendHybrid)
	case f.Components.HasLexical:
		return string(BackendLexical)
	default:
		return string(BackendDense)
	}
}

// Hit pairs a fused result with its chunk record.
type Hit struct {
	Fused *FusedResult
	Chunk *store.Chunk
}

// ResultGroup is the set of hits belonging to one credit.
type ResultGroup struct {
	CreditID            string
	RepresentativeScore float64
	Hits                []Hit
}

// Degradation records a backend call that did not contribute results.
type Degradation struct {
	Backend  Backend `json:"backend"`
	Subquery string  `json:"subquery,omitempty"`
	Code     string  `json:"code"`
	Reason   string  `json:"reason"`
}

// Result is one externally visible, provenance-carrying record.
type Result struct {
	Rank            int             `json:"rank"`
	ChunkID         string          `json:"chunk_id"`
	CreditID        string          `json:"credit_id"`
	CreditCode      string          `json:"credit_code,omitempty"`
	CreditName      string          `json:"credit_name"`
	Section         store.Section   `json:"section"`
	DocType         store.DocType   `json:"doc_type"`
	PageStart       int             `json:"page_start"`
	PageEnd         int             `json:"page_end"`
	SourceDocument  string          `json:"source_document"`
	FusedScore      float64         `json:"fused_score"`
	Components      ComponentScores `json:"components"`
	RetrievalMethod string          `json:"retrieval_method"`
	Text            string          `json:"text"`
}

// Response is the full answer to one search request.
type Response struct {
	RequestID  string        `json:"request_id"`
	Query      string        `json:"query"`
	Subqueries []string      `json:"subqueries"`
	Results    []Result      `json:"results"`
	Degraded   []Degradation `json:"degraded,omitempty"`
	Generation string        `json:"generation,omitempty"`
	Took       time.Duration `json:"took"`
}

// IsDegraded reports whether any backend call failed or timed out.
func (r *Response) IsDegraded() bool {
	return len(r.Degraded) > 0
}

// Status summarizes the loaded snapshot.
type Status struct {
	Generation     string          `json:"generation"`
	Chunks         int             `json:"chunks"`
	Credits        int             `json:"credits"`
	DocTypes       []store.DocType `json:"doc_types"`
	DenseBackend   string          `json:"dense_backend"`
	DenseReady     bool            `json:"dense_ready"`
	LexicalBackend string          `json:"lexical_backend"`
	LexicalReady   bool            `json:"lexical_ready"`
	EmbeddingModel string          `json:"embedding_model,omitempty"`
	LoadedAt       time.Time       `json:"loaded_at"`
}
