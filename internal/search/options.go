package search

import (
	"fmt"
	"time"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// FusionMethod selects how ranked lists are combined.
type FusionMethod string

const (
	// FusionWeighted weights dense and lexical scores per sub-query, then
	// applies RRF across sub-queries when there is more than one.
	FusionWeighted FusionMethod = "weighted"
	// FusionRRF applies RRF directly over every sub-query × backend list.
	FusionRRF FusionMethod = "rrf"
)

// DedupRule names one deduplication pass.
type DedupRule string

const (
	// DedupSimilarity collapses chunks of the same credit and section whose
	// embeddings are nearly identical.
	DedupSimilarity DedupRule = "similarity"
	// DedupPages collapses chunks from the same document page range.
	DedupPages DedupRule = "pages"
)

// Defaults.
const (
	DefaultLimit              = 10
	DefaultMaxSubqueries      = 6
	DefaultDenseWeight        = 0.7
	DefaultLexicalWeight      = 0.3
	DefaultTopCredits         = 3
	MinTopCredits             = 2
	MaxTopCredits             = 4
	DefaultMaxChunksPerCredit = 2
	DefaultRRFConstant        = 60
	DefaultDedupThreshold     = 0.97
	DefaultCandidatesPerList  = 20
	DefaultMaxConcurrency     = 4
	DefaultBackendTimeout     = 2 * time.Second
	MaxLimit                  = 100
)

// Options configures a single search request.
type Options struct {
	// Limit caps the number of results.
	Limit int

	UseQueryExpansion bool
	MaxSubqueries     int

	// UseHybrid queries both backends. When false only the dense backend is
	// used, falling back to lexical if dense is unavailable.
	UseHybrid bool

	FusionMethod  FusionMethod
	DenseWeight   float64
	LexicalWeight float64
	RRFK          int

	UseGrouping        bool
	TopCredits         int
	MaxChunksPerCredit int

	DedupThreshold float64
	// DedupRuleOrder is the sequence of dedup passes.
	DedupRuleOrder []DedupRule

	// CandidatesPerList is k for each backend call.
	CandidatesPerList int

	// DocTypes restricts candidates to these document types. Empty means all.
	DocTypes []store.DocType

	// BackendTimeout bounds each backend call.
	BackendTimeout time.Duration
	// MaxConcurrency bounds parallel backend calls within one request.
	MaxConcurrency int
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		Limit:              DefaultLimit,
		UseQueryExpansion:  true,
		MaxSubqueries:      DefaultMaxSubqueries,
		UseHybrid:          true,
		FusionMethod:       FusionWeighted,
		DenseWeight:        DefaultDenseWeight,
		LexicalWeight:      DefaultLexicalWeight,
		RRFK:               DefaultRRFConstant,
		UseGrouping:        true,
		TopCredits:         DefaultTopCredits,
		MaxChunksPerCredit: DefaultMaxChunksPerCredit,
		DedupThreshold:     DefaultDedupThreshold,
		DedupRuleOrder:     []DedupRule{DedupSimilarity, DedupPages},
		CandidatesPerList:  DefaultCandidatesPerList,
		BackendTimeout:     DefaultBackendTimeout,
		MaxConcurrency:     DefaultMaxConcurrency,
	}
}

// Validate checks option values. It returns a configuration error
// (ERR_401_INVALID_OPTION) naming the first invalid field.
func (o Options) Validate() error {
	invalid := func(field, format string, args ...any) error {
		return errors.ValidationError(fmt.Sprintf("%s: %s", field, fmt.Sprintf(format, args...)), nil).
			WithDetail("option", field)
	}

	if o.Limit < 1 || o.Limit > MaxLimit {
		return invalid("limit", "must be between 1 and %d, got %d", MaxLimit, o.Limit)
	}
	if o.MaxSubqueries < 1 {
		return invalid("max_subqueries", "must be at least 1, got %d", o.MaxSubqueries)
	}
	switch o.FusionMethod {
	case FusionWeighted, FusionRRF:
	default:
		return invalid("fusion_method", "must be %q or %q, got %q", FusionWeighted, FusionRRF, o.FusionMethod)
	}
	if o.DenseWeight < 0 || o.LexicalWeight < 0 {
		return invalid("weights", "must be non-negative, got dense=%g lexical=%g", o.DenseWeight, o.LexicalWeight)
	}
	if o.DenseWeight+o.LexicalWeight == 0 {
		return invalid("weights", "dense and lexical weights cannot both be zero")
	}
	if o.RRFK < 1 {
		return invalid("rrf_k", "must be positive, got %d", o.RRFK)
	}
	if o.TopCredits < MinTopCredits || o.TopCredits > MaxTopCredits {
		return invalid("top_credits", "must be between %d and %d, got %d", MinTopCredits, MaxTopCredits, o.TopCredits)
	}
	if o.MaxChunksPerCredit < 1 {
		return invalid("max_chunks_per_credit", "must be at least 1, got %d", o.MaxChunksPerCredit)
	}
	if o.DedupThreshold <= 0 || o.DedupThreshold > 1 {
		return invalid("dedup_threshold", "must be in (0, 1], got %g", o.DedupThreshold)
	}
	seen := make(map[DedupRule]bool, len(o.DedupRuleOrder))
	for _, r := range o.DedupRuleOrder {
		if r != DedupSimilarity && r != DedupPages {
			return invalid("dedup_rule_order", "unknown rule %q", r)
		}
		if seen[r] {
			return invalid("dedup_rule_order", "rule %q listed twice", r)
		}
		seen[r] = true
	}
	if o.CandidatesPerList < 1 {
		return invalid("candidates_per_list", "must be at least 1, got %d", o.CandidatesPerList)
	}
	for _, dt := range o.DocTypes {
		if store.ParseDocType(string(dt)) == store.DocTypeUnknown && dt != store.DocTypeUnknown {
			return invalid("doc_types", "unknown document type %q", dt)
		}
	}
	if o.BackendTimeout < 0 {
		return invalid("backend_timeout", "must not be negative, got %s", o.BackendTimeout)
	}
	if o.MaxConcurrency < 0 {
		return invalid("max_concurrency", "must not be negative, got %d", o.MaxConcurrency)
	}
	return nil
}

// withDefaults fills zero-valued tuning fields that have no meaningful zero.
func (o Options) withDefaults() Options {
	if o.BackendTimeout == 0 {
		o.BackendTimeout = DefaultBackendTimeout
	}
	if o.MaxConcurrency == 0 {
		o.MaxConcurrency = DefaultMaxConcurrency
	}
	if o.DedupRuleOrder == nil {
		o.DedupRuleOrder = []DedupRule{DedupSimilarity, DedupPages}
	}
	return o
}
