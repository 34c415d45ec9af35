package mcp

import (
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// Tool names.
const (
	ToolSearchRequirements = "search_requirements"
	ToolListCredits        = "list_credits"
	ToolSnapshotStatus     = "snapshot_status"
)

// SearchRequirementsInput is the input schema for search_requirements.
// Unset fields fall back to the server's configured search options.
type SearchRequirementsInput struct {
	Query              string   `json:"query" jsonschema:"natural-language question about certification requirements"`
	Limit              int      `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
	TopCredits         int      `json:"top_credits,omitempty" jsonschema:"number of credits to keep, 2 to 4"`
	MaxChunksPerCredit int      `json:"max_chunks_per_credit,omitempty" jsonschema:"passages kept per credit"`
	FusionMethod       string   `json:"fusion_method,omitempty" jsonschema:"weighted or rrf"`
	UseHybrid          *bool    `json:"use_hybrid,omitempty" jsonschema:"query both dense and lexical backends"`
	UseQueryExpansion  *bool    `json:"use_query_expansion,omitempty" jsonschema:"expand the query into domain sub-queries"`
	UseGrouping        *bool    `json:"use_grouping,omitempty" jsonschema:"group results by credit"`
	DocTypes           []string `json:"doc_types,omitempty" jsonschema:"restrict to document types: prerequisite, credit, form, guide, faq, addenda"`
}

// SearchRequirementsOutput is the output schema for search_requirements.
type SearchRequirementsOutput struct {
	RequestID  string               `json:"request_id"`
	Query      string               `json:"query"`
	Subqueries []string             `json:"subqueries"`
	Generation string               `json:"generation,omitempty"`
	Results    []search.Result      `json:"results"`
	Degraded   []search.Degradation `json:"degraded,omitempty"`
	TookMS     int64                `json:"took_ms"`
}

// ListCreditsInput is the input schema for list_credits.
type ListCreditsInput struct {
	Category string `json:"category,omitempty" jsonschema:"only credits in this category, e.g. Energy and Atmosphere"`
}

// ListCreditsOutput is the output schema for list_credits.
type ListCreditsOutput struct {
	Credits []store.Credit `json:"credits"`
}

// SnapshotStatusInput is the input schema for snapshot_status (no parameters).
type SnapshotStatusInput struct{}

// SnapshotStatusOutput is the output schema for snapshot_status.
type SnapshotStatusOutput struct {
	Snapshot   SnapshotInfo  `json:"snapshot"`
	Embeddings EmbeddingInfo `json:"embeddings"`
}

// SnapshotInfo mirrors search.Status with the load time as RFC 3339 text.
type SnapshotInfo struct {
	Loaded         bool     `json:"loaded"`
	Generation     string   `json:"generation,omitempty"`
	Chunks         int      `json:"chunks"`
	Credits        int      `json:"credits"`
	DocTypes       []string `json:"doc_types"`
	DenseBackend   string   `json:"dense_backend,omitempty"`
	DenseReady     bool     `json:"dense_ready"`
	LexicalBackend string   `json:"lexical_backend,omitempty"`
	LexicalReady   bool     `json:"lexical_ready"`
	EmbeddingModel string   `json:"embedding_model,omitempty"`
	LoadedAt       string   `json:"loaded_at,omitempty"`
}

// EmbeddingInfo describes the query embedder so clients can judge dense quality.
type EmbeddingInfo struct {
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
	// Status is "ready", "unavailable" or "none".
	Status string `json:"status"`
	// ModelMismatch is true when the query model differs from the snapshot's.
	ModelMismatch bool `json:"model_mismatch,omitempty"`
}
