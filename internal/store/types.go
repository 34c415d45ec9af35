// Package store holds the corpus data model and the read-only retrieval backends
// (dense vector stores and lexical BM25 indexes) that make up an index snapshot.
package store

import (
	"context"
	"fmt"
	"strings"
)

// Section is the structural role of a chunk within a credit.
type Section string

const (
	SectionRequirements  Section = "requirements"
	SectionIntent        Section = "intent"
	SectionDocumentation Section = "documentation"
	SectionCalc          Section = "calc"
	SectionThresholds    Section = "thresholds"
	SectionDefinitions   Section = "definitions"
	SectionUnknown       Section = "unknown"
)

// sectionAliases maps headings found in the source corpus onto the closed Section set.
var sectionAliases = map[string]Section{
	"requirements":  SectionRequirements,
	"requirement":   SectionRequirements,
	"intent":        SectionIntent,
	"documentation": SectionDocumentation,
	"submittals":    SectionDocumentation,
	"calc":          SectionCalc,
	"equations":     SectionCalc,
	"calculations":  SectionCalc,
	"step_by_step":  SectionCalc,
	"thresholds":    SectionThresholds,
	"points":        SectionThresholds,
	"definitions":   SectionDefinitions,
	"applicability": SectionDefinitions,
	"related":       SectionDefinitions,
	"exemplary":     SectionDefinitions,
	"referenced":    SectionDefinitions,
	"guidance":      SectionDefinitions,
}

// sectionPriority orders sections within a credit group; lower sorts first.
var sectionPriority = map[Section]int{
	SectionRequirements:  0,
	SectionIntent:        1,
	SectionDocumentation: 2,
	SectionCalc:          3,
	SectionThresholds:    4,
	SectionDefinitions:   5,
	SectionUnknown:       6,
}

// ParseSection maps a raw section label to a Section. Unrecognized labels are SectionUnknown.
func ParseSection(s string) Section {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, " ", "_")
	if sec, ok := sectionAliases[key]; ok {
		return sec
	}
	return SectionUnknown
}

// Priority returns the section's rank in the grouping order.
func (s Section) Priority() int {
	if p, ok := sectionPriority[s]; ok {
		return p
	}
	return sectionPriority[SectionUnknown]
}

// UnmarshalText normalizes corpus aliases while decoding.
func (s *Section) UnmarshalText(b []byte) error {
	*s = ParseSection(string(b))
	return nil
}

// DocType is the kind of source document a chunk was cut from.
type DocType string

const (
	DocTypePrerequisite DocType = "prerequisite"
	DocTypeCredit       DocType = "credit"
	DocTypeForm         DocType = "form"
	DocTypeGuide        DocType = "guide"
	DocTypeFAQ          DocType = "faq"
	DocTypeAddenda      DocType = "addenda"
	DocTypeUnknown      DocType = "unknown"
)

// ParseDocType maps a raw document type label to a DocType.
func ParseDocType(s string) DocType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prerequisite":
		return DocTypePrerequisite
	case "credit":
		return DocTypeCredit
	case "form":
		return DocTypeForm
	case "guide":
		return DocTypeGuide
	case "faq":
		return DocTypeFAQ
	case "addenda", "addendum":
		return DocTypeAddenda
	default:
		return DocTypeUnknown
	}
}

// UnmarshalText normalizes unknown labels while decoding.
func (d *DocType) UnmarshalText(b []byte) error {
	*d = ParseDocType(string(b))
	return nil
}

// Chunk is a section-scoped slice of a source document and the unit of retrieval.
// Chunks are immutable once loaded and shared read-only across requests.
type Chunk struct {
	ChunkID        string    `json:"chunk_id"`
	CreditID       string    `json:"credit_id"`
	CreditCode     string    `json:"credit_code,omitempty"`
	CreditName     string    `json:"credit_name,omitempty"`
	Category       string    `json:"category,omitempty"`
	Section        Section   `json:"section"`
	DocType        DocType   `json:"doc_type"`
	PageStart      int       `json:"page_start,omitempty"` // 0 when unknown
	PageEnd        int       `json:"page_end,omitempty"`
	SourceDocument string    `json:"source_document,omitempty"`
	Version        string    `json:"version,omitempty"`
	RatingSystem   string    `json:"rating_system,omitempty"`
	Text           string    `json:"text"`
	Embedding      []float32 `json:"-"`
}

// HasPages reports whether the chunk carries a known page range.
func (c *Chunk) HasPages() bool {
	return c.PageStart > 0
}

// EnrichedText prefixes the chunk text with its structured labels so that
// literal credit-code queries match lexically.
func (c *Chunk) EnrichedText() string {
	parts := make([]string, 0, 5)
	for _, label := range []string{c.CreditID, string(c.Section), c.CreditName, c.CreditCode} {
		if label != "" {
			parts = append(parts, label)
		}
	}
	parts = append(parts, c.Text)
	return strings.Join(parts, " ")
}

// Credit is a certification requirement grouping one or more chunks.
type Credit struct {
	CreditID  string `json:"credit_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Category  string `json:"category,omitempty"`
	PointsMin int    `json:"points_min,omitempty"`
	PointsMax int    `json:"points_max,omitempty"`
}

// Document is a unit of lexical indexing.
type Document struct {
	ID      string
	Content string
}

// BM25Result is a lexical search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// VectorResult is a dense search hit. Score is cosine similarity.
type VectorResult struct {
	ID    string
	Score float64
}

// BM25Index is a lexical relevance index over enriched chunk text.
// Index is called only while a snapshot is being built; Search is safe for concurrent use.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	// Search returns hits ordered by score descending, ties by id ascending.
	// Only positive scores are returned.
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Len() int
	Close() error
}

// VectorStore is a dense nearest-neighbor index over unit-length embeddings.
// Add is called only while a snapshot is being built; Search is safe for concurrent use.
type VectorStore interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	// Search returns the top-k hits by cosine similarity descending, ties by id ascending.
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Dimensions() int
	Len() int
	Close() error
}

// VectorStoreConfig configures vector store construction.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimensionality fixed by the snapshot.
	Dimensions int
	// M is the HNSW max connections per node.
	M int
	// EfSearch is the HNSW search candidate list size.
	EfSearch int
	// Oversample multiplies k for HNSW candidate retrieval before exact re-scoring.
	Oversample int
}

// DefaultVectorStoreConfig returns defaults for the given dimensionality.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions: dimensions,
		M:          16,
		EfSearch:   64,
		Oversample: 2,
	}
}

// ErrDimensionMismatch is returned when a vector has the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
