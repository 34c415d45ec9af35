package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
)

const (
	// CreditTokenizerName is the registered name of the credit-aware tokenizer.
	CreditTokenizerName = "credit_tokenizer"

	// CreditAnalyzerName is the registered name of the analyzer used for chunk content.
	CreditAnalyzerName = "credit_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(CreditTokenizerName, creditTokenizerConstructor)
}

// BleveBM25Index is an in-memory Bleve index over enriched chunk text.
type BleveBM25Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	count  int
	closed bool
}

// BleveDocument is the document structure for Bleve indexing.
type BleveDocument struct {
	Content string `json:"content"`
}

var _ BM25Index = (*BleveBM25Index)(nil)

// NewBleveBM25Index creates an empty in-memory index.
func NewBleveBM25Index() (*BleveBM25Index, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("failed to create index mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &BleveBM25Index{index: idx}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(CreditAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     CreditTokenizerName,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = CreditAnalyzerName

	return indexMapping, nil
}

// Index adds documents to the index.
func (b *BleveBM25Index) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("index is closed")
	}

	batch := b.index.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.ID, BleveDocument{Content: doc.Content}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.ID, err)
		}
	}

	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	b.count += len(docs)

	return nil
}

// Search returns documents matching any query term, best first.
func (b *BleveBM25Index) Search(ctx context.Context, queryStr string, limit int) ([]*BM25Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, fmt.Errorf("index is closed")
	}

	if limit <= 0 || len(TokenizeText(queryStr)) == 0 {
		return []*BM25Result{}, nil
	}

	matchQuery := bleve.NewMatchQuery(queryStr)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit
	req.IncludeLocations = true
	// Stable cut at the limit boundary.
	req.SortBy([]string{"-_score", "_id"})

	result, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]*BM25Result, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if hit.Score <= 0 {
			continue
		}
		results = append(results, &BM25Result{
			DocID:        hit.ID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	sortBM25Results(results)

	return results, nil
}

// Len returns the number of indexed documents.
func (b *BleveBM25Index) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Close closes the index.
func (b *BleveBM25Index) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.index.Close()
}

func extractMatchedTerms(hit *search.DocumentMatch) []string {
	var terms []string
	for term := range hit.Locations["content"] {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func sortBM25Results(results []*BM25Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
}

func creditTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCreditTokenizer{}, nil
}

// bleveCreditTokenizer adapts TokenizeText to Bleve's analysis pipeline.
type bleveCreditTokenizer struct{}

// Tokenize implements analysis.Tokenizer. Offsets are not tracked; positions are sequential.
func (t *bleveCreditTokenizer) Tokenize(input []byte) analysis.TokenStream {
	tokens := TokenizeText(string(input))

	result := make(analysis.TokenStream, 0, len(tokens))
	for i, token := range tokens {
		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    0,
			End:      len(input),
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
	}

	return result
}
