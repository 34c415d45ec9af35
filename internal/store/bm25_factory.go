package store

import "fmt"

// BM25Backend selects the lexical index implementation.
type BM25Backend string

const (
	// BM25BackendBleve uses an in-memory Bleve index (default).
	BM25BackendBleve BM25Backend = "bleve"

	// BM25BackendSQLite uses an in-memory SQLite FTS5 table ranked by bm25().
	BM25BackendSQLite BM25Backend = "sqlite"
)

// DenseBackend selects the vector store implementation.
type DenseBackend string

const (
	// DenseBackendFlat is an exact scan (default).
	DenseBackendFlat DenseBackend = "flat"

	// DenseBackendHNSW is an approximate graph index.
	DenseBackendHNSW DenseBackend = "hnsw"
)

// NewBM25IndexWithBackend creates an empty lexical index of the given kind.
// An empty backend selects Bleve.
func NewBM25IndexWithBackend(backend string) (BM25Index, error) {
	switch BM25Backend(backend) {
	case BM25BackendBleve, "":
		return NewBleveBM25Index()
	case BM25BackendSQLite:
		return NewSQLiteBM25Index()
	default:
		return nil, fmt.Errorf("unknown BM25 backend: %s (valid options: bleve, sqlite)", backend)
	}
}

// NewVectorStoreWithBackend creates an empty vector store of the given kind.
// An empty backend selects the exact flat store.
func NewVectorStoreWithBackend(backend string, cfg VectorStoreConfig) (VectorStore, error) {
	switch DenseBackend(backend) {
	case DenseBackendFlat, "":
		return NewFlatStore(cfg)
	case DenseBackendHNSW:
		return NewHNSWStore(cfg)
	default:
		return nil, fmt.Errorf("unknown dense backend: %s (valid options: flat, hnsw)", backend)
	}
}

// ValidBM25Backend reports whether backend names a known lexical index.
func ValidBM25Backend(backend string) bool {
	switch BM25Backend(backend) {
	case BM25BackendBleve, BM25BackendSQLite, "":
		return true
	}
	return false
}

// ValidDenseBackend reports whether backend names a known vector store.
func ValidDenseBackend(backend string) bool {
	switch DenseBackend(backend) {
	case DenseBackendFlat, DenseBackendHNSW, "":
		return true
	}
	return false
}
