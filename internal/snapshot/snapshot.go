// Package snapshot loads an immutable, self-consistent generation of the
// searchable corpus: chunk metadata plus the dense and lexical indices
// built from it.
package snapshot

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// Snapshot is one loaded generation. It is never mutated after Build
// returns; a reload produces a new Snapshot.
type Snapshot struct {
	Dir            string
	Manifest       Manifest
	Metadata       store.MetadataStore
	Dense          store.VectorStore
	Lexical        store.BM25Index
	DenseBackend   string
	LexicalBackend string
	LoadedAt       time.Time
}

// Generation returns the manifest generation, or "" for a nil snapshot.
func (s *Snapshot) Generation() string {
	if s == nil {
		return ""
	}
	return s.Manifest.Generation
}

// Close releases the index backends.
func (s *Snapshot) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.Dense != nil {
		errs = append(errs, s.Dense.Close())
	}
	if s.Lexical != nil {
		errs = append(errs, s.Lexical.Close())
	}
	return stderrors.Join(errs...)
}

// BuildOptions selects the in-memory backend implementations.
type BuildOptions struct {
	// DenseBackend is "flat" (default) or "hnsw".
	DenseBackend string
	// LexicalBackend is "bleve" (default) or "sqlite".
	LexicalBackend string
	// HNSWM and HNSWEfSearch tune the hnsw backend. Zero keeps defaults.
	HNSWM        int
	HNSWEfSearch int
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.DenseBackend == "" {
		o.DenseBackend = string(store.DenseBackendFlat)
	}
	if o.LexicalBackend == "" {
		o.LexicalBackend = string(store.BM25BackendBleve)
	}
	return o
}

// Build validates chunks and builds every backend in memory.
//
// Each chunk must carry an embedding of manifest.Dimensions values; when the
// manifest leaves Dimensions at zero it is taken from the first chunk.
// Embeddings are normalized to unit length. Chunk ids must be unique.
func Build(ctx context.Context, manifest Manifest, chunks []*store.Chunk, credits []store.Credit, opts BuildOptions) (*Snapshot, error) {
	opts = opts.withDefaults()
	if !store.ValidDenseBackend(opts.DenseBackend) {
		return nil, errors.ConfigError(fmt.Sprintf("unknown dense backend %q", opts.DenseBackend), nil)
	}
	if !store.ValidBM25Backend(opts.LexicalBackend) {
		return nil, errors.ConfigError(fmt.Sprintf("unknown lexical backend %q", opts.LexicalBackend), nil)
	}

	valid := make([]*store.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c != nil {
			valid = append(valid, c)
		}
	}
	meta, err := store.NewMemoryMetadata(valid, credits)
	if err != nil {
		return nil, errors.SnapshotError(errors.ErrCodeSnapshotCorrupt, "invalid chunk metadata", err)
	}

	dims := manifest.Dimensions
	if dims == 0 && len(valid) > 0 {
		dims = len(valid[0].Embedding)
		manifest.Dimensions = dims
	}
	if dims <= 0 {
		return nil, errors.SnapshotError(errors.ErrCodeSnapshotCorrupt,
			"embedding dimensions unknown: manifest has none and there are no chunks", nil)
	}

	ids := make([]string, 0, len(valid))
	vectors := make([][]float32, 0, len(valid))
	docs := make([]*store.Document, 0, len(valid))
	for _, c := range valid {
		if len(c.Embedding) != dims {
			return nil, errors.New(errors.ErrCodeDimensionMismatch,
				fmt.Sprintf("chunk %q has %d-dimensional embedding, manifest says %d", c.ChunkID, len(c.Embedding), dims), nil).
				WithDetail("chunk_id", c.ChunkID)
		}
		store.NormalizeVector(c.Embedding)
		ids = append(ids, c.ChunkID)
		vectors = append(vectors, c.Embedding)
		docs = append(docs, &store.Document{ID: c.ChunkID, Content: c.EnrichedText()})
	}

	cfg := store.DefaultVectorStoreConfig(dims)
	if opts.HNSWM > 0 {
		cfg.M = opts.HNSWM
	}
	if opts.HNSWEfSearch > 0 {
		cfg.EfSearch = opts.HNSWEfSearch
	}
	dense, err := store.NewVectorStoreWithBackend(opts.DenseBackend, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}
	lexical, err := store.NewBM25IndexWithBackend(opts.LexicalBackend)
	if err != nil {
		_ = dense.Close()
		return nil, errors.Wrap(errors.ErrCodeInternal, err)
	}

	// Fill both backends concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(ids) == 0 {
			return nil
		}
		if err := dense.Add(gctx, ids, vectors); err != nil {
			return errors.SnapshotError(errors.ErrCodeSnapshotCorrupt, "build dense index", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := lexical.Index(gctx, docs); err != nil {
			return errors.SnapshotError(errors.ErrCodeSnapshotCorrupt, "build lexical index", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		_ = dense.Close()
		_ = lexical.Close()
		return nil, err
	}

	slog.Debug("snapshot_built",
		slog.String("generation", manifest.Generation),
		slog.Int("chunks", len(ids)),
		slog.Int("dimensions", dims),
		slog.String("dense_backend", opts.DenseBackend),
		slog.String("lexical_backend", opts.LexicalBackend))

	return &Snapshot{
		Manifest:       manifest,
		Metadata:       meta,
		Dense:          dense,
		Lexical:        lexical,
		DenseBackend:   opts.DenseBackend,
		LexicalBackend: opts.LexicalBackend,
		LoadedAt:       time.Now(),
	}, nil
}
