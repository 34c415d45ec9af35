package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/profiling"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
)

// CheckSnapshotDir checks that dir exists and holds the required files.
func (c *Checker) CheckSnapshotDir(dir string) CheckResult {
	result := CheckResult{
		Name:     "snapshot_dir",
		Required: true,
		Details:  dir,
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s not found", dir)
		result.Details = "Set snapshot.dir or pass --snapshot"
		return result
	}

	for _, name := range []string{snapshot.ManifestFile, snapshot.ChunksFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("%s is missing", name)
			return result
		}
	}

	result.Status = StatusPass
	result.Message = dir
	if _, err := os.Stat(filepath.Join(dir, snapshot.CreditsFile)); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s is missing, credit names come from chunks only", snapshot.CreditsFile)
	}
	return result
}

// CheckManifest checks that the manifest parses and that its embedding
// model and dimensions agree with the configured query embedder.
func (c *Checker) CheckManifest(cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "manifest",
		Required: true,
	}

	m, err := snapshot.ReadManifest(filepath.Join(cfg.Snapshot.Dir, snapshot.ManifestFile))
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Details = fmt.Sprintf("generation %s, model %q, %d dimensions", m.Generation, m.EmbeddingModel, m.Dimensions)
	if m.Dimensions > 0 && cfg.Embeddings.Dimensions > 0 && m.Dimensions != cfg.Embeddings.Dimensions {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("snapshot has %d dimensions, embeddings.dimensions is %d",
			m.Dimensions, cfg.Embeddings.Dimensions)
		return result
	}
	if m.EmbeddingModel != "" && cfg.Embeddings.Model != "" && m.EmbeddingModel != cfg.Embeddings.Model {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("snapshot embedded with %q, queries use %q", m.EmbeddingModel, cfg.Embeddings.Model)
		return result
	}

	result.Status = StatusPass
	result.Message = "generation " + m.Generation
	return result
}

// CheckSnapshotLoad loads the snapshot and builds its backends.
func (c *Checker) CheckSnapshotLoad(ctx context.Context, cfg *config.Config) CheckResult {
	result := CheckResult{
		Name:     "snapshot_load",
		Required: true,
	}

	start := time.Now()
	snap, err := snapshot.Load(ctx, cfg.Snapshot.Dir, cfg.LoadOptions())
	if err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	defer func() { _ = snap.Close() }()

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d chunks, %d credits in %s",
		snap.Metadata.Len(), len(snap.Metadata.Credits()), time.Since(start).Round(time.Millisecond))
	result.Details = fmt.Sprintf("dense=%s lexical=%s heap=%s",
		snap.DenseBackend, snap.LexicalBackend, profiling.FormatBytes(profiling.HeapInUse()))
	return result
}
