package snapshot

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// DefaultLockTimeout bounds how long Load waits for a writer to finish.
const DefaultLockTimeout = 10 * time.Second

// LoadOptions configures Load.
type LoadOptions struct {
	BuildOptions
	// LockTimeout bounds waiting for the shared lock. Zero means DefaultLockTimeout.
	LockTimeout time.Duration
}

// chunkRecord is the on-disk form of a chunk, embedding included.
type chunkRecord struct {
	store.Chunk
	Embedding []float32 `json:"embedding"`
}

// Load reads a snapshot directory and builds its backends.
//
// The directory holds manifest.yaml, chunks.json and optionally credits.json.
// Files are read under a shared lock on <dir>/.lock so a concurrent writer
// holding the exclusive lock is never observed half-way.
func Load(ctx context.Context, dir string, opts LoadOptions) (*Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.SnapshotError(errors.ErrCodeSnapshotNotFound,
			fmt.Sprintf("snapshot directory %s not found", dir), err).
			WithSuggestion("Point snapshot.dir at a directory produced by the offline corpus build")
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lock := newDirLock(dir)
	if err := lock.RLock(lockCtx); err != nil {
		return nil, errors.SnapshotError(errors.ErrCodeSnapshotLocked,
			fmt.Sprintf("snapshot directory %s is locked by a writer", dir), err)
	}
	defer func() { _ = lock.Unlock() }()

	manifest, err := ReadManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fileError(ManifestFile, err)
	}

	chunks, err := readChunks(filepath.Join(dir, ChunksFile))
	if err != nil {
		return nil, fileError(ChunksFile, err)
	}

	credits, err := readCredits(filepath.Join(dir, CreditsFile))
	if err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fileError(CreditsFile, err)
	}

	snap, err := Build(ctx, manifest, chunks, credits, opts.BuildOptions)
	if err != nil {
		return nil, err
	}
	snap.Dir = dir
	return snap, nil
}

// fileError maps a read failure to not-found or corrupt.
func fileError(name string, err error) error {
	if stderrors.Is(err, fs.ErrNotExist) {
		return errors.SnapshotError(errors.ErrCodeSnapshotNotFound, name+" is missing", err)
	}
	return errors.SnapshotError(errors.ErrCodeSnapshotCorrupt, name+" is invalid", err)
}

func readChunks(path string) ([]*store.Chunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []chunkRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ChunksFile, err)
	}

	chunks := make([]*store.Chunk, len(records))
	for i := range records {
		c := records[i].Chunk
		c.Embedding = records[i].Embedding
		if c.Section == "" {
			c.Section = store.SectionUnknown
		}
		if c.DocType == "" {
			c.DocType = store.DocTypeUnknown
		}
		chunks[i] = &c
	}
	return chunks, nil
}

func readCredits(path string) ([]store.Credit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var credits []store.Credit
	if err := json.Unmarshal(data, &credits); err != nil {
		return nil, fmt.Errorf("parse %s: %w", CreditsFile, err)
	}
	return credits, nil
}

// Write stores a snapshot directory under the exclusive lock. It is the
// writer side of Load, used by fixtures and export tooling.
func Write(ctx context.Context, dir string, manifest Manifest, chunks []*store.Chunk, credits []store.Credit) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot directory: %w", err)
	}

	lock := newDirLock(dir)
	if err := lock.Lock(ctx); err != nil {
		return errors.SnapshotError(errors.ErrCodeSnapshotLocked, "snapshot directory is locked", err)
	}
	defer func() { _ = lock.Unlock() }()

	records := make([]chunkRecord, len(chunks))
	for i, c := range chunks {
		records[i] = chunkRecord{Chunk: *c, Embedding: c.Embedding}
	}
	if err := writeJSON(filepath.Join(dir, ChunksFile), records); err != nil {
		return err
	}
	if credits != nil {
		if err := writeJSON(filepath.Join(dir, CreditsFile), credits); err != nil {
			return err
		}
	}
	// The manifest goes last so a watcher sees the new generation once the data is in place.
	return WriteManifest(filepath.Join(dir, ManifestFile), manifest)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
