package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/embed"
	lderrors "github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/telemetry"
)

// loadConfig resolves the effective configuration for the global flags.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.projectDir)
	if err != nil {
		return nil, err
	}
	if flags.snapshotDir != "" {
		cfg.Snapshot.Dir = flags.snapshotDir
	}
	return cfg, nil
}

// app is a loaded snapshot plus the engine serving it.
type app struct {
	holder   *snapshot.Holder
	embedder embed.Embedder
	engine   *search.Engine
}

// openApp loads the configured snapshot and builds an engine over it.
// A failing embedder is logged and left out so searches degrade to lexical.
func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*app, error) {
	snap, err := snapshot.Load(ctx, cfg.Snapshot.Dir, cfg.LoadOptions())
	if err != nil {
		var ldErr *lderrors.Error
		if errors.As(err, &ldErr) && ldErr.Code == lderrors.ErrCodeSnapshotNotFound && ldErr.Suggestion == "" {
			ldErr.WithSuggestion(fmt.Sprintf("Point snapshot.dir or --snapshot at a directory containing %s.", snapshot.ManifestFile))
		}
		return nil, err
	}

	holder := snapshot.NewHolder(snap)
	if cfg.Snapshot.RetireGrace > 0 {
		holder.SetRetireGrace(cfg.Snapshot.RetireGrace)
	}

	embedder, err := embed.NewEmbedder(cfg.EmbedConfig())
	if err != nil {
		logger.Warn("query embedder unavailable, dense retrieval disabled",
			slog.String("provider", cfg.Embeddings.Provider),
			slog.String("error", err.Error()))
		embedder = nil
	} else if model := snap.Manifest.EmbeddingModel; model != "" && model != embedder.ModelName() {
		logger.Warn("query embedder differs from snapshot embedding model",
			slog.String("snapshot_model", model),
			slog.String("query_model", embedder.ModelName()))
	}

	opts := []search.EngineOption{search.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, search.WithMetrics(metrics))
		metrics.SetSnapshot(snap.Generation(), snap.Metadata.Len())
	}
	engine, err := search.NewEngine(holder, embedder, opts...)
	if err != nil {
		if embedder != nil {
			_ = embedder.Close()
		}
		_ = holder.Close()
		return nil, err
	}

	return &app{holder: holder, embedder: embedder, engine: engine}, nil
}

// Close releases the engine, embedder and snapshot.
func (a *app) Close() error {
	var errs []error
	errs = append(errs, a.engine.Close())
	if a.embedder != nil {
		errs = append(errs, a.embedder.Close())
	}
	errs = append(errs, a.holder.Close())
	return errors.Join(errs...)
}
