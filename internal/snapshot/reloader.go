package snapshot

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/watcher"
)

// Reloader rebuilds the snapshot whenever its directory changes.
// A failed reload keeps the previous snapshot in place.
type Reloader struct {
	holder   *Holder
	dir      string
	opts     LoadOptions
	watchOps watcher.Options
	logger   *slog.Logger

	// OnReload, when set, is called after every reload attempt.
	OnReload func(snap *Snapshot, err error)
}

// NewReloader creates a reloader for dir that swaps into holder.
func NewReloader(holder *Holder, dir string, opts LoadOptions, watchOpts watcher.Options, logger *slog.Logger) *Reloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader{
		holder:   holder,
		dir:      dir,
		opts:     opts,
		watchOps: watchOpts,
		logger:   logger,
	}
}

// Run watches the directory until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	w, err := watcher.New(r.watchOps)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Start(ctx, r.dir) }()

	r.logger.Info("snapshot watcher started",
		slog.String("dir", r.dir),
		slog.String("mode", w.Mode()))

	errs := w.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("snapshot watcher error", slog.String("error", err.Error()))
		case batch, ok := <-w.Events():
			if !ok {
				return nil
			}
			r.logger.Debug("snapshot directory changed", slog.Int("files", len(batch)))
			_ = r.Reload(ctx)
		}
	}
}

// Reload loads the directory now and swaps on success.
func (r *Reloader) Reload(ctx context.Context) error {
	snap, err := Load(ctx, r.dir, r.opts)
	if err != nil {
		attrs := append([]slog.Attr{slog.String("dir", r.dir)}, errors.LogAttrs(err)...)
		r.logger.LogAttrs(ctx, slog.LevelWarn, "snapshot reload failed, keeping current generation", attrs...)
		if r.OnReload != nil {
			r.OnReload(nil, err)
		}
		return err
	}

	previous := r.holder.Current().Generation()
	r.holder.Replace(snap)
	r.logger.Info("snapshot reloaded",
		slog.String("previous_generation", previous),
		slog.String("generation", snap.Generation()),
		slog.Int("chunks", snap.Metadata.Len()))
	if r.OnReload != nil {
		r.OnReload(snap, nil)
	}
	return nil
}
