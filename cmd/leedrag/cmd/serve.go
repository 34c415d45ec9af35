package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/logging"
	"github.com/Aman-CERP/leedrag/internal/mcp"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/telemetry"
)

type serveFlags struct {
	metricsAddr string
	noWatch     bool
	logFile     string
}

func newServeCmd(global *globalFlags) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol server on stdio.

The server exposes the search_requirements, list_credits and
snapshot_status tools plus the leedrag://credits and leedrag://status
resources. Stdout carries the protocol, so logs go to
~/.leedrag/logs/leedrag.log.

Unless --no-watch is given, changes in the snapshot directory are
picked up and swapped in without dropping in-flight requests.`,
		Example: `  leedrag serve
  leedrag serve --snapshot /data/leed-snapshot --metrics-addr 127.0.0.1:9464`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Server.MetricsAddr = flags.metricsAddr
			}
			if flags.noWatch {
				cfg.Snapshot.Watch = false
			}

			level := cfg.Server.LogLevel
			if global.debug {
				level = "debug"
			}
			cleanup, err := logging.SetupStdioMode(level, flags.logFile)
			if err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, slog.Default())
		},
	}

	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&flags.noWatch, "no-watch", false, "Do not reload the snapshot when it changes")
	cmd.Flags().StringVar(&flags.logFile, "log-file", "", "Log file (default ~/.leedrag/logs/leedrag.log)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	metrics := telemetry.New(nil)
	if cfg.Server.MetricsAddr != "" {
		shutdown, err := telemetry.StartServer(cfg.Server.MetricsAddr, metrics)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(shutdownCtx)
		}()
	}

	a, err := openApp(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	server, err := mcp.NewServer(a.engine, a.embedder, cfg)
	if err != nil {
		return err
	}
	server.SetLogger(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Snapshot.Watch {
		reloader := snapshot.NewReloader(a.holder, cfg.Snapshot.Dir, cfg.LoadOptions(), cfg.WatchOptions(), logger)
		reloader.OnReload = func(snap *snapshot.Snapshot, err error) {
			metrics.RecordReload(err)
			if snap != nil {
				metrics.SetSnapshot(snap.Generation(), snap.Metadata.Len())
			}
		}
		g.Go(func() error {
			if err := reloader.Run(gctx); err != nil {
				// Serving continues on the loaded generation.
				logger.Warn("snapshot watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		// The watcher stops with the server, e.g. when stdin closes.
		defer cancel()
		return server.Serve(gctx, cfg.Server.Transport)
	})

	return g.Wait()
}
