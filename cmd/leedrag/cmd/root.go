// Package cmd provides the CLI commands for leedrag.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/leedrag/internal/logging"
	"github.com/Aman-CERP/leedrag/internal/profiling"
	"github.com/Aman-CERP/leedrag/pkg/version"
)

// Global flags shared by every subcommand.
type globalFlags struct {
	debug       bool
	projectDir  string
	snapshotDir string
	profile     profiling.Options
}

// NewRootCmd creates the root command for the leedrag CLI.
func NewRootCmd() *cobra.Command {
	var (
		flags          globalFlags
		loggingCleanup func()
		profile        *profiling.Session
	)

	cmd := &cobra.Command{
		Use:   "leedrag",
		Short: "Hybrid retrieval over LEED certification requirements",
		Long: `leedrag answers questions about LEED v4.1 BD+C requirements with
evidence passages retrieved from a prebuilt index snapshot.

Queries are expanded into domain sub-queries, searched with dense and
lexical backends, fused, deduplicated and grouped by credit.

Run 'leedrag serve' to expose the engine to AI assistants over MCP, or
'leedrag search' to query it from the terminal.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if flags.debug {
				logger, cleanup, err := logging.Setup(logging.DebugConfig())
				if err != nil {
					return fmt.Errorf("failed to setup debug logging: %w", err)
				}
				loggingCleanup = cleanup
				slog.SetDefault(logger)
				slog.Debug("debug logging enabled",
					slog.String("command", cmd.CommandPath()),
					slog.String("log_file", logging.DefaultLogPath()))
			}
			if flags.profile.Enabled() {
				s, err := profiling.Start(flags.profile)
				if err != nil {
					return err
				}
				profile = s
			}
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			var err error
			if profile != nil {
				err = profile.Stop()
				profile = nil
			}
			if loggingCleanup != nil {
				slog.Debug("debug logging stopped")
				loggingCleanup()
				loggingCleanup = nil
			}
			return err
		},
	}

	cmd.SetVersionTemplate("leedrag version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging to ~/.leedrag/logs/")
	pf.StringVarP(&flags.projectDir, "dir", "C", ".", "Directory to read .leedrag.yaml from")
	pf.StringVar(&flags.snapshotDir, "snapshot", "", "Snapshot directory (overrides snapshot.dir)")
	pf.StringVar(&flags.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&flags.profile.Heap, "profile-mem", "", "Write heap profile to file")
	pf.StringVar(&flags.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.AddCommand(newSearchCmd(&flags))
	cmd.AddCommand(newServeCmd(&flags))
	cmd.AddCommand(newInfoCmd(&flags))
	cmd.AddCommand(newConfigCmd(&flags))
	cmd.AddCommand(newDoctorCmd(&flags))
	cmd.AddCommand(newValidateCmd(&flags))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
