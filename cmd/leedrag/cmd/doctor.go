package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/leedrag/internal/output"
	"github.com/Aman-CERP/leedrag/internal/preflight"
)

func newDoctorCmd(global *globalFlags) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the snapshot, embedder and environment",
		Long: `Run diagnostics before serving.

Required checks:
  - Snapshot directory with manifest.yaml and chunks.json
  - Manifest dimensions match embeddings.dimensions
  - Snapshot loads and both backends build

Warnings:
  - Query embedder unavailable (searches fall back to lexical)
  - Log directory not writable or low on space
  - Low file descriptor limit`,
		Example: `  leedrag doctor
  leedrag doctor --snapshot ./snapshot -v
  leedrag doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}

			checker := preflight.New(
				preflight.WithOutput(cmd.OutOrStdout()),
				preflight.WithVerbose(verbose),
			)
			results := checker.RunAll(cmd.Context(), cfg)

			if jsonOutput {
				if err := output.New(cmd.OutOrStdout()).JSON(map[string]any{
					"status": checker.SummaryStatus(results),
					"checks": results,
				}); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show check details")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
