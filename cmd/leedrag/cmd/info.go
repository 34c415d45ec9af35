package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/leedrag/internal/output"
	"github.com/Aman-CERP/leedrag/internal/store"
)

func newInfoCmd(global *globalFlags) *cobra.Command {
	var (
		jsonOutput  bool
		showCredits bool
		category    string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show snapshot status and credits",
		Long: `Load the configured snapshot and report its generation, size,
document types and backend readiness. With --credits the credit
catalog is listed as well.`,
		Example: `  leedrag info
  leedrag info --credits --category "Energy and Atmosphere"
  leedrag info --snapshot ./snapshot --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), cfg, slog.Default(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			status := a.engine.Status()
			var credits []store.Credit
			if showCredits {
				for _, c := range a.engine.Credits() {
					if category == "" || strings.EqualFold(c.Category, category) {
						credits = append(credits, c)
					}
				}
			}

			out := output.New(cmd.OutOrStdout())
			if jsonOutput {
				payload := map[string]any{
					"snapshot_dir": cfg.Snapshot.Dir,
					"status":       status,
				}
				if showCredits {
					payload["credits"] = credits
				}
				return out.JSON(payload)
			}

			out.SnapshotStatus(status, cfg.Snapshot.Dir)
			if showCredits {
				out.Newline()
				out.Credits(credits)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showCredits, "credits", false, "List the credit catalog")
	cmd.Flags().StringVar(&category, "category", "", "Only list credits in this category")

	return cmd
}
