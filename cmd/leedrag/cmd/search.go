package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/logging"
	"github.com/Aman-CERP/leedrag/internal/output"
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// searchFlags holds CLI flags for search. Only flags the user set override
// the configured defaults.
type searchFlags struct {
	format  string // "text", "json"
	verbose bool
	maxText int

	limit              int
	noExpansion        bool
	maxSubqueries      int
	denseOnly          bool
	fusion             string
	denseWeight        float64
	lexicalWeight      float64
	rrfK               int
	noGrouping         bool
	topCredits         int
	maxChunksPerCredit int
	dedupThreshold     float64
	dedupOrder         []string
	candidates         int
	docTypes           []string
	timeout            time.Duration
}

func newSearchCmd(global *globalFlags) *cobra.Command {
	var flags searchFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search requirement evidence",
		Long: `Search the loaded snapshot for passages answering a requirements question.

The query is expanded into domain sub-queries, each sub-query is searched
with the dense and lexical backends, and the ranked lists are fused,
deduplicated and grouped by credit.`,
		Example: `  leedrag search "minimum energy performance requirements"
  leedrag search "EA-p2 thresholds" --top-credits 2 --limit 4
  leedrag search "outdoor water" --fusion rrf --format json
  leedrag search "product disclosure" --doc-type credit,guide -v`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, global, strings.Join(args, " "), flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.format, "format", "f", "text", "Output format: text, json")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Show sub-queries and component scores")
	f.IntVar(&flags.maxText, "max-text", 0, "Truncate passages to this many characters (-1 for full text)")

	f.IntVarP(&flags.limit, "limit", "n", search.DefaultLimit, "Maximum number of results")
	f.BoolVar(&flags.noExpansion, "no-expansion", false, "Search the query as given, without domain sub-queries")
	f.IntVar(&flags.maxSubqueries, "max-subqueries", search.DefaultMaxSubqueries, "Maximum sub-queries after expansion")
	f.BoolVar(&flags.denseOnly, "dense-only", false, "Query only the dense backend (lexical is used if dense is down)")
	f.StringVar(&flags.fusion, "fusion", string(search.FusionWeighted), "Fusion method: weighted, rrf")
	f.Float64Var(&flags.denseWeight, "dense-weight", search.DefaultDenseWeight, "Dense weight for weighted fusion")
	f.Float64Var(&flags.lexicalWeight, "lexical-weight", search.DefaultLexicalWeight, "Lexical weight for weighted fusion")
	f.IntVar(&flags.rrfK, "rrf-k", search.DefaultRRFConstant, "RRF constant k")
	f.BoolVar(&flags.noGrouping, "no-grouping", false, "Do not group results by credit")
	f.IntVar(&flags.topCredits, "top-credits", search.DefaultTopCredits, "Credits to keep when grouping (2-4)")
	f.IntVar(&flags.maxChunksPerCredit, "max-per-credit", search.DefaultMaxChunksPerCredit, "Passages kept per credit")
	f.Float64Var(&flags.dedupThreshold, "dedup-threshold", search.DefaultDedupThreshold, "Cosine similarity treated as duplicate")
	f.StringSliceVar(&flags.dedupOrder, "dedup-order", nil, "Dedup passes in order: similarity, pages")
	f.IntVar(&flags.candidates, "candidates", search.DefaultCandidatesPerList, "Candidates requested from each backend")
	f.StringSliceVar(&flags.docTypes, "doc-type", nil, "Restrict to document types: prerequisite, credit, form, guide, faq, addenda")
	f.DurationVar(&flags.timeout, "backend-timeout", search.DefaultBackendTimeout, "Timeout for each backend call")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, global *globalFlags, query string, flags searchFlags) error {
	if flags.format != "text" && flags.format != "json" {
		return fmt.Errorf("unknown format %q (use text or json)", flags.format)
	}

	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	logger := slog.Default()
	if !global.debug {
		logCfg := logging.DefaultConfig()
		logCfg.Level = cfg.Server.LogLevel
		logCfg.WriteToStderr = false
		if l, cleanup, err := logging.Setup(logCfg); err == nil {
			logger = l
			defer cleanup()
		}
	}

	a, err := openApp(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	resp, err := a.engine.Search(ctx, query, searchOptionsFromFlags(cmd, cfg, flags))
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if flags.format == "json" {
		return out.JSON(resp)
	}
	out.Response(resp, output.RenderOptions{Verbose: flags.verbose, MaxText: flags.maxText})
	return nil
}

// searchOptionsFromFlags overlays explicitly set flags on the configured options.
func searchOptionsFromFlags(cmd *cobra.Command, cfg *config.Config, flags searchFlags) search.Options {
	opts := cfg.SearchOptions()
	changed := cmd.Flags().Changed

	if changed("limit") {
		opts.Limit = flags.limit
	}
	if changed("no-expansion") {
		opts.UseQueryExpansion = !flags.noExpansion
	}
	if changed("max-subqueries") {
		opts.MaxSubqueries = flags.maxSubqueries
	}
	if changed("dense-only") {
		opts.UseHybrid = !flags.denseOnly
	}
	if changed("fusion") {
		opts.FusionMethod = search.FusionMethod(strings.ToLower(flags.fusion))
	}
	if changed("dense-weight") {
		opts.DenseWeight = flags.denseWeight
	}
	if changed("lexical-weight") {
		opts.LexicalWeight = flags.lexicalWeight
	}
	if changed("rrf-k") {
		opts.RRFK = flags.rrfK
	}
	if changed("no-grouping") {
		opts.UseGrouping = !flags.noGrouping
	}
	if changed("top-credits") {
		opts.TopCredits = flags.topCredits
	}
	if changed("max-per-credit") {
		opts.MaxChunksPerCredit = flags.maxChunksPerCredit
	}
	if changed("dedup-threshold") {
		opts.DedupThreshold = flags.dedupThreshold
	}
	if changed("dedup-order") {
		opts.DedupRuleOrder = make([]search.DedupRule, 0, len(flags.dedupOrder))
		for _, r := range flags.dedupOrder {
			if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
				opts.DedupRuleOrder = append(opts.DedupRuleOrder, search.DedupRule(r))
			}
		}
	}
	if changed("candidates") {
		opts.CandidatesPerList = flags.candidates
	}
	if changed("doc-type") {
		opts.DocTypes = make([]store.DocType, 0, len(flags.docTypes))
		for _, d := range flags.docTypes {
			opts.DocTypes = append(opts.DocTypes, store.DocType(strings.ToLower(strings.TrimSpace(d))))
		}
	}
	if changed("backend-timeout") {
		opts.BackendTimeout = flags.timeout
	}
	return opts
}
