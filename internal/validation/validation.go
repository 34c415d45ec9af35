// Package validation runs golden retrieval queries against a loaded snapshot
// through the MCP tool interface and reports which ones surface the expected
// credits.
//
// Queries are data-driven: the built-in set lives in queries.yaml and a
// custom file with the same layout can be passed instead.
package validation

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/leedrag/internal/mcp"
)

//go:embed queries.yaml
var defaultQueries []byte

// DefaultLimit is the result depth checked for expected credits.
const DefaultLimit = 10

// QuerySpec defines a golden query with the credits it should surface.
type QuerySpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Query string `yaml:"query" json:"query"`
	// Expected lists credit IDs; any one of them in the results passes.
	Expected []string `yaml:"expected" json:"expected"`
	Notes    string   `yaml:"notes,omitempty" json:"notes,omitempty"`
	// Tier is set from the section: 1, 2, or 0 for negative queries.
	Tier int `yaml:"-" json:"tier"`
}

// QueryConfig holds all validation queries.
type QueryConfig struct {
	Tier1    []QuerySpec `yaml:"tier1"`
	Tier2    []QuerySpec `yaml:"tier2"`
	Negative []QuerySpec `yaml:"negative"`
}

// DefaultQueries returns the built-in query set.
func DefaultQueries() (*QueryConfig, error) {
	return parseQueries(defaultQueries)
}

// LoadQueries reads a query file.
func LoadQueries(path string) (*QueryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queries file %s: %w", path, err)
	}
	return parseQueries(data)
}

func parseQueries(data []byte) (*QueryConfig, error) {
	var cfg QueryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse queries YAML: %w", err)
	}
	for i := range cfg.Tier1 {
		cfg.Tier1[i].Tier = 1
	}
	for i := range cfg.Tier2 {
		cfg.Tier2[i].Tier = 2
	}
	for i := range cfg.Negative {
		cfg.Negative[i].Tier = 0
	}
	return &cfg, nil
}

// TestResult captures the outcome of a single query.
type TestResult struct {
	Spec       QuerySpec     `json:"spec"`
	Passed     bool          `json:"passed"`
	Duration   time.Duration `json:"duration_ns"`
	TopCredits []string      `json:"top_credits"`
	MatchedAt  int           `json:"matched_at"` // rank index of first match, -1 if none
	Degraded   bool          `json:"degraded,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// TierSummary counts passes within one tier.
type TierSummary struct {
	Results []TestResult `json:"results"`
	Passed  int          `json:"passed"`
	Total   int          `json:"total"`
}

// PassRate returns the fraction of passing queries, 1 for an empty tier.
func (s TierSummary) PassRate() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Passed) / float64(s.Total)
}

func (s *TierSummary) add(r TestResult) {
	s.Results = append(s.Results, r)
	s.Total++
	if r.Passed {
		s.Passed++
	}
}

// ValidationResult captures a full run.
type ValidationResult struct {
	Timestamp  time.Time   `json:"timestamp"`
	Generation string      `json:"generation"`
	Tier1      TierSummary `json:"tier1"`
	Tier2      TierSummary `json:"tier2"`
	Negative   TierSummary `json:"negative"`
}

// ToolCaller is the subset of the MCP server the validator drives.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (any, error)
}

// Validator runs queries through search_requirements.
type Validator struct {
	server ToolCaller
	limit  int
}

// NewValidator returns a validator checking the top limit results.
// limit <= 0 selects DefaultLimit.
func NewValidator(server ToolCaller, limit int) *Validator {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Validator{server: server, limit: limit}
}

// RunQuery executes one query.
func (v *Validator) RunQuery(ctx context.Context, spec QuerySpec) TestResult {
	start := time.Now()
	result := TestResult{Spec: spec, MatchedAt: -1}

	resp, err := v.server.CallTool(ctx, mcp.ToolSearchRequirements, map[string]any{
		"query": spec.Query,
		"limit": v.limit,
	})
	result.Duration = time.Since(start)

	if err != nil {
		// Negative queries only need to fail cleanly.
		if spec.Tier == 0 {
			result.Passed = true
		} else {
			result.Error = err.Error()
		}
		return result
	}

	out, err := decodeOutput(resp)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Degraded = len(out.Degraded) > 0
	for _, r := range out.Results {
		result.TopCredits = append(result.TopCredits, r.CreditID)
	}

	if len(spec.Expected) == 0 {
		result.Passed = true
	} else {
		result.Passed, result.MatchedAt = checkExpected(result.TopCredits, spec.Expected)
	}
	return result
}

// RunAll executes every query in cfg.
func (v *Validator) RunAll(ctx context.Context, cfg *QueryConfig) *ValidationResult {
	result := &ValidationResult{Timestamp: time.Now()}

	for _, spec := range cfg.Tier1 {
		result.Tier1.add(v.RunQuery(ctx, spec))
	}
	for _, spec := range cfg.Tier2 {
		result.Tier2.add(v.RunQuery(ctx, spec))
	}
	for _, spec := range cfg.Negative {
		result.Negative.add(v.RunQuery(ctx, spec))
	}
	return result
}

// decodeOutput accepts the typed tool output or any JSON-equivalent value.
func decodeOutput(resp any) (*mcp.SearchRequirementsOutput, error) {
	if out, ok := resp.(*mcp.SearchRequirementsOutput); ok {
		return out, nil
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("unexpected tool output %T: %w", resp, err)
	}
	var out mcp.SearchRequirementsOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("unexpected tool output %T: %w", resp, err)
	}
	return &out, nil
}

// checkExpected reports whether any expected credit appears and where.
func checkExpected(credits []string, expected []string) (bool, int) {
	for i, id := range credits {
		for _, exp := range expected {
			if strings.EqualFold(id, exp) {
				return true, i
			}
		}
	}
	return false, -1
}
