package validation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/mcp"
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// newFixtureServer builds an MCP server over a small in-memory snapshot.
func newFixtureServer(t *testing.T) *mcp.Server {
	t.Helper()
	ctx := context.Background()
	e := embed.NewStaticEmbedder(embed.DefaultDimensions)

	chunks := []*store.Chunk{
		{
			ChunkID: "ea-p2-req", CreditID: "EA-p2", CreditName: "Minimum Energy Performance",
			Section: store.SectionRequirements, DocType: store.DocTypePrerequisite,
			Text: "Demonstrate an improvement in proposed building energy performance compared with the baseline.",
		},
		{
			ChunkID: "we-c1-req", CreditID: "WE-c1", CreditName: "Outdoor Water Use Reduction",
			Section: store.SectionRequirements, DocType: store.DocTypeCredit,
			Text: "Reduce outdoor water use through plant selection and efficient irrigation.",
		},
		{
			ChunkID: "mr-c2-req", CreditID: "MR-c2", CreditName: "Building Product Disclosure and Optimization",
			Section: store.SectionRequirements, DocType: store.DocTypeCredit,
			Text: "Use at least 20 permanently installed products with environmental product declarations.",
		},
	}
	for _, c := range chunks {
		v, err := e.Embed(ctx, c.EnrichedText())
		require.NoError(t, err)
		c.Embedding = v
	}

	manifest := snapshot.Manifest{Generation: "val-1", EmbeddingModel: e.ModelName(), Dimensions: e.Dimensions()}
	snap, err := snapshot.Build(ctx, manifest, chunks, nil, snapshot.BuildOptions{})
	require.NoError(t, err)

	holder := snapshot.NewHolder(snap)
	t.Cleanup(func() { _ = holder.Close() })

	engine, err := search.NewEngine(holder, e)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })

	server, err := mcp.NewServer(engine, e, config.NewConfig())
	require.NoError(t, err)
	return server
}

func TestDefaultQueries_Parse(t *testing.T) {
	cfg, err := DefaultQueries()

	require.NoError(t, err)
	require.NotEmpty(t, cfg.Tier1)
	require.NotEmpty(t, cfg.Tier2)
	require.NotEmpty(t, cfg.Negative)
	for _, q := range cfg.Tier1 {
		assert.Equal(t, 1, q.Tier, q.ID)
		assert.NotEmpty(t, q.Expected, q.ID)
	}
	for _, q := range cfg.Negative {
		assert.Equal(t, 0, q.Tier, q.ID)
	}
}

func TestLoadQueries(t *testing.T) {
	// Given: a custom query file
	path := filepath.Join(t.TempDir(), "queries.yaml")
	data := "tier1:\n  - id: A\n    query: water\n    expected: [WE-c1]\ntier2:\n  - id: B\n    query: energy\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	// When: loading it
	cfg, err := LoadQueries(path)

	// Then: tiers are assigned from the sections
	require.NoError(t, err)
	require.Len(t, cfg.Tier1, 1)
	require.Len(t, cfg.Tier2, 1)
	assert.Equal(t, 1, cfg.Tier1[0].Tier)
	assert.Equal(t, 2, cfg.Tier2[0].Tier)

	_, err = LoadQueries(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCheckExpected(t *testing.T) {
	tests := []struct {
		name     string
		credits  []string
		expected []string
		passed   bool
		at       int
	}{
		{"first", []string{"EA-p2", "WE-c1"}, []string{"EA-p2"}, true, 0},
		{"case insensitive", []string{"EA-p2", "we-c1"}, []string{"WE-c1"}, true, 1},
		{"any of several", []string{"MR-c2"}, []string{"EA-c2", "MR-c2"}, true, 0},
		{"missing", []string{"EA-p2"}, []string{"WE-c1"}, false, -1},
		{"no results", nil, []string{"WE-c1"}, false, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, at := checkExpected(tt.credits, tt.expected)
			assert.Equal(t, tt.passed, passed)
			assert.Equal(t, tt.at, at)
		})
	}
}

func TestValidator_RunAll(t *testing.T) {
	// Given: a server over three credits and a mixed query set
	v := NewValidator(newFixtureServer(t), 0)
	cfg := &QueryConfig{
		Tier1: []QuerySpec{
			{ID: "T1", Query: "outdoor water irrigation", Expected: []string{"WE-c1"}, Tier: 1},
			{ID: "T2", Query: "environmental product declarations", Expected: []string{"MR-c2"}, Tier: 1},
		},
		Tier2: []QuerySpec{
			{ID: "T3", Query: "outdoor water irrigation", Expected: []string{"EQ-c9"}, Tier: 2},
		},
		Negative: []QuerySpec{
			{ID: "N1", Query: "", Tier: 0},
			{ID: "N2", Query: "chocolate cake", Tier: 0},
		},
	}

	// When: running every query
	result := v.RunAll(context.Background(), cfg)

	// Then: hits pass, a missing credit fails, negatives pass
	assert.Equal(t, 2, result.Tier1.Total)
	assert.Equal(t, 2, result.Tier1.Passed)
	assert.Equal(t, 1.0, result.Tier1.PassRate())
	assert.Equal(t, 0, result.Tier2.Passed)
	assert.Equal(t, -1, result.Tier2.Results[0].MatchedAt)
	assert.NotEmpty(t, result.Tier2.Results[0].TopCredits)
	assert.Equal(t, 2, result.Negative.Passed)
}

func TestValidator_ToolError(t *testing.T) {
	// Given: a server whose tool call fails
	v := NewValidator(failingCaller{}, 5)

	// When: running a tier-1 and a negative query
	tier1 := v.RunQuery(context.Background(), QuerySpec{ID: "T", Query: "x", Expected: []string{"A"}, Tier: 1})
	negative := v.RunQuery(context.Background(), QuerySpec{ID: "N", Query: "x"})

	// Then: the tier-1 query records the error, the negative passes
	assert.False(t, tier1.Passed)
	assert.Equal(t, "backend down", tier1.Error)
	assert.True(t, negative.Passed)
}

func TestTierSummary_PassRateEmpty(t *testing.T) {
	assert.Equal(t, 1.0, TierSummary{}.PassRate())
}

type failingCaller struct{}

func (failingCaller) CallTool(context.Context, string, map[string]any) (any, error) {
	return nil, errors.New("backend down")
}
