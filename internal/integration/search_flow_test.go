package integration

import (
	"context"
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

// openEngine loads dir with opts and returns an engine over it.
func openEngine(t *testing.T, dir string, opts snapshot.LoadOptions, e embed.Embedder) (*search.Engine, *snapshot.Holder) {
	t.Helper()
	snap, err := snapshot.Load(context.Background(), dir, opts)
	require.NoError(t, err)

	holder := snapshot.NewHolder(snap)
	holder.SetRetireGrace(0)
	t.Cleanup(func() { _ = holder.Close() })

	engine, err := search.NewEngine(holder, e)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, holder
}

func chunkIDs(results []search.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	return ids
}

func TestSearchFlow_Backends(t *testing.T) {
	backends := []snapshot.BuildOptions{
		{DenseBackend: "flat", LexicalBackend: "bleve"},
		{DenseBackend: "hnsw", LexicalBackend: "sqlite"},
	}

	for _, b := range backends {
		for _, fusion := range []search.FusionMethod{search.FusionWeighted, search.FusionRRF} {
			t.Run(b.DenseBackend+"/"+b.LexicalBackend+"/"+string(fusion), func(t *testing.T) {
				// Given: the corpus loaded with these backends
				dir := filepath.Join(t.TempDir(), "snapshot")
				e := writeCorpus(t, dir, "gen-1")
				engine, _ := openEngine(t, dir, snapshot.LoadOptions{BuildOptions: b}, e)

				opts := search.DefaultOptions()
				opts.FusionMethod = fusion

				// When: asking for the energy prerequisite
				resp, err := engine.Search(context.Background(), "EA-p2 minimum energy performance requirements", opts)
				require.NoError(t, err)

				// Then: results are complete and bounded
				require.NotEmpty(t, resp.Results)
				assert.Empty(t, resp.Degraded)
				assert.Equal(t, "gen-1", resp.Generation)

				perCredit := map[string]int{}
				for i, r := range resp.Results {
					assert.Equal(t, i+1, r.Rank)
					assert.NotEmpty(t, r.SourceDocument, r.ChunkID)
					assert.Positive(t, r.PageStart, r.ChunkID)
					perCredit[r.CreditID]++
				}
				assert.Contains(t, perCredit, "EA-p2")
				assert.LessOrEqual(t, len(perCredit), opts.TopCredits)
				for credit, n := range perCredit {
					assert.LessOrEqual(t, n, opts.MaxChunksPerCredit, credit)
				}

				// And: the near-duplicate requirements passages collapse
				ids := chunkIDs(resp.Results)
				assert.False(t, contains(ids, "ea-p2-req-1") && contains(ids, "ea-p2-req-2"), ids)

				// And: repeating the search gives the same order
				again, err := engine.Search(context.Background(), "EA-p2 minimum energy performance requirements", opts)
				require.NoError(t, err)
				assert.Equal(t, ids, chunkIDs(again.Results))
			})
		}
	}
}

func TestSearchFlow_DocTypeFilter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snapshot")
	e := writeCorpus(t, dir, "gen-1")
	engine, _ := openEngine(t, dir, snapshot.LoadOptions{}, e)

	opts := search.DefaultOptions()
	opts.DocTypes = []store.DocType{store.DocTypeForm}

	resp, err := engine.Search(context.Background(), "water documentation upload", opts)
	require.NoError(t, err)

	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.Equal(t, store.DocTypeForm, r.DocType)
	}
}

func TestSearchFlow_LexicalFallbackWithoutEmbedder(t *testing.T) {
	// Given: a snapshot served without a query embedder
	dir := filepath.Join(t.TempDir(), "snapshot")
	writeCorpus(t, dir, "gen-1")
	engine, _ := openEngine(t, dir, snapshot.LoadOptions{}, nil)

	// When: searching dense-first
	opts := search.DefaultOptions()
	opts.UseHybrid = false
	resp, err := engine.Search(context.Background(), "outdoor water irrigation", opts)

	// Then: lexical answers and the dense failure is reported
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "WE-c1", resp.Results[0].CreditID)
	require.NotEmpty(t, resp.Degraded)
	for _, d := range resp.Degraded {
		assert.Equal(t, search.BackendDense, d.Backend)
	}
	assert.False(t, engine.Status().DenseReady)
}

func TestSearchFlow_MCPTools(t *testing.T) {
	// Given: an MCP server over the corpus
	dir := filepath.Join(t.TempDir(), "snapshot")
	e := writeCorpus(t, dir, "gen-1")
	engine, _ := openEngine(t, dir, snapshot.LoadOptions{}, e)

	cfg := config.NewConfig()
	cfg.Snapshot.Dir = dir
	cfg.Embeddings.Dimensions = fixtureDims
	server, err := mcp.NewServer(engine, e, cfg)
	require.NoError(t, err)
	ctx := context.Background()

	// When: calling each tool
	res, err := server.CallTool(ctx, mcp.ToolSearchRequirements, map[string]any{
		"query":       "environmental product declarations",
		"top_credits": 2,
	})
	require.NoError(t, err)
	out := res.(*mcp.SearchRequirementsOutput)

	// Then: search honors the tool arguments
	require.NotEmpty(t, out.Results)
	assert.Equal(t, "MR-c2", out.Results[0].CreditID)
	distinct := map[string]bool{}
	for _, r := range out.Results {
		distinct[r.CreditID] = true
	}
	assert.LessOrEqual(t, len(distinct), 2)

	res, err = server.CallTool(ctx, mcp.ToolListCredits, map[string]any{"category": "energy and atmosphere"})
	require.NoError(t, err)
	assert.Len(t, res.(*mcp.ListCreditsOutput).Credits, 2)

	res, err = server.CallTool(ctx, mcp.ToolSnapshotStatus, nil)
	require.NoError(t, err)
	status := res.(*mcp.SnapshotStatusOutput)
	assert.True(t, status.Snapshot.Loaded)
	assert.Equal(t, "gen-1", status.Snapshot.Generation)
	assert.Equal(t, len(corpus()), status.Snapshot.Chunks)
	assert.False(t, status.Embeddings.ModelMismatch)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
