package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// writeSnapshot writes a two-chunk snapshot with dims-dimensional embeddings.
func writeSnapshot(t *testing.T, dims int, credits bool) string {
	t.Helper()
	dir := t.TempDir()
	e := embed.NewStaticEmbedder(dims)

	chunks := []*store.Chunk{
		{ChunkID: "a", CreditID: "EA-p2", Section: store.SectionRequirements, DocType: store.DocTypePrerequisite, Text: "energy performance"},
		{ChunkID: "b", CreditID: "WE-c1", Section: store.SectionRequirements, DocType: store.DocTypeCredit, Text: "outdoor water"},
	}
	for _, c := range chunks {
		v, err := e.Embed(context.Background(), c.Text)
		require.NoError(t, err)
		c.Embedding = v
	}
	var cs []store.Credit
	if credits {
		cs = []store.Credit{{CreditID: "EA-p2", Name: "Minimum Energy Performance"}}
	}

	m := snapshot.Manifest{Generation: "pf-1", EmbeddingModel: e.ModelName(), Dimensions: dims}
	require.NoError(t, snapshot.Write(context.Background(), dir, m, chunks, cs))
	if !credits {
		_ = os.Remove(filepath.Join(dir, snapshot.CreditsFile))
	}
	return dir
}

func testConfig(dir string) *config.Config {
	cfg := config.NewConfig()
	cfg.Snapshot.Dir = dir
	return cfg
}

func TestCheckStatus_String(t *testing.T) {
	tests := []struct {
		status CheckStatus
		want   string
	}{
		{StatusPass, "PASS"},
		{StatusWarn, "WARN"},
		{StatusFail, "FAIL"},
		{CheckStatus(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestCheckResult_JSONStatusByName(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "x", Status: StatusWarn})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"warn"`)
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass is not critical", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail is critical", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail is not critical", CheckResult{Status: StatusFail, Required: false}, false},
		{"required warn is not critical", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_SummaryStatus(t *testing.T) {
	c := New()

	tests := []struct {
		name    string
		results []CheckResult
		want    string
	}{
		{"all pass", []CheckResult{{Status: StatusPass, Required: true}}, "ready"},
		{"warning", []CheckResult{{Status: StatusPass}, {Status: StatusWarn}}, "ready_with_warnings"},
		{"optional failure", []CheckResult{{Status: StatusFail}}, "ready_with_warnings"},
		{"critical failure", []CheckResult{{Status: StatusWarn}, {Status: StatusFail, Required: true}}, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.SummaryStatus(tt.results))
		})
	}
}

func TestCheckSnapshotDir(t *testing.T) {
	c := New()

	t.Run("missing directory", func(t *testing.T) {
		r := c.CheckSnapshotDir(filepath.Join(t.TempDir(), "missing"))
		assert.Equal(t, StatusFail, r.Status)
		assert.True(t, r.IsCritical())
	})

	t.Run("missing chunks", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, snapshot.WriteManifest(filepath.Join(dir, snapshot.ManifestFile), snapshot.Manifest{Generation: "g"}))
		r := c.CheckSnapshotDir(dir)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Message, snapshot.ChunksFile)
	})

	t.Run("complete", func(t *testing.T) {
		r := c.CheckSnapshotDir(writeSnapshot(t, 16, true))
		assert.Equal(t, StatusPass, r.Status)
	})

	t.Run("no credits file", func(t *testing.T) {
		r := c.CheckSnapshotDir(writeSnapshot(t, 16, false))
		assert.Equal(t, StatusWarn, r.Status)
	})
}

func TestCheckManifest(t *testing.T) {
	c := New()
	dir := writeSnapshot(t, 16, true)

	t.Run("matching dimensions", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Embeddings.Dimensions = 16
		r := c.CheckManifest(cfg)
		assert.Equal(t, StatusPass, r.Status)
		assert.Contains(t, r.Message, "pf-1")
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Embeddings.Dimensions = 32
		r := c.CheckManifest(cfg)
		assert.Equal(t, StatusFail, r.Status)
		assert.Contains(t, r.Message, "16 dimensions")
	})

	t.Run("model mismatch", func(t *testing.T) {
		cfg := testConfig(dir)
		cfg.Embeddings.Dimensions = 16
		cfg.Embeddings.Model = "text-embedding-3-small"
		r := c.CheckManifest(cfg)
		assert.Equal(t, StatusWarn, r.Status)
	})
}

func TestCheckSnapshotLoad(t *testing.T) {
	c := New()

	r := c.CheckSnapshotLoad(context.Background(), testConfig(writeSnapshot(t, 16, true)))
	assert.Equal(t, StatusPass, r.Status)
	assert.Contains(t, r.Message, "2 chunks")

	corrupt := t.TempDir()
	require.NoError(t, snapshot.WriteManifest(filepath.Join(corrupt, snapshot.ManifestFile), snapshot.Manifest{Generation: "g"}))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, snapshot.ChunksFile), []byte("{not json"), 0o644))
	r = c.CheckSnapshotLoad(context.Background(), testConfig(corrupt))
	assert.Equal(t, StatusFail, r.Status)
}

func TestCheckEmbedder(t *testing.T) {
	c := New()

	t.Run("static", func(t *testing.T) {
		r := c.CheckEmbedder(context.Background(), config.NewConfig())
		assert.Equal(t, StatusPass, r.Status)
		assert.False(t, r.Required)
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.Embeddings.Provider = "nope"
		r := c.CheckEmbedder(context.Background(), cfg)
		assert.Equal(t, StatusWarn, r.Status)
	})
}

func TestCheckLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	c := New(WithLogDir(dir))

	r := c.CheckLogDir()

	assert.NotEqual(t, StatusFail, r.Status)
	assert.Contains(t, r.Message, "writable")
	assert.DirExists(t, dir)
}

func TestChecker_RunAll(t *testing.T) {
	t.Run("healthy snapshot", func(t *testing.T) {
		// Given: a snapshot matching the default embedder
		cfg := testConfig(writeSnapshot(t, embed.DefaultDimensions, true))
		buf := &bytes.Buffer{}
		c := New(WithOutput(buf), WithVerbose(true), WithLogDir(t.TempDir()))

		// When: running every check
		results := c.RunAll(context.Background(), cfg)
		c.PrintResults(results)

		// Then: nothing critical fails
		assert.False(t, c.HasCriticalFailures(results))
		names := make([]string, len(results))
		for i, r := range results {
			names[i] = r.Name
		}
		assert.Equal(t, []string{"snapshot_dir", "manifest", "snapshot_load", "embedder", "log_dir", "file_descriptors"}, names)
		assert.Contains(t, buf.String(), "[PASS] snapshot_load")
	})

	t.Run("missing snapshot skips dependent checks", func(t *testing.T) {
		cfg := testConfig(filepath.Join(t.TempDir(), "missing"))
		buf := &bytes.Buffer{}
		c := New(WithOutput(buf), WithLogDir(t.TempDir()))

		results := c.RunAll(context.Background(), cfg)
		c.PrintResults(results)

		assert.True(t, c.HasCriticalFailures(results))
		assert.Len(t, results, 4)
		assert.Contains(t, buf.String(), "Status: FAILED")
		assert.Contains(t, buf.String(), "1 error(s)")
	})
}
