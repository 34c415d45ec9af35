package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath(t *testing.T) {
	assert.Equal(t, "leedrag.log", filepath.Base(DefaultLogPath()))
	assert.Contains(t, DefaultLogDir(), ".leedrag")
	assert.Equal(t, "logs", filepath.Base(DefaultLogDir()))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
	assert.Equal(t, "debug", DebugConfig().Level)
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelFromString(tt.in))
		})
	}
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config at warn level
	path := filepath.Join(t.TempDir(), "nested", "test.log")
	cfg := Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}

	// When: logging below and at the threshold
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept", slog.String("credit_id", "EA-p2"))
	cleanup()

	// Then: only the warn record is in the file, as JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)
	entry := ParseLine(lines[0])
	assert.True(t, entry.IsValid)
	assert.Equal(t, "WARN", entry.Level)
	assert.Equal(t, "kept", entry.Msg)
	assert.Equal(t, "EA-p2", entry.Attrs["credit_id"])
}

func TestSetup_StderrOnly(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	cleanup()
}

func TestSetupStdioMode(t *testing.T) {
	// Given: the current default logger is restored afterwards
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	path := filepath.Join(t.TempDir(), "stdio.log")

	// When: stdio logging is installed
	cleanup, err := SetupStdioMode("debug", path)
	require.NoError(t, err)
	slog.Debug("frame", slog.Int("n", 1))
	cleanup()

	// Then: the init record and the debug record land in the file
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stdio logging initialized")
	assert.Contains(t, string(data), `"msg":"frame"`)
}

func TestFindLogFile(t *testing.T) {
	t.Run("explicit path exists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "x.log")
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))
		got, err := FindLogFile(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := FindLogFile(filepath.Join(t.TempDir(), "missing.log"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("default path missing", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		_, err := FindLogFile("")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leedrag.log")
	})
}

func TestEnsureLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureLogDir(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRotatingWriter_Rotation(t *testing.T) {
	// Given: a 1 MB writer keeping two rolled files
	path := filepath.Join(t.TempDir(), "rot.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	w.SetImmediateSync(false)
	defer func() { _ = w.Close() }()

	// When: writing enough for four rollovers
	line := []byte(strings.Repeat("x", 1023) + "\n")
	for range 4 * 1024 {
		_, err := w.Write(line)
		require.NoError(t, err)
	}
	_, err = w.Write(line)
	require.NoError(t, err)

	// Then: the live file plus exactly .1 and .2 exist
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")

	info, err := os.Stat(path + ".1")
	require.NoError(t, err)
	assert.LessOrEqual(t, info.Size(), int64(1024*1024))
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.log")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o644))

	w, err := NewRotatingWriter(path, 1, 1)
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	w.SetImmediateSync(false)

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_, _ = fmt.Fprintf(w, "g%d-%d\n", g, i)
			}
		}()
	}
	wg.Wait()
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 400)
}

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "view.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestParseLine(t *testing.T) {
	entry := ParseLine(`{"time":"2026-03-01T10:00:00.5Z","level":"INFO","msg":"search_completed","results":3}`)
	require.True(t, entry.IsValid)
	assert.Equal(t, "INFO", entry.Level)
	assert.Equal(t, "search_completed", entry.Msg)
	assert.Equal(t, 2026, entry.Time.Year())
	assert.Equal(t, float64(3), entry.Attrs["results"])
	assert.NotContains(t, entry.Attrs, "msg")

	bad := ParseLine("plain text")
	assert.False(t, bad.IsValid)
	assert.Equal(t, "plain text", bad.Raw)
}

func TestViewer_Tail(t *testing.T) {
	path := writeLog(t,
		`{"time":"2026-03-01T10:00:00Z","level":"DEBUG","msg":"one"}`,
		`{"time":"2026-03-01T10:00:01Z","level":"INFO","msg":"two"}`,
		`{"time":"2026-03-01T10:00:02Z","level":"WARN","msg":"three"}`,
		`{"time":"2026-03-01T10:00:03Z","level":"ERROR","msg":"four"}`,
	)

	tests := []struct {
		name    string
		cfg     ViewerConfig
		n       int
		wantMsg []string
	}{
		{"last two", ViewerConfig{}, 2, []string{"three", "four"}},
		{"more than file", ViewerConfig{}, 10, []string{"one", "two", "three", "four"}},
		{"level filter", ViewerConfig{Level: "warn"}, 10, []string{"three", "four"}},
		{"pattern filter", ViewerConfig{Pattern: regexp.MustCompile(`"msg":"t`)}, 10, []string{"two", "three"}},
		{"zero lines", ViewerConfig{}, 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := NewViewer(tt.cfg, nil).Tail(path, tt.n)
			require.NoError(t, err)
			var got []string
			for _, e := range entries {
				got = append(got, e.Msg)
			}
			assert.Equal(t, tt.wantMsg, got)
		})
	}
}

func TestViewer_Tail_MissingFile(t *testing.T) {
	_, err := NewViewer(ViewerConfig{}, nil).Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	require.Error(t, err)
}

func TestViewer_FormatEntry(t *testing.T) {
	v := NewViewer(ViewerConfig{NoColor: true}, nil)

	entry := ParseLine(`{"time":"2026-03-01T10:00:00.123Z","level":"INFO","msg":"search_completed","b":2,"a":"x"}`)
	assert.Equal(t, entry.Time.Format("15:04:05.000")+" INFO  search_completed a=x b=2", v.FormatEntry(entry))

	raw := ParseLine("not json")
	assert.Equal(t, "not json", v.FormatEntry(raw))

	colored := NewViewer(ViewerConfig{}, nil).FormatEntry(entry)
	assert.Contains(t, colored, "search_completed")
}

func TestViewer_Print(t *testing.T) {
	var sb strings.Builder
	v := NewViewer(ViewerConfig{NoColor: true}, &sb)
	v.Print([]LogEntry{{Raw: "a"}, {Raw: "b"}})
	assert.Equal(t, "a\nb\n", sb.String())
}

func TestViewer_Follow(t *testing.T) {
	// Given: an existing log whose old lines must not be replayed
	path := writeLog(t, `{"level":"INFO","msg":"old"}`)
	v := NewViewer(ViewerConfig{Level: "info"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// When: new lines are appended after following starts
	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"level":"DEBUG","msg":"filtered"}` + "\n" + `{"level":"WARN","msg":"new"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Then: only the new line that passes the filter arrives
	select {
	case e := <-entries:
		assert.Equal(t, "new", e.Msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry followed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Follow did not return after cancel")
	}
}
