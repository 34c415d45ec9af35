// Package config loads leedrag configuration from defaults, the user config
// file, the project config file and LEEDRAG_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/errors"
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/snapshot"
	"github.com/Aman-CERP/leedrag/internal/store"
	"github.com/Aman-CERP/leedrag/internal/watcher"
)

// ProjectConfigFile is the per-directory config file name.
const ProjectConfigFile = ".leedrag.yaml"

// Config is the complete leedrag configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Snapshot   SnapshotConfig   `yaml:"snapshot" json:"snapshot"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// SnapshotConfig locates the index snapshot and selects its in-memory backends.
type SnapshotConfig struct {
	Dir string `yaml:"dir" json:"dir"`

	// DenseBackend is "flat" (exact) or "hnsw" (approximate).
	DenseBackend   string `yaml:"dense_backend" json:"dense_backend"`
	// LexicalBackend is "bleve" or "sqlite" (FTS5).
	LexicalBackend string `yaml:"lexical_backend" json:"lexical_backend"`

	HNSWM        int `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`

	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`

	// Watch reloads the snapshot when its directory changes (serve only).
	Watch         bool          `yaml:"watch" json:"watch"`
	WatchDebounce time.Duration `yaml:"watch_debounce" json:"watch_debounce"`
	// RetireGrace keeps a replaced snapshot open for in-flight requests.
	RetireGrace   time.Duration `yaml:"retire_grace" json:"retire_grace"`
}

// SearchConfig holds the default search options.
type SearchConfig struct {
	Limit              int           `yaml:"limit" json:"limit"`
	UseQueryExpansion  bool          `yaml:"use_query_expansion" json:"use_query_expansion"`
	MaxSubqueries      int           `yaml:"max_subqueries" json:"max_subqueries"`
	UseHybrid          bool          `yaml:"use_hybrid" json:"use_hybrid"`
	FusionMethod       string        `yaml:"fusion_method" json:"fusion_method"`
	DenseWeight        float64       `yaml:"dense_weight" json:"dense_weight"`
	LexicalWeight      float64       `yaml:"lexical_weight" json:"lexical_weight"`
	RRFK               int           `yaml:"rrf_k" json:"rrf_k"`
	UseGrouping        bool          `yaml:"use_grouping" json:"use_grouping"`
	TopCredits         int           `yaml:"top_credits" json:"top_credits"`
	MaxChunksPerCredit int           `yaml:"max_chunks_per_credit" json:"max_chunks_per_credit"`
	DedupThreshold     float64       `yaml:"dedup_threshold" json:"dedup_threshold"`
	DedupRuleOrder     []string      `yaml:"dedup_rule_order" json:"dedup_rule_order"`
	CandidatesPerList  int           `yaml:"candidates_per_list" json:"candidates_per_list"`
	DocTypes           []string      `yaml:"doc_types,omitempty" json:"doc_types,omitempty"`
	BackendTimeout     time.Duration `yaml:"backend_timeout" json:"backend_timeout"`
	MaxConcurrency     int           `yaml:"max_concurrency" json:"max_concurrency"`
}

// EmbeddingsConfig configures the query embedder. The model must match the
// one the snapshot was built with.
type EmbeddingsConfig struct {
	// Provider is "static" or "openai".
	Provider   string        `yaml:"provider" json:"provider"`
	Model      string        `yaml:"model" json:"model"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env" json:"api_key_env"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport   string `yaml:"transport" json:"transport"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
	// MetricsAddr enables the Prometheus endpoint when non-empty, e.g. "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	opts := search.DefaultOptions()
	rules := make([]string, len(opts.DedupRuleOrder))
	for i, r := range opts.DedupRuleOrder {
		rules[i] = string(r)
	}

	return &Config{
		Version: 1,
		Snapshot: SnapshotConfig{
			Dir:            defaultSnapshotDir(),
			DenseBackend:   string(store.DenseBackendFlat),
			LexicalBackend: string(store.BM25BackendBleve),
			LockTimeout:    snapshot.DefaultLockTimeout,
			Watch:          true,
			WatchDebounce:  500 * time.Millisecond,
			RetireGrace:    snapshot.DefaultRetireGrace,
		},
		Search: SearchConfig{
			Limit:              opts.Limit,
			UseQueryExpansion:  opts.UseQueryExpansion,
			MaxSubqueries:      opts.MaxSubqueries,
			UseHybrid:          opts.UseHybrid,
			FusionMethod:       string(opts.FusionMethod),
			DenseWeight:        opts.DenseWeight,
			LexicalWeight:      opts.LexicalWeight,
			RRFK:               opts.RRFK,
			UseGrouping:        opts.UseGrouping,
			TopCredits:         opts.TopCredits,
			MaxChunksPerCredit: opts.MaxChunksPerCredit,
			DedupThreshold:     opts.DedupThreshold,
			DedupRuleOrder:     rules,
			CandidatesPerList:  opts.CandidatesPerList,
			BackendTimeout:     opts.BackendTimeout,
			MaxConcurrency:     opts.MaxConcurrency,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   string(embed.ProviderStatic),
			Dimensions: embed.DefaultDimensions,
			APIKeyEnv:  "OPENAI_API_KEY",
			Timeout:    10 * time.Second,
			MaxRetries: 2,
			CacheSize:  1000,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// defaultSnapshotDir returns ~/.leedrag/snapshot.
func defaultSnapshotDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".leedrag", "snapshot")
	}
	return filepath.Join(home, ".leedrag", "snapshot")
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/leedrag/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/leedrag/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "leedrag", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "leedrag", "config.yaml")
	}
	return filepath.Join(home, ".config", "leedrag", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for dir, in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/leedrag/config.yaml)
//  3. Project config (.leedrag.yaml in dir)
//  4. Environment variables (LEEDRAG_*)
//
// The result is validated.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile loads .leedrag.yaml, or .leedrag.yml as a fallback.
func (c *Config) loadFromFile(dir string) error {
	for _, name := range []string{ProjectConfigFile, ".leedrag.yml"} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return c.loadYAML(path)
		}
	}
	return nil
}

// loadYAML decodes path over the current values. Keys absent from the file
// keep their current value, so explicit false and zero are honored.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// envOverride binds one LEEDRAG_* variable to a setter.
type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"LEEDRAG_SNAPSHOT_DIR", func(c *Config, v string) error { c.Snapshot.Dir = v; return nil }},
	{"LEEDRAG_DENSE_BACKEND", func(c *Config, v string) error { c.Snapshot.DenseBackend = v; return nil }},
	{"LEEDRAG_LEXICAL_BACKEND", func(c *Config, v string) error { c.Snapshot.LexicalBackend = v; return nil }},
	{"LEEDRAG_WATCH", func(c *Config, v string) error { return parseBool(v, &c.Snapshot.Watch) }},
	{"LEEDRAG_FUSION_METHOD", func(c *Config, v string) error { c.Search.FusionMethod = v; return nil }},
	{"LEEDRAG_DENSE_WEIGHT", func(c *Config, v string) error { return parseFloat(v, &c.Search.DenseWeight) }},
	{"LEEDRAG_LEXICAL_WEIGHT", func(c *Config, v string) error { return parseFloat(v, &c.Search.LexicalWeight) }},
	{"LEEDRAG_RRF_K", func(c *Config, v string) error { return parseInt(v, &c.Search.RRFK) }},
	{"LEEDRAG_TOP_CREDITS", func(c *Config, v string) error { return parseInt(v, &c.Search.TopCredits) }},
	{"LEEDRAG_DEDUP_THRESHOLD", func(c *Config, v string) error { return parseFloat(v, &c.Search.DedupThreshold) }},
	{"LEEDRAG_BACKEND_TIMEOUT", func(c *Config, v string) error { return parseDuration(v, &c.Search.BackendTimeout) }},
	{"LEEDRAG_EMBEDDINGS_PROVIDER", func(c *Config, v string) error { c.Embeddings.Provider = v; return nil }},
	{"LEEDRAG_EMBEDDINGS_MODEL", func(c *Config, v string) error { c.Embeddings.Model = v; return nil }},
	{"LEEDRAG_EMBEDDINGS_BASE_URL", func(c *Config, v string) error { c.Embeddings.BaseURL = v; return nil }},
	{"LEEDRAG_LOG_LEVEL", func(c *Config, v string) error { c.Server.LogLevel = v; return nil }},
	{"LEEDRAG_METRICS_ADDR", func(c *Config, v string) error { c.Server.MetricsAddr = v; return nil }},
}

// applyEnvOverrides applies LEEDRAG_* environment variables. Empty values are ignored.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		v := strings.TrimSpace(os.Getenv(o.name))
		if v == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			return errors.ConfigError(fmt.Sprintf("invalid value for %s", o.name), err).
				WithDetail("env", o.name)
		}
	}
	return nil
}

func parseFloat(s string, dst *float64) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseInt(s string, dst *int) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseBool(s string, dst *bool) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func parseDuration(s string, dst *time.Duration) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

// Validate checks the configuration. Errors are configuration errors
// (ERR_102 or, for search options, ERR_401).
func (c *Config) Validate() error {
	if c.Snapshot.Dir == "" {
		return errors.ConfigError("snapshot.dir must be set", nil)
	}
	if !store.ValidDenseBackend(c.Snapshot.DenseBackend) {
		return errors.ConfigError(fmt.Sprintf("snapshot.dense_backend must be 'flat' or 'hnsw', got %q", c.Snapshot.DenseBackend), nil)
	}
	if !store.ValidBM25Backend(c.Snapshot.LexicalBackend) {
		return errors.ConfigError(fmt.Sprintf("snapshot.lexical_backend must be 'bleve' or 'sqlite', got %q", c.Snapshot.LexicalBackend), nil)
	}
	if c.Snapshot.LockTimeout < 0 || c.Snapshot.WatchDebounce < 0 || c.Snapshot.RetireGrace < 0 {
		return errors.ConfigError("snapshot durations must not be negative", nil)
	}

	if err := c.SearchOptions().Validate(); err != nil {
		return err
	}

	switch embed.ProviderType(strings.ToLower(c.Embeddings.Provider)) {
	case embed.ProviderStatic, "":
	case embed.ProviderOpenAI:
		if c.Embeddings.Model == "" {
			return errors.ConfigError("embeddings.model is required for the openai provider", nil)
		}
		if c.Embeddings.Dimensions <= 0 {
			return errors.ConfigError("embeddings.dimensions is required for the openai provider", nil)
		}
	default:
		return errors.ConfigError(fmt.Sprintf("embeddings.provider must be 'static' or 'openai', got %q", c.Embeddings.Provider), nil)
	}
	if c.Embeddings.Dimensions < 0 || c.Embeddings.CacheSize < 0 || c.Embeddings.MaxRetries < 0 {
		return errors.ConfigError("embeddings dimensions, cache_size and max_retries must not be negative", nil)
	}

	if !strings.EqualFold(c.Server.Transport, "stdio") {
		return errors.ConfigError(fmt.Sprintf("server.transport must be 'stdio', got %q", c.Server.Transport), nil)
	}
	switch strings.ToLower(c.Server.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.ConfigError(fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel), nil)
	}

	return nil
}

// SearchOptions converts the search section into request options.
func (c *Config) SearchOptions() search.Options {
	s := c.Search
	rules := make([]search.DedupRule, len(s.DedupRuleOrder))
	for i, r := range s.DedupRuleOrder {
		rules[i] = search.DedupRule(strings.ToLower(strings.TrimSpace(r)))
	}
	var docTypes []store.DocType
	for _, d := range s.DocTypes {
		docTypes = append(docTypes, store.DocType(strings.ToLower(strings.TrimSpace(d))))
	}

	return search.Options{
		Limit:              s.Limit,
		UseQueryExpansion:  s.UseQueryExpansion,
		MaxSubqueries:      s.MaxSubqueries,
		UseHybrid:          s.UseHybrid,
		FusionMethod:       search.FusionMethod(strings.ToLower(s.FusionMethod)),
		DenseWeight:        s.DenseWeight,
		LexicalWeight:      s.LexicalWeight,
		RRFK:               s.RRFK,
		UseGrouping:        s.UseGrouping,
		TopCredits:         s.TopCredits,
		MaxChunksPerCredit: s.MaxChunksPerCredit,
		DedupThreshold:     s.DedupThreshold,
		DedupRuleOrder:     rules,
		CandidatesPerList:  s.CandidatesPerList,
		DocTypes:           docTypes,
		BackendTimeout:     s.BackendTimeout,
		MaxConcurrency:     s.MaxConcurrency,
	}
}

// EmbedConfig converts the embeddings section for embed.NewEmbedder.
func (c *Config) EmbedConfig() embed.Config {
	e := c.Embeddings
	return embed.Config{
		Provider:   embed.ProviderType(strings.ToLower(e.Provider)),
		Model:      e.Model,
		BaseURL:    e.BaseURL,
		APIKeyEnv:  e.APIKeyEnv,
		Dimensions: e.Dimensions,
		Timeout:    e.Timeout,
		MaxRetries: e.MaxRetries,
		CacheSize:  e.CacheSize,
	}
}

// LoadOptions converts the snapshot section for snapshot.Load.
func (c *Config) LoadOptions() snapshot.LoadOptions {
	return snapshot.LoadOptions{
		BuildOptions: snapshot.BuildOptions{
			DenseBackend:   c.Snapshot.DenseBackend,
			LexicalBackend: c.Snapshot.LexicalBackend,
			HNSWM:          c.Snapshot.HNSWM,
			HNSWEfSearch:   c.Snapshot.HNSWEfSearch,
		},
		LockTimeout: c.Snapshot.LockTimeout,
	}
}

// WatchOptions converts the snapshot section for the directory watcher.
func (c *Config) WatchOptions() watcher.Options {
	opts := watcher.DefaultOptions()
	if c.Snapshot.WatchDebounce > 0 {
		opts.DebounceWindow = c.Snapshot.WatchDebounce
	}
	return opts
}

// WriteYAML writes the configuration to a YAML file, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
