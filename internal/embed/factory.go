package embed

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// ProviderType represents an embedding provider.
type ProviderType string

const (
	// ProviderStatic uses hash-based embeddings. Offline and deterministic.
	ProviderStatic ProviderType = "static"

	// ProviderOpenAI uses an OpenAI-compatible embeddings endpoint.
	ProviderOpenAI ProviderType = "openai"
)

// Config selects and configures the query embedder.
type Config struct {
	Provider   ProviderType
	Model      string
	BaseURL    string
	APIKeyEnv  string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	// CacheSize is the LRU size for query embeddings. Zero disables caching.
	CacheSize int
}

// NewEmbedder creates an embedder for cfg, wrapped in an LRU cache when CacheSize > 0.
func NewEmbedder(cfg Config) (Embedder, error) {
	var embedder Embedder

	switch ProviderType(strings.ToLower(string(cfg.Provider))) {
	case ProviderStatic, "":
		embedder = NewStaticEmbedder(cfg.Dimensions)

	case ProviderOpenAI:
		var apiKey string
		if cfg.APIKeyEnv != "" {
			apiKey = os.Getenv(cfg.APIKeyEnv)
		}
		oe, err := NewOpenAIEmbedder(OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     apiKey,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		embedder = oe

	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s (valid options: static, openai)", cfg.Provider)
	}

	slog.Debug("embedder_created",
		slog.String("provider", string(cfg.Provider)),
		slog.String("model", embedder.ModelName()),
		slog.Int("dimensions", embedder.Dimensions()))

	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(embedder, cfg.CacheSize), nil
	}
	return embedder, nil
}
