package snapshot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File names inside a snapshot directory.
const (
	ManifestFile = "manifest.yaml"
	ChunksFile   = "chunks.json"
	CreditsFile  = "credits.json"
	LockFile     = ".lock"
)

// Manifest describes one snapshot generation.
type Manifest struct {
	Generation     string    `yaml:"generation"`
	EmbeddingModel string    `yaml:"embedding_model"`
	Dimensions     int       `yaml:"dimensions"`
	CreatedAt      time.Time `yaml:"created_at,omitempty"`
	RatingSystem   string    `yaml:"rating_system,omitempty"`
	Version        string    `yaml:"version,omitempty"`
}

// ReadManifest reads and validates a manifest file.
func ReadManifest(path string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if m.Generation == "" {
		return m, fmt.Errorf("%s: generation is required", ManifestFile)
	}
	if m.Dimensions < 0 {
		return m, fmt.Errorf("%s: dimensions must not be negative", ManifestFile)
	}
	return m, nil
}

// WriteManifest writes m as YAML. The offline build and tests use it.
func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
