// Package config loads Owly configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all Owly configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM completion service
	LLM LLMConfig `yaml:"llm"`

	// Embedding service for semantic retrieval
	Embedding EmbeddingConfig `yaml:"embedding"`

	// SQLite storage
	Storage StorageConfig `yaml:"storage"`

	// Passage retrieval
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Agent pipeline tuning
	Agents AgentsConfig `yaml:"agents"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig configures the local SQLite store.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// RetrievalConfig configures passage search.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
	JSONFormat bool            `yaml:"json_format"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:      "owly",
		Version:   "0.1.0",
		LLM:       DefaultLLMConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Storage:   StorageConfig{DatabasePath: filepath.Join(".owly", "owly.db")},
		Retrieval: RetrievalConfig{TopK: 10},
		Agents:    DefaultAgentsConfig(),
		Logging:   LoggingConfig{Level: "info"},
	}
}

// Load reads config from path, falling back to defaults when the file is
// absent. Environment variables override file values for secrets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// parseDuration accepts "30s" style strings and bare nanosecond counts.
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// applyEnvOverrides lets environment variables win over file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OWLY_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = v
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
	if v := os.Getenv("OWLY_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OWLY_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("OWLY_DEBUG"); v == "1" || v == "true" {
		cfg.Logging.DebugMode = true
	}
}
