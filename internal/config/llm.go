package config

import (
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig configures the completion client.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // openai-compatible
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	Temperature float64       `yaml:"temperature"`
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    "openai",
		Model:       "gpt-4o",
		BaseURL:     "https://api.openai.com/v1",
		Timeout:     120 * time.Second,
		MaxRetries:  3,
		Temperature: 0.3,
	}
}

// UnmarshalYAML merges file values over the pre-filled defaults, parsing
// the timeout from "120s" style strings.
func (c *LLMConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Provider    *string  `yaml:"provider"`
		APIKey      *string  `yaml:"api_key"`
		Model       *string  `yaml:"model"`
		BaseURL     *string  `yaml:"base_url"`
		Timeout     *string  `yaml:"timeout"`
		MaxRetries  *int     `yaml:"max_retries"`
		Temperature *float64 `yaml:"temperature"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Provider != nil {
		c.Provider = *raw.Provider
	}
	if raw.APIKey != nil {
		c.APIKey = *raw.APIKey
	}
	if raw.Model != nil {
		c.Model = *raw.Model
	}
	if raw.BaseURL != nil {
		c.BaseURL = *raw.BaseURL
	}
	if raw.Timeout != nil {
		d, err := parseDuration(*raw.Timeout)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	if raw.MaxRetries != nil {
		c.MaxRetries = *raw.MaxRetries
	}
	if raw.Temperature != nil {
		c.Temperature = *raw.Temperature
	}
	return nil
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DefaultEmbeddingConfig returns sensible defaults.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Model:   "text-embedding-3-small",
		BaseURL: "https://api.openai.com/v1",
		Timeout: 30 * time.Second,
	}
}

// UnmarshalYAML merges file values over the pre-filled defaults.
func (c *EmbeddingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		APIKey  *string `yaml:"api_key"`
		Model   *string `yaml:"model"`
		BaseURL *string `yaml:"base_url"`
		Timeout *string `yaml:"timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.APIKey != nil {
		c.APIKey = *raw.APIKey
	}
	if raw.Model != nil {
		c.Model = *raw.Model
	}
	if raw.BaseURL != nil {
		c.BaseURL = *raw.BaseURL
	}
	if raw.Timeout != nil {
		d, err := parseDuration(*raw.Timeout)
		if err != nil {
			return err
		}
		c.Timeout = d
	}
	return nil
}
