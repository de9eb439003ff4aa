package config

import (
	"fmt"
	"os"
)

// EmbeddingConfig configures the embedding provider behind semantic recipe search.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`    // Provider type: "jina", "openai-compatible"
	Model      string `mapstructure:"model"`       // Model name/ID
	APIKey     string `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv  string `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL    string `mapstructure:"base_url"`    // API base URL
	Dimensions int    `mapstructure:"dimensions"`  // Embedding vector dimensions
}

// ResolveEnvVars loads APIKey from APIKeyEnv when it is not set directly.
func (c *EmbeddingConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		c.APIKey = os.Getenv(c.APIKeyEnv)
	}
}

// Validate checks that the embedding configuration has all required fields.
func (c *EmbeddingConfig) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("embedding: model is required")
	}
	if c.Dimensions <= 0 {
		return fmt.Errorf("embedding: dimensions must be positive")
	}
	switch c.Provider {
	case "jina", "openai-compatible":
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	return nil
}

// ValidateWithAPIKey validates the configuration including the API key.
// Use this when the embedding will actually be used (not just configured).
func (c *EmbeddingConfig) ValidateWithAPIKey() error {
	c.ResolveEnvVars()
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("embedding: api_key is required when semantic search is enabled")
	}
	return nil
}
