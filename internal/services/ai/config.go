// File: internal/services/ai/config.go
package ai

import (
	"fmt"
	"time"
)

// Config describes the hosted, OpenAI-compatible upstream the relay talks to.
type Config struct {
	// Upstream credential and the env var it comes from, used in error messages.
	APIKey         string
	CredentialName string

	BaseURL string
	Model   string

	// Bounds every upstream call. Zero disables the bound.
	Timeout time.Duration

	// Defaults applied when a caller leaves a parameter unset.
	Temperature float32
	MaxTokens   int
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("upstream base URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("upstream model is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative")
	}
	return nil
}

// DefaultConfig points at Groq's OpenAI-compatible endpoint.
func DefaultConfig() *Config {
	return &Config{
		CredentialName: "GROQ_API_KEY",
		BaseURL:        "https://api.groq.com/openai/v1",
		Model:          "llama-3.1-8b-instant",
		Timeout:        60 * time.Second,
		Temperature:    0.7,
		MaxTokens:      768,
	}
}
