// File: internal/services/chat/config.go
package chat

import (
	"fmt"
	"time"
)

// DefaultSystemPrompt sets the assistant persona when the caller sends none.
const DefaultSystemPrompt = "You are OniAI, a relaxed and friendly assistant. " +
	"Answer briefly and to the point unless the user asks for more detail or the situation needs an explanation. " +
	"If you are unsure, ask a clarifying question. If you lack the information, say so honestly instead of making things up."

type Config struct {
	// History Configuration
	HistoryLimit    int // Most recent messages forwarded upstream
	MaxContentRunes int // Per-message content cap

	// Prompt Configuration
	DefaultSystemPrompt  string
	MaxSystemPromptRunes int

	// Reply used when the upstream returns no content
	FallbackReply string

	// Bounds a server-side turn, upstream call included
	TurnTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.MaxContentRunes <= 0 {
		return fmt.Errorf("max_content_runes must be positive")
	}
	if c.MaxSystemPromptRunes <= 0 {
		return fmt.Errorf("max_system_prompt_runes must be positive")
	}
	if c.DefaultSystemPrompt == "" {
		return fmt.Errorf("default_system_prompt is required")
	}
	if c.FallbackReply == "" {
		return fmt.Errorf("fallback_reply is required")
	}
	if c.TurnTimeout < 0 {
		return fmt.Errorf("turn_timeout must not be negative")
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		HistoryLimit:         12,
		MaxContentRunes:      4000,
		DefaultSystemPrompt:  DefaultSystemPrompt,
		MaxSystemPromptRunes: 4000,
		FallbackReply:        "Ready to help.",
		TurnTimeout:          90 * time.Second,
	}
}
