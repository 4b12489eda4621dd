// File: internal/services/ai/interface.go
package ai

import (
	"context"

	"github.com/iyunix/oni-chat/internal/domain"
)

// Message is one entry of the history sent to a model.
type Message struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// Options tune a single completion. Nil pointers fall back to provider defaults.
type Options struct {
	Temperature  *float32
	MaxTokens    *int
	SystemPrompt string
}

// DeltaFunc receives each streamed piece of the reply and the reply so far.
type DeltaFunc func(delta, full string)

// Completer produces one assistant reply for a message history. Streaming
// implementations call onDelta zero or more times before returning.
type Completer interface {
	Complete(ctx context.Context, messages []Message, opts Options, onDelta DeltaFunc) (string, error)
}

// WithSystemPrompt prepends a system message when prompt is non-empty.
func WithSystemPrompt(messages []Message, prompt string) []Message {
	if prompt == "" {
		return messages
	}
	out := make([]Message, 0, len(messages)+1)
	out = append(out, Message{Role: domain.RoleSystem, Content: prompt})
	return append(out, messages...)
}

// FromDomain converts stored thread messages into model history.
func FromDomain(messages []domain.Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out
}
