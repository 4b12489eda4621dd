// File: internal/services/chat/context.go
package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/iyunix/oni-chat/internal/services/ai"
)

// ContextHelper shapes the conversation that is forwarded upstream.
type ContextHelper struct {
	config *Config
	logger Logger
}

// NewContextHelper creates a new context helper with configuration
func NewContextHelper(config *Config, logger Logger) *ContextHelper {
	return &ContextHelper{
		config: config,
		logger: logger,
	}
}

// ResolveSystemPrompt uses the caller's prompt when it is non-empty, capped
// at MaxSystemPromptRunes, and the configured default otherwise.
func (ch *ContextHelper) ResolveSystemPrompt(requested string) string {
	// a whitespace-only prompt counts as empty
	if strings.TrimSpace(requested) == "" {
		return ch.config.DefaultSystemPrompt
	}
	return TruncateText(requested, ch.config.MaxSystemPromptRunes)
}

// TrimHistory keeps the HistoryLimit most recent messages and caps each
// message's content. The input slice is not modified.
func (ch *ContextHelper) TrimHistory(messages []ai.Message) []ai.Message {
	start := 0
	if len(messages) > ch.config.HistoryLimit {
		start = len(messages) - ch.config.HistoryLimit
		ch.logger.Debug("trimming history",
			"original_length", len(messages),
			"history_limit", ch.config.HistoryLimit,
		)
	}
	out := make([]ai.Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		out = append(out, ai.Message{Role: m.Role, Content: TruncateText(m.Content, ch.config.MaxContentRunes)})
	}
	return out
}

// ---------------- Package-level utility functions ----------------

// TruncateText cuts input to at most maxLen runes.
func TruncateText(input string, maxLen int) string {
	if input == "" || maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(input) <= maxLen {
		return input
	}

	var b strings.Builder
	count := 0

	for _, r := range input {
		if count >= maxLen {
			break
		}
		b.WriteRune(r)
		count++
	}

	return b.String()
}
