// File: internal/domain/thread.go
package domain

import (
	"strings"
	"time"
)

const (
	// DefaultThreadTitle is the title of a thread before its first user message.
	DefaultThreadTitle = "New chat"
	// MaxTitleRunes is how much of the first user message becomes the title.
	MaxTitleRunes = 28
	titleEllipsis = "…"
)

// Thread represents a single conversation thread.
type Thread struct {
	ID        string    `json:"id" gorm:"primaryKey;size:64"`
	OwnerID   string    `json:"owner_id,omitempty" gorm:"index;size:64"` // empty for locally stored threads
	Title     string    `json:"title"`
	Messages  []Message `json:"messages,omitempty" gorm:"foreignKey:ThreadID;references:ID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasDefaultTitle reports whether the title has not been derived yet.
func (t *Thread) HasDefaultTitle() bool {
	return t.Title == "" || t.Title == DefaultThreadTitle
}

// DeriveTitle builds a thread title from the seed text: trimmed, cut to
// MaxTitleRunes with an ellipsis when longer, DefaultThreadTitle when blank.
func DeriveTitle(seed string) string {
	s := strings.TrimSpace(seed)
	if s == "" {
		return DefaultThreadTitle
	}
	runes := []rune(s)
	if len(runes) <= MaxTitleRunes {
		return s
	}
	return string(runes[:MaxTitleRunes]) + titleEllipsis
}

// ApplyFirstMessage sets the title from a user message while the title is
// still the default. It reports whether the title changed.
func (t *Thread) ApplyFirstMessage(role Role, content string) bool {
	if !t.HasDefaultTitle() || role != RoleUser || strings.TrimSpace(content) == "" {
		return false
	}
	t.Title = DeriveTitle(content)
	return true
}
