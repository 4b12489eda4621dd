// File: internal/dtos/thread.go
package dtos

import (
	"time"

	"github.com/iyunix/oni-chat/internal/domain"
)

// ThreadResponseDTO defines what fields of a thread are exposed over the API.
// The owner id is never echoed back.
type ThreadResponseDTO struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Messages  []MessageResponseDTO `json:"messages,omitempty"`
	CreatedAt string               `json:"created_at"`
	UpdatedAt string               `json:"updated_at"`
}

type MessageResponseDTO struct {
	ID        uint   `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// CreateThreadRequestDTO is the payload of POST /threads. Title is optional.
type CreateThreadRequestDTO struct {
	Title string `json:"title"`
}

// AddMessageRequestDTO is the payload of POST /threads/{id}/messages.
type AddMessageRequestDTO struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// ReplyRequestDTO is the payload of POST /threads/{id}/reply.
type ReplyRequestDTO struct {
	Content string `json:"content"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ToThreadResponse converts a domain.Thread into its response DTO.
func ToThreadResponse(thread *domain.Thread) ThreadResponseDTO {
	dto := ThreadResponseDTO{
		ID:        thread.ID,
		Title:     thread.Title,
		CreatedAt: formatTime(thread.CreatedAt),
		UpdatedAt: formatTime(thread.UpdatedAt),
	}
	if len(thread.Messages) > 0 {
		dto.Messages = ToMessageResponses(thread.Messages)
	}
	return dto
}

func ToThreadResponses(threads []domain.Thread) []ThreadResponseDTO {
	out := make([]ThreadResponseDTO, 0, len(threads))
	for i := range threads {
		out = append(out, ToThreadResponse(&threads[i]))
	}
	return out
}

func ToMessageResponse(message *domain.Message) MessageResponseDTO {
	return MessageResponseDTO{
		ID:        message.ID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: formatTime(message.CreatedAt),
	}
}

func ToMessageResponses(messages []domain.Message) []MessageResponseDTO {
	out := make([]MessageResponseDTO, 0, len(messages))
	for i := range messages {
		out = append(out, ToMessageResponse(&messages[i]))
	}
	return out
}
