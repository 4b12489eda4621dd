// File: internal/services/chat/interface.go
package chat

import (
	"context"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/services/ai"
)

// Upstream is the model API the relay forwards to.
type Upstream interface {
	ai.Completer
	CheckConfigured() error
}

// RelayProvider answers one stateless chat request
type RelayProvider interface {
	Relay(ctx context.Context, req RelayRequest) (*RelayReply, error)
}

// ThreadProvider handles owner-scoped thread operations
type ThreadProvider interface {
	CreateThread(ctx context.Context, ownerID, title string) (*domain.Thread, error)
	GetUserThreads(ctx context.Context, ownerID string) ([]domain.Thread, error)
	GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error)
	GetThreadMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error)
	GetRecentMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error)
	AddMessage(ctx context.Context, ownerID, threadID string, role domain.Role, content string) (*domain.Message, error)
	SaveReply(ctx context.Context, ownerID, threadID, content string) (*domain.Message, error)
	DeleteThread(ctx context.Context, ownerID, threadID string) error
}
