// File: internal/repository/message/interface.go
package message

import (
	"context"

	"github.com/iyunix/oni-chat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) (*domain.Message, error)
	FindByThreadID(ctx context.Context, threadID string) ([]domain.Message, error)
	FindRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error)
}
