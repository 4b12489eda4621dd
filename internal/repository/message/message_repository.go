// File: internal/repository/message/message_repository.go
package message

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/repository"
)

const maxMessageBytes = 256 * 1024

type gormMessageRepository struct {
	db     *gorm.DB
	logger repository.Logger
}

func NewMessageRepository(db *gorm.DB, logger repository.Logger) MessageRepository {
	if logger == nil {
		logger = repository.NopLogger{}
	}
	return &gormMessageRepository{db: db, logger: logger}
}

func (r *gormMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	if err := validateMessageInput(message); err != nil {
		r.logger.Warn("message validation failed", "error", err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		// content is never logged
		r.logger.Error("database error creating message", "thread_id", message.ThreadID, "error", err)
		return nil, errors.New("database error creating message")
	}

	r.logger.Debug("message created", "message_id", message.ID, "thread_id", message.ThreadID)
	return message, nil
}

// FindByThreadID returns the whole transcript oldest first.
func (r *gormMessageRepository) FindByThreadID(ctx context.Context, threadID string) ([]domain.Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errors.New("invalid thread ID")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at asc, id asc").
		Find(&messages).Error
	if err != nil {
		r.logger.Error("database error finding messages", "thread_id", threadID, "error", err)
		return nil, errors.New("database error fetching messages")
	}
	return messages, nil
}

// FindRecentMessages returns the last limit messages, still oldest first.
func (r *gormMessageRepository) FindRecentMessages(ctx context.Context, threadID string, limit int) ([]domain.Message, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, errors.New("invalid thread ID")
	}
	if limit <= 0 || limit > 1000 {
		return nil, errors.New("invalid limit: must be between 1 and 1000")
	}

	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		r.logger.Error("database error finding recent messages", "thread_id", threadID, "error", err)
		return nil, errors.New("database error fetching recent messages")
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func validateMessageInput(message *domain.Message) error {
	if message == nil {
		return errors.New("message cannot be nil")
	}
	if strings.TrimSpace(message.ThreadID) == "" {
		return errors.New("thread ID is required")
	}
	if !message.Role.Valid() {
		return fmt.Errorf("invalid message role: %q", message.Role)
	}
	if len(message.Content) > maxMessageBytes {
		return errors.New("message content too large")
	}
	return nil
}
