// File: internal/services/chat_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/repository/message"
	"github.com/iyunix/oni-chat/internal/repository/thread"
	chatservice "github.com/iyunix/oni-chat/internal/services/chat"
)

const maxTitleLength = 100

// ChatService implements owner-scoped thread CRUD over the gorm repositories.
type ChatService struct {
	threadRepo  thread.ThreadRepository
	messageRepo message.MessageRepository
	config      *chatservice.Config
	newID       func() string
	logger      Logger
}

func NewChatService(
	threadRepo thread.ThreadRepository,
	messageRepo message.MessageRepository,
	config *chatservice.Config,
	logger Logger,
) (*ChatService, error) {
	if threadRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "thread repository is required")
	}
	if messageRepo == nil {
		return nil, chatservice.NewValidationError("constructor", "message repository is required")
	}
	if config == nil {
		config = chatservice.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, chatservice.NewValidationError("config", err.Error())
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	return &ChatService{
		threadRepo:  threadRepo,
		messageRepo: messageRepo,
		config:      config,
		newID:       uuid.NewString,
		logger:      logger,
	}, nil
}

var _ chatservice.ThreadProvider = (*ChatService)(nil)

func (s *ChatService) CreateThread(ctx context.Context, ownerID, title string) (*domain.Thread, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultThreadTitle
	}
	title = chatservice.TruncateText(title, maxTitleLength)

	created, err := s.threadRepo.Create(ctx, &domain.Thread{
		ID:      s.newID(),
		OwnerID: ownerID,
		Title:   title,
	})
	if err != nil {
		return nil, chatservice.NewStorageError("create_thread", "could not create thread", err)
	}
	return created, nil
}

func (s *ChatService) GetUserThreads(ctx context.Context, ownerID string) ([]domain.Thread, error) {
	threads, err := s.threadRepo.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, chatservice.NewStorageError("list_threads", "could not list threads", err)
	}
	return threads, nil
}

// GetThread returns the thread when ownerID owns it. Unknown ids are
// NOT_FOUND and foreign ones FORBIDDEN.
func (s *ChatService) GetThread(ctx context.Context, ownerID, threadID string) (*domain.Thread, error) {
	record, err := s.threadRepo.FindByID(ctx, threadID)
	if errors.Is(err, thread.ErrThreadNotFound) {
		return nil, chatservice.NewNotFoundError("get_thread", threadID)
	}
	if err != nil {
		return nil, chatservice.NewStorageError("get_thread", "could not load thread", err)
	}
	if record.OwnerID != ownerID {
		s.logger.Warn("thread access denied", "thread_id", threadID, "owner_id", ownerID)
		return nil, chatservice.NewForbiddenError(ownerID, threadID)
	}
	return record, nil
}

func (s *ChatService) GetThreadMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error) {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByThreadID(ctx, threadID)
	if err != nil {
		return nil, chatservice.NewStorageError("get_messages", "could not load messages", err)
	}
	return messages, nil
}

// GetThreadWithMessages loads an owned thread together with its transcript.
func (s *ChatService) GetThreadWithMessages(ctx context.Context, ownerID, threadID string) (*domain.Thread, error) {
	record, err := s.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindByThreadID(ctx, threadID)
	if err != nil {
		return nil, chatservice.NewStorageError("get_messages", "could not load messages", err)
	}
	record.Messages = messages
	return record, nil
}

// GetRecentMessages returns the last HistoryLimit messages of an owned
// thread, oldest first.
func (s *ChatService) GetRecentMessages(ctx context.Context, ownerID, threadID string) ([]domain.Message, error) {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return nil, err
	}
	messages, err := s.messageRepo.FindRecentMessages(ctx, threadID, s.config.HistoryLimit)
	if err != nil {
		return nil, chatservice.NewStorageError("get_messages", "could not load messages", err)
	}
	return messages, nil
}

// AddMessage appends client-supplied content to an owned thread, derives the
// title from the first user message and bumps updated_at.
func (s *ChatService) AddMessage(ctx context.Context, ownerID, threadID string, role domain.Role, content string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, chatservice.NewValidationError("add_message", "role must be user or assistant")
	}
	if strings.TrimSpace(content) == "" {
		return nil, chatservice.NewValidationError("add_message", "content cannot be empty")
	}
	if len([]rune(content)) > s.config.MaxContentRunes {
		return nil, chatservice.NewValidationError("add_message", "content too long")
	}
	return s.appendMessage(ctx, ownerID, threadID, role, content)
}

// SaveReply stores a model reply on an owned thread. The client input cap
// does not apply; replies are bounded by the upstream max_tokens.
func (s *ChatService) SaveReply(ctx context.Context, ownerID, threadID, content string) (*domain.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, chatservice.NewValidationError("save_reply", "reply cannot be empty")
	}
	return s.appendMessage(ctx, ownerID, threadID, domain.RoleAssistant, content)
}

func (s *ChatService) appendMessage(ctx context.Context, ownerID, threadID string, role domain.Role, content string) (*domain.Message, error) {
	record, err := s.GetThread(ctx, ownerID, threadID)
	if err != nil {
		return nil, err
	}

	saved, err := s.messageRepo.Create(ctx, &domain.Message{
		ThreadID: threadID,
		Role:     role,
		Content:  content,
	})
	if err != nil {
		return nil, chatservice.NewStorageError("add_message", "could not save message", err)
	}

	if record.ApplyFirstMessage(role, content) {
		err = s.threadRepo.UpdateTitle(ctx, threadID, record.Title)
	} else {
		err = s.threadRepo.TouchUpdatedAt(ctx, threadID)
	}
	if err != nil {
		return nil, chatservice.NewStorageError("add_message", "could not update thread", err)
	}
	return saved, nil
}

func (s *ChatService) DeleteThread(ctx context.Context, ownerID, threadID string) error {
	if _, err := s.GetThread(ctx, ownerID, threadID); err != nil {
		return err
	}
	if err := s.threadRepo.Delete(ctx, threadID, ownerID); err != nil {
		return chatservice.NewStorageError("delete_thread", "could not delete thread", err)
	}
	return nil
}
