package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/services/ai"
)

// RelayRequest is the body of POST /chat.
type RelayRequest struct {
	Messages     []ai.Message `json:"messages"`
	Temperature  *float32     `json:"temperature,omitempty"`
	MaxTokens    *int         `json:"max_tokens,omitempty"`
	SystemPrompt string       `json:"systemPrompt,omitempty"`
}

// RelayReply is the body returned by POST /chat.
type RelayReply struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// RelayService attaches the system prompt, trims history and forwards the
// conversation upstream. It keeps no state between calls.
type RelayService struct {
	config   *Config
	upstream Upstream
	helper   *ContextHelper
	logger   Logger
}

func NewRelayService(config *Config, upstream Upstream, logger Logger) (*RelayService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, &ChatError{Type: ErrTypeConfig, Operation: "config", Message: err.Error()}
	}
	if upstream == nil {
		return nil, NewValidationError("constructor", "upstream is required")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &RelayService{
		config:   config,
		upstream: upstream,
		helper:   NewContextHelper(config, logger),
		logger:   logger,
	}, nil
}

// Relay forwards one request. A missing credential fails before anything is
// sent; an empty upstream reply becomes the fallback reply.
func (s *RelayService) Relay(ctx context.Context, req RelayRequest) (*RelayReply, error) {
	if err := s.upstream.CheckConfigured(); err != nil {
		return nil, err
	}
	for i, m := range req.Messages {
		if !m.Role.Valid() {
			return nil, NewValidationError("relay", fmt.Sprintf("message %d has invalid role %q", i, m.Role))
		}
	}

	prompt := s.helper.ResolveSystemPrompt(req.SystemPrompt)
	history := ai.WithSystemPrompt(s.helper.TrimHistory(req.Messages), prompt)

	reply, err := s.upstream.Complete(ctx, history, ai.Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, nil)
	if err != nil {
		return nil, err
	}
	// a whitespace-only reply counts as absent
	if strings.TrimSpace(reply) == "" {
		reply = s.config.FallbackReply
	}
	s.logger.Debug("relay completed", "history_length", len(history), "reply_length", len(reply))
	return &RelayReply{Role: domain.RoleAssistant, Content: reply}, nil
}

// Complete lets server-side turns go through the same prompt and trimming
// rules as POST /chat.
func (s *RelayService) Complete(ctx context.Context, messages []ai.Message, opts ai.Options, onDelta ai.DeltaFunc) (string, error) {
	reply, err := s.Relay(ctx, RelayRequest{
		Messages:     messages,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
		SystemPrompt: opts.SystemPrompt,
	})
	if err != nil {
		return "", err
	}
	if onDelta != nil {
		onDelta(reply.Content, reply.Content)
	}
	return reply.Content, nil
}
