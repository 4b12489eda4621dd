// Package turn runs one chat turn at a time per thread: persist the user
// message, ask the model with the stored history, persist the reply.
package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/services/ai"
)

var (
	ErrTurnInProgress = errors.New("turn already in progress")
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrEmptyReply     = errors.New("model returned an empty reply")
)

// State of a thread's turn.
type State int

const (
	Idle State = iota
	Sending
	Replied
	Failed
)

func (s State) String() string {
	switch s {
	case Sending:
		return "sending"
	case Replied:
		return "replied"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Conversation is where a turn keeps its messages. Both the local thread
// store and the owner-scoped server service satisfy it.
type Conversation interface {
	AppendMessage(ctx context.Context, threadID string, role domain.Role, content string) (*domain.Message, error)
	Messages(ctx context.Context, threadID string) ([]domain.Message, error)
}

// Logger defines the logging interface used by the controller.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}

// Controller drives turns against a Completer.
type Controller struct {
	completer ai.Completer
	opts      ai.Options
	logger    Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	outcome  map[string]State
}

func NewController(completer ai.Completer, opts ai.Options, logger Logger) *Controller {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Controller{
		completer: completer,
		opts:      opts,
		logger:    logger,
		inflight:  make(map[string]struct{}),
		outcome:   make(map[string]State),
	}
}

// State reports whether a turn is currently running on threadID. A finished
// turn is Idle again; see LastOutcome.
func (c *Controller) State(threadID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[threadID]; ok {
		return Sending
	}
	return Idle
}

// LastOutcome is Replied or Failed for the most recent finished turn on
// threadID, Sending while one runs, Idle when none ran yet.
func (c *Controller) LastOutcome(threadID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[threadID]; ok {
		return Sending
	}
	return c.outcome[threadID]
}

func (c *Controller) acquire(threadID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.inflight[threadID]; ok {
		return false
	}
	c.inflight[threadID] = struct{}{}
	return true
}

func (c *Controller) release(threadID string, outcome State) {
	c.mu.Lock()
	delete(c.inflight, threadID)
	c.outcome[threadID] = outcome
	c.mu.Unlock()
}

// Send appends text as a user message and returns the persisted assistant
// reply. On failure the user message stays and no assistant message is
// written; the thread returns to Idle either way.
func (c *Controller) Send(ctx context.Context, conv Conversation, threadID, text string, onDelta ai.DeltaFunc) (reply *domain.Message, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !c.acquire(threadID) {
		return nil, ErrTurnInProgress
	}
	defer func() {
		if err != nil {
			c.release(threadID, Failed)
			return
		}
		c.release(threadID, Replied)
	}()

	if _, err := conv.AppendMessage(ctx, threadID, domain.RoleUser, text); err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}

	history, err := conv.Messages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	content, err := c.completer.Complete(ctx, ai.FromDomain(history), c.opts, onDelta)
	if err != nil {
		c.logger.Warn("turn failed", "thread_id", threadID, "error", err)
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyReply
	}

	reply, err = conv.AppendMessage(ctx, threadID, domain.RoleAssistant, content)
	if err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}
	c.logger.Debug("turn replied", "thread_id", threadID, "reply_chars", len([]rune(content)))
	return reply, nil
}
