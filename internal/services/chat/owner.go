package chat

import (
	"context"

	"github.com/iyunix/oni-chat/internal/domain"
)

// OwnerConversation binds a ThreadProvider to one owner so server-side turns
// can append and read messages without repeating the owner on every call.
type OwnerConversation struct {
	threads ThreadProvider
	ownerID string
}

func NewOwnerConversation(threads ThreadProvider, ownerID string) *OwnerConversation {
	return &OwnerConversation{threads: threads, ownerID: ownerID}
}

// AppendMessage stores user text under the client input rules and the
// model's reply as produced.
func (c *OwnerConversation) AppendMessage(ctx context.Context, threadID string, role domain.Role, content string) (*domain.Message, error) {
	if role == domain.RoleAssistant {
		return c.threads.SaveReply(ctx, c.ownerID, threadID, content)
	}
	return c.threads.AddMessage(ctx, c.ownerID, threadID, role, content)
}

// Messages returns only the tail the relay forwards upstream.
func (c *OwnerConversation) Messages(ctx context.Context, threadID string) ([]domain.Message, error) {
	return c.threads.GetRecentMessages(ctx, c.ownerID, threadID)
}
