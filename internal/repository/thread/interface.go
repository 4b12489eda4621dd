package thread

import (
	"context"

	"github.com/iyunix/oni-chat/internal/domain"
)

// ThreadRepository handles thread data operations.
type ThreadRepository interface {
	Create(ctx context.Context, thread *domain.Thread) (*domain.Thread, error)
	FindByID(ctx context.Context, id string) (*domain.Thread, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]domain.Thread, error)
	UpdateTitle(ctx context.Context, id, title string) error
	TouchUpdatedAt(ctx context.Context, id string) error
	Delete(ctx context.Context, id, ownerID string) error
}
