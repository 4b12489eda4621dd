// File: internal/repository/thread/thread_repository.go
package thread

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/repository"
)

var ErrThreadNotFound = errors.New("thread not found")
var ErrUnauthorizedAccess = errors.New("unauthorized access to thread")

type gormThreadRepository struct {
	db     *gorm.DB
	logger repository.Logger
}

func NewThreadRepository(db *gorm.DB, logger repository.Logger) ThreadRepository {
	if logger == nil {
		logger = repository.NopLogger{}
	}
	return &gormThreadRepository{db: db, logger: logger}
}

// Create - validates ownership fields before inserting
func (r *gormThreadRepository) Create(ctx context.Context, thread *domain.Thread) (*domain.Thread, error) {
	if err := validateThreadInput(thread); err != nil {
		r.logger.Warn("thread validation failed", "error", err)
		return nil, err
	}

	if err := r.db.WithContext(ctx).Omit("Messages").Create(thread).Error; err != nil {
		r.logger.Error("database error creating thread", "owner_id", thread.OwnerID, "error", err)
		return nil, errors.New("database error creating thread")
	}

	r.logger.Info("thread created", "thread_id", thread.ID, "owner_id", thread.OwnerID)
	return thread, nil
}

func (r *gormThreadRepository) FindByID(ctx context.Context, id string) (*domain.Thread, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("invalid thread ID")
	}

	var thread domain.Thread
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		r.logger.Error("database error finding thread", "thread_id", id, "error", err)
		return nil, errors.New("database error fetching thread")
	}
	return &thread, nil
}

// FindByOwnerID - most recently created first
func (r *gormThreadRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]domain.Thread, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.New("invalid owner ID")
	}

	var threads []domain.Thread
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&threads).Error
	if err != nil {
		r.logger.Error("database error listing threads", "owner_id", ownerID, "error", err)
		return nil, errors.New("database error fetching threads")
	}
	return threads, nil
}

func (r *gormThreadRepository) UpdateTitle(ctx context.Context, id, title string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "updated_at": time.Now()})
	if result.Error != nil {
		r.logger.Error("database error updating title", "thread_id", id, "error", result.Error)
		return errors.New("database error updating thread title")
	}
	if result.RowsAffected == 0 {
		return ErrThreadNotFound
	}
	return nil
}

func (r *gormThreadRepository) TouchUpdatedAt(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Update("updated_at", time.Now())
	if result.Error != nil {
		r.logger.Error("database error updating timestamp", "thread_id", id, "error", result.Error)
		return errors.New("database error updating thread timestamp")
	}
	if result.RowsAffected == 0 {
		return ErrThreadNotFound
	}
	return nil
}

// Delete removes the thread and its messages in one transaction. Only rows
// owned by ownerID are touched.
func (r *gormThreadRepository) Delete(ctx context.Context, id, ownerID string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(ownerID) == "" {
		return errors.New("invalid thread ID or owner ID")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&domain.Thread{}).Where("id = ? AND owner_id = ?", id, ownerID).Count(&owned).Error; err != nil {
			r.logger.Error("database error checking thread owner", "thread_id", id, "error", err)
			return errors.New("database error deleting thread")
		}
		if owned == 0 {
			return ErrUnauthorizedAccess
		}
		if err := tx.Where("thread_id = ?", id).Delete(&domain.Message{}).Error; err != nil {
			r.logger.Error("database error deleting thread messages", "thread_id", id, "error", err)
			return errors.New("database error deleting thread messages")
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&domain.Thread{}).Error; err != nil {
			r.logger.Error("database error deleting thread", "thread_id", id, "error", err)
			return errors.New("database error deleting thread")
		}
		r.logger.Info("thread deleted", "thread_id", id, "owner_id", ownerID)
		return nil
	})
}

func validateThreadInput(thread *domain.Thread) error {
	if thread == nil {
		return errors.New("thread cannot be nil")
	}
	if strings.TrimSpace(thread.ID) == "" {
		return errors.New("thread ID is required")
	}
	if strings.TrimSpace(thread.OwnerID) == "" {
		return errors.New("owner ID is required")
	}
	if len(thread.Title) > 255 {
		return errors.New("thread title too long")
	}
	return nil
}
