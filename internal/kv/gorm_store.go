// File: internal/kv/gorm_store.go
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/iyunix/oni-chat/internal/domain"
)

// GormStore keeps each key as one row of the kv_entries table.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore migrates the kv table on db and returns a store over it.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("kv: database is required")
	}
	if err := db.AutoMigrate(&domain.KVEntry{}); err != nil {
		return nil, fmt.Errorf("kv: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// OpenSQLite opens (or creates) a sqlite file at path and returns a store over it.
func OpenSQLite(path string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	return NewGormStore(db)
}

func (s *GormStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var entry domain.KVEntry
	err := s.db.WithContext(ctx).Where("slot = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *GormStore) Put(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	entry := domain.KVEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slot"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).Error
	if err != nil {
		return fmt.Errorf("kv: put %q: %w", key, err)
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := s.db.WithContext(ctx).Where("slot = ?", key).Delete(&domain.KVEntry{}).Error; err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}
