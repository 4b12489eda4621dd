package domain

import "time"

// KVEntry is one keyed blob of durable local state.
type KVEntry struct {
	Key       string `gorm:"primaryKey;column:slot;size:128"`
	Value     []byte
	UpdatedAt time.Time
}
