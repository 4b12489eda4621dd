// File: internal/domain/message.go
package domain

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system" // only ever sent upstream, never stored
)

// Valid reports whether r may be stored in a thread.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a single message within a thread.
type Message struct {
	ID        uint      `json:"id,omitempty" gorm:"primarykey"`
	ThreadID  string    `json:"thread_id,omitempty" gorm:"index;size:64;not null"`
	Role      Role      `json:"role" gorm:"not null"`
	Content   string    `json:"content" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
