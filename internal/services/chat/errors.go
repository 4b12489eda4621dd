// File: internal/services/chat/errors.go
package chat

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeConfig     ErrorType = "CONFIG"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeForbidden  ErrorType = "FORBIDDEN"
	ErrTypeConflict   ErrorType = "CONFLICT"
)

type ChatError struct {
	Type      ErrorType
	Operation string
	Message   string
	ThreadID  string
	OwnerID   string
	Cause     error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("Chat %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("Chat %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *ChatError) Unwrap() error { return e.Cause }

func NewValidationError(operation, msg string) *ChatError {
	return &ChatError{Type: ErrTypeValidation, Operation: operation, Message: msg}
}

func NewStorageError(operation, msg string, cause error) *ChatError {
	return &ChatError{Type: ErrTypeStorage, Operation: operation, Message: msg, Cause: cause}
}

func NewNotFoundError(operation, threadID string) *ChatError {
	return &ChatError{Type: ErrTypeNotFound, Operation: operation, Message: "thread not found", ThreadID: threadID}
}

func NewForbiddenError(ownerID, threadID string) *ChatError {
	return &ChatError{
		Type:      ErrTypeForbidden,
		Operation: "authorization",
		Message:   "thread belongs to another user",
		OwnerID:   ownerID,
		ThreadID:  threadID,
	}
}

// IsType reports whether err is a *ChatError of the given type.
func IsType(err error, t ErrorType) bool {
	var chatErr *ChatError
	return errors.As(err, &chatErr) && chatErr.Type == t
}
