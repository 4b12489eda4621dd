// File: internal/services/ai/errors.go
package ai

import (
	"errors"
	"fmt"
)

type ErrorType string

const (
	ErrTypeConfig      ErrorType = "CONFIG"
	ErrTypeNetwork     ErrorType = "NETWORK"
	ErrTypeProvider    ErrorType = "PROVIDER"
	ErrTypeUpstream    ErrorType = "UPSTREAM"
	ErrTypeTimeout     ErrorType = "TIMEOUT"
	ErrTypeUnsupported ErrorType = "UNSUPPORTED_ENVIRONMENT"
	ErrTypeValidation  ErrorType = "VALIDATION"
)

type AIError struct {
	Type      ErrorType
	Code      int // upstream HTTP status, when there was one
	Message   string
	Detail    string // upstream response body, verbatim
	Model     string
	Operation string
	Cause     error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("AI %s error in %s: %s (caused by: %v)",
			e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("AI %s error in %s: %s", e.Type, e.Operation, e.Message)
}

func (e *AIError) Unwrap() error { return e.Cause }

func NewConfigError(msg string) *AIError {
	return &AIError{Type: ErrTypeConfig, Message: msg, Operation: "config"}
}

func NewProviderError(operation, msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeProvider, Operation: operation, Message: msg, Cause: cause}
}

// NewUpstreamError records a non-success upstream response.
func NewUpstreamError(operation string, status int, body string) *AIError {
	return &AIError{
		Type:      ErrTypeUpstream,
		Code:      status,
		Operation: operation,
		Message:   fmt.Sprintf("upstream returned status %d", status),
		Detail:    body,
	}
}

func NewUnsupportedError(msg string, cause error) *AIError {
	return &AIError{Type: ErrTypeUnsupported, Operation: "engine", Message: msg, Cause: cause}
}

// IsType reports whether err is an *AIError of the given type.
func IsType(err error, t ErrorType) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr) && aiErr.Type == t
}
