// File: internal/handlers/helpers.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iyunix/oni-chat/internal/services/ai"
	"github.com/iyunix/oni-chat/internal/services/chat"
	"github.com/iyunix/oni-chat/internal/turn"
)

const maxBodyBytes = 1 << 20

// Logger defines the logging interface used by handlers.
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

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

// writeServiceError maps service errors onto HTTP responses. Anything it does
// not recognise is logged and reported as internal_error with no detail.
func writeServiceError(w http.ResponseWriter, logger Logger, op string, err error) {
	var aiErr *ai.AIError
	if errors.As(err, &aiErr) {
		switch aiErr.Type {
		case ai.ErrTypeConfig:
			logger.Error("upstream not configured", "op", op, "error", err)
			writeError(w, aiErr.Message, http.StatusInternalServerError)
			return
		case ai.ErrTypeUpstream:
			logger.Warn("upstream error", "op", op, "status", aiErr.Code)
			writeJSON(w, http.StatusBadGateway, map[string]string{
				"error":  "upstream_error",
				"detail": aiErr.Detail,
			})
			return
		case ai.ErrTypeTimeout:
			logger.Warn("upstream timeout", "op", op, "error", err)
			writeError(w, "upstream_timeout", http.StatusGatewayTimeout)
			return
		case ai.ErrTypeValidation:
			writeError(w, aiErr.Message, http.StatusBadRequest)
			return
		}
	}

	var chatErr *chat.ChatError
	if errors.As(err, &chatErr) {
		switch chatErr.Type {
		case chat.ErrTypeValidation:
			writeError(w, chatErr.Message, http.StatusBadRequest)
			return
		case chat.ErrTypeNotFound:
			writeError(w, "thread not found", http.StatusNotFound)
			return
		case chat.ErrTypeForbidden:
			writeError(w, "forbidden", http.StatusForbidden)
			return
		case chat.ErrTypeConflict:
			writeError(w, chatErr.Message, http.StatusConflict)
			return
		}
	}

	switch {
	case errors.Is(err, turn.ErrTurnInProgress):
		writeError(w, turn.ErrTurnInProgress.Error(), http.StatusConflict)
		return
	case errors.Is(err, turn.ErrEmptyMessage):
		writeError(w, turn.ErrEmptyMessage.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("request deadline exceeded", "op", op)
		writeError(w, "upstream_timeout", http.StatusGatewayTimeout)
		return
	}

	logger.Error("internal error", "op", op, "error", err)
	writeError(w, "internal_error", http.StatusInternalServerError)
}
