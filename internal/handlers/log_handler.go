package handlers

import (
	"net/http"
	"strings"
)

const maxClientLogMessage = 2000

// FrontendLogPayload defines the structure for logs coming from the browser.
type FrontendLogPayload struct {
	Level   string `json:"level"`             // e.g., "info", "error", "warn"
	Message string `json:"message"`           // The main log message
	Context any    `json:"context,omitempty"` // Optional extra data (e.g., stack trace)
}

// LogHandler is the best-effort sink for client-side log events.
type LogHandler struct {
	logger Logger
}

func NewLogHandler(logger Logger) *LogHandler {
	if logger == nil {
		logger = nopLogger{}
	}
	return &LogHandler{logger: logger}
}

// LogFrontendEvent handles POST /log. Only a malformed body is rejected.
func (h *LogHandler) LogFrontendEvent(w http.ResponseWriter, r *http.Request) {
	var payload FrontendLogPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	msg := payload.Message
	if len(msg) > maxClientLogMessage {
		msg = msg[:maxClientLogMessage]
	}
	kv := []interface{}{"source", "client", "client_message", msg, "context", payload.Context}

	switch strings.ToLower(payload.Level) {
	case "error":
		h.logger.Error("CLIENT_LOG", kv...)
	case "warn", "warning":
		h.logger.Warn("CLIENT_LOG", kv...)
	case "debug":
		h.logger.Debug("CLIENT_LOG", kv...)
	default:
		h.logger.Info("CLIENT_LOG", kv...)
	}

	w.WriteHeader(http.StatusNoContent)
}
