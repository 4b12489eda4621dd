// File: internal/handlers/relay_handler.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/iyunix/oni-chat/internal/services/chat"
)

// RelayHandler serves POST /chat.
type RelayHandler struct {
	relay  chat.RelayProvider
	logger Logger
}

func NewRelayHandler(relay chat.RelayProvider, logger Logger) (*RelayHandler, error) {
	if relay == nil {
		return nil, errors.New("relay provider cannot be nil")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &RelayHandler{relay: relay, logger: logger}, nil
}

// Chat forwards the posted history upstream and returns the assistant reply.
func (h *RelayHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chat.RelayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	reply, err := h.relay.Relay(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.logger, "relay", err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}
