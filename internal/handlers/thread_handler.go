// File: internal/handlers/thread_handler.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/oni-chat/internal/domain"
	"github.com/iyunix/oni-chat/internal/dtos"
	"github.com/iyunix/oni-chat/internal/export"
	"github.com/iyunix/oni-chat/internal/middleware"
	"github.com/iyunix/oni-chat/internal/services/chat"
	"github.com/iyunix/oni-chat/internal/turn"
)

// ThreadService is the owner-scoped thread API the handler needs.
type ThreadService interface {
	chat.ThreadProvider
	GetThreadWithMessages(ctx context.Context, ownerID, threadID string) (*domain.Thread, error)
}

// ThreadHandler serves the authenticated thread routes.
type ThreadHandler struct {
	threads     ThreadService
	turns       *turn.Controller
	turnTimeout time.Duration
	logger      Logger
}

func NewThreadHandler(threads ThreadService, turns *turn.Controller, turnTimeout time.Duration, logger Logger) (*ThreadHandler, error) {
	if threads == nil {
		return nil, errors.New("thread service cannot be nil")
	}
	if turns == nil {
		return nil, errors.New("turn controller cannot be nil")
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &ThreadHandler{threads: threads, turns: turns, turnTimeout: turnTimeout, logger: logger}, nil
}

func ownerID(r *http.Request) (string, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// ListThreads handles GET /threads.
func (h *ThreadHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	threads, err := h.threads.GetUserThreads(r.Context(), owner)
	if err != nil {
		writeServiceError(w, h.logger, "list_threads", err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToThreadResponses(threads))
}

// CreateThread handles POST /threads. An empty body is allowed.
func (h *ThreadHandler) CreateThread(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.CreateThreadRequestDTO
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	created, err := h.threads.CreateThread(r.Context(), owner, req.Title)
	if err != nil {
		writeServiceError(w, h.logger, "create_thread", err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ToThreadResponse(created))
}

// DeleteThread handles DELETE /threads/{id}.
func (h *ThreadHandler) DeleteThread(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.threads.DeleteThread(r.Context(), owner, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, h.logger, "delete_thread", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMessages handles GET /threads/{id}/messages.
func (h *ThreadHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	messages, err := h.threads.GetThreadMessages(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, "get_messages", err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToMessageResponses(messages))
}

// AddMessage handles POST /threads/{id}/messages.
func (h *ThreadHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.AddMessageRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	saved, err := h.threads.AddMessage(r.Context(), owner, mux.Vars(r)["id"], req.Role, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, "add_message", err)
		return
	}
	writeJSON(w, http.StatusCreated, dtos.ToMessageResponse(saved))
}

// Reply handles POST /threads/{id}/reply: stores the user message, asks the
// model with the stored history and stores the answer.
func (h *ThreadHandler) Reply(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req dtos.ReplyRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if h.turnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.turnTimeout)
		defer cancel()
	}

	threadID := mux.Vars(r)["id"]
	reply, err := h.turns.Send(ctx, chat.NewOwnerConversation(h.threads, owner), threadID, req.Content, nil)
	if err != nil {
		writeServiceError(w, h.logger, "reply", err)
		return
	}
	writeJSON(w, http.StatusOK, dtos.ToMessageResponse(reply))
}

// Transcript handles GET /threads/{id}/transcript?format=md|html.
func (h *ThreadHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerID(r)
	if !ok {
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	thread, err := h.threads.GetThreadWithMessages(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, h.logger, "transcript", err)
		return
	}

	out, err := export.Render(thread, format)
	if err != nil {
		writeServiceError(w, h.logger, "transcript", err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(out))
}
