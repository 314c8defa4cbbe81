package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/plantid/internal/storage"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
)

const defaultPreviewInterval = 100 * time.Millisecond

type Handler struct {
	sessionStore    *storage.SessionStore[*workflow.Workflow]
	previews        *storage.PreviewStore
	newWorkflow     func() *workflow.Workflow
	upgrader        websocket.Upgrader
	previewInterval time.Duration
}

// New wires the handler to the shared preview store and a workflow factory.
func New(previews *storage.PreviewStore, newWorkflow func() *workflow.Workflow) *Handler {
	return &Handler{
		sessionStore:    storage.New[*workflow.Workflow](),
		previews:        previews,
		newWorkflow:     newWorkflow,
		previewInterval: defaultPreviewInterval,
	}
}

// Sessions exposes the session store so the server can sweep and close it.
func (h *Handler) Sessions() *storage.SessionStore[*workflow.Workflow] {
	return h.sessionStore
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message, "status", code)
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request) (*workflow.Workflow, bool) {
	sessionID := r.PathValue("id")
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	workflow.Snapshot
}
