package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	session := h.newWorkflow()
	h.sessionStore.Set(sessionID, session)

	slog.Info("Session created", "session_id", sessionID)
	h.writeJSONStatus(w, http.StatusCreated, sessionResponse{SessionID: sessionID, Snapshot: session.Snapshot()})
}

func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
}

// HandleDeleteSession is the teardown path: the camera is released and the preview dropped.
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if !h.sessionStore.Delete(sessionID) {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return
	}
	slog.Info("Session closed", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}
