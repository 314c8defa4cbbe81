package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
)

func (h *Handler) HandleCameraStart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	if err := session.StartCamera(r.Context()); err != nil {
		switch {
		case errors.Is(err, workflow.ErrSubmitting):
			h.writeError(w, "Identification already in progress", http.StatusConflict)
		case errors.Is(err, workflow.ErrCameraBusy), errors.Is(err, camera.ErrSessionActive):
			h.writeError(w, "Camera already active", http.StatusConflict)
		case errors.Is(err, camera.ErrStopped):
			h.writeJSONStatus(w, http.StatusConflict, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
		default:
			h.writeJSONStatus(w, http.StatusServiceUnavailable, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
		}
		return
	}

	h.writeJSON(w, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
}

func (h *Handler) HandleCameraCapture(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	done, err := session.CaptureAndSubmit(r.Context())
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, camera.ErrNoVideoSource) {
			code = http.StatusConflict
		}
		h.writeJSONStatus(w, code, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
		return
	}

	h.respondSubmitted(w, r, session, done)
}

func (h *Handler) HandleCameraStop(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	session.StopCamera()
	h.writeJSON(w, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
}

// HandleCameraPreview streams live JPEG frames over a WebSocket until the
// camera session ends or the client goes away.
func (h *Handler) HandleCameraPreview(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Preview upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.previewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
		}

		frame, err := session.PreviewFrame()
		if err != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "camera stopped")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			slog.Debug("Preview client gone", "err", err)
			return
		}
	}
}
