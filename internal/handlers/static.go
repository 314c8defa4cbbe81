package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
)

// HandlePreview serves the bytes behind a preview URL.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	preview, ok := h.previews.Get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", preview.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(preview.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(preview.Data); err != nil {
		slog.Error("Unable to write preview", "err", err)
	}
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", h.HandleCreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.HandleGetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.HandleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/upload", h.HandleUpload)
	mux.HandleFunc("POST /api/sessions/{id}/camera/start", h.HandleCameraStart)
	mux.HandleFunc("POST /api/sessions/{id}/camera/capture", h.HandleCameraCapture)
	mux.HandleFunc("POST /api/sessions/{id}/camera/stop", h.HandleCameraStop)
	mux.HandleFunc("GET /api/sessions/{id}/camera/preview", h.HandleCameraPreview)
	mux.HandleFunc("GET /previews/{id}", h.HandlePreview)
	mux.HandleFunc("GET /healthcheck", h.HandleHealthcheck)
	return mux
}
