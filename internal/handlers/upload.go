package handlers

import (
	"errors"
	"net/http"

	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imagesource.MaxUploadSize+1024*1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.writeError(w, imagesource.ErrTooLarge.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	done, err := session.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrSubmitting):
			h.writeError(w, "Identification already in progress", http.StatusConflict)
		case errors.Is(err, workflow.ErrCameraBusy):
			h.writeError(w, "Camera is active; capture or cancel first", http.StatusConflict)
		case errors.Is(err, imagesource.ErrTooLarge):
			h.writeError(w, err.Error(), http.StatusRequestEntityTooLarge)
		default:
			h.writeError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	h.respondSubmitted(w, r, session, done)
}

// respondSubmitted answers 202 right away, or waits for the record with ?wait=true.
func (h *Handler) respondSubmitted(w http.ResponseWriter, r *http.Request, session *workflow.Workflow, done <-chan models.IdentificationRecord) {
	if r.URL.Query().Get("wait") != "true" {
		h.writeJSONStatus(w, http.StatusAccepted, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
		return
	}

	select {
	case <-done:
	case <-r.Context().Done():
		return
	}
	h.writeJSON(w, sessionResponse{SessionID: r.PathValue("id"), Snapshot: session.Snapshot()})
}
