// Package workflow holds the presentation state of one identify session and
// drives the camera, normalizer and identification client through it.
package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/models"
)

// User-facing messages for failures that are not identification failures.
const (
	MsgCaptureFailed = "Error capturing photo"
	MsgNoVideoSource = "Video element not found"
)

// ErrSubmitting and ErrCameraBusy refuse a new upload or camera start while
// another action owns the session.
var (
	ErrSubmitting = errors.New("workflow: identification already in progress")
	ErrCameraBusy = errors.New("workflow: camera already active")
)

// Identifier resolves a payload into a record and never fails.
type Identifier interface {
	Identify(ctx context.Context, payload models.ImagePayload) models.IdentificationRecord
}

// Camera is the subset of camera.Controller the workflow drives.
type Camera interface {
	Start(ctx context.Context) error
	Capture() ([]byte, error)
	PreviewJPEG() ([]byte, error)
	Stop()
	Close() error
}

// PreviewReleaser drops previews that are no longer current.
type PreviewReleaser interface {
	Release(url string)
}

// Snapshot is what a view renders.
type Snapshot struct {
	Status     models.WorkflowStatus        `json:"status"`
	PreviewURL string                       `json:"preview_url,omitempty"`
	Record     *models.IdentificationRecord `json:"result,omitempty"`
	Error      string                       `json:"error,omitempty"`
}

type Workflow struct {
	camera     Camera
	normalizer *imagesource.Normalizer
	identifier Identifier
	previews   PreviewReleaser

	mu         sync.Mutex
	status     models.WorkflowStatus
	previewURL string
	record     *models.IdentificationRecord
	errMsg     string
	// cameraGen changes on every start, stop and close so a start that
	// finishes opening after a cancel can tell.
	cameraGen uint64
	inflight  sync.WaitGroup
}

func New(cam Camera, normalizer *imagesource.Normalizer, identifier Identifier, previews PreviewReleaser) *Workflow {
	return &Workflow{
		camera:     cam,
		normalizer: normalizer,
		identifier: identifier,
		previews:   previews,
		status:     models.StatusIdle,
	}
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := Snapshot{
		Status:     w.status,
		PreviewURL: w.previewURL,
		Error:      w.errMsg,
	}
	if w.record != nil {
		r := *w.record
		snap.Record = &r
	}
	return snap
}

// Status returns the current workflow status.
func (w *Workflow) Status() models.WorkflowStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Upload normalizes a user-selected file and submits it. It is refused while a
// submission or camera session is under way.
func (w *Workflow) Upload(ctx context.Context, filename, mimeType string, r io.Reader) (<-chan models.IdentificationRecord, error) {
	w.mu.Lock()
	if err := w.busyLocked(); err != nil {
		w.mu.Unlock()
		return nil, err
	}
	prev := w.status
	w.status = models.StatusSubmitting
	w.mu.Unlock()

	payload, preview, err := w.normalizer.FromUpload(filename, mimeType, r)
	if err != nil {
		w.mu.Lock()
		w.status = prev
		w.mu.Unlock()
		return nil, err
	}
	return w.Submit(ctx, payload, preview), nil
}

func (w *Workflow) busyLocked() error {
	switch w.status {
	case models.StatusSubmitting:
		return ErrSubmitting
	case models.StatusCameraInitializing, models.StatusCameraActive:
		return ErrCameraBusy
	}
	return nil
}

// Submit moves to Submitting, replaces the preview and runs one identification.
// The call is detached from ctx cancellation: once issued it always lands in the state.
// The returned channel yields the record and is then closed.
func (w *Workflow) Submit(ctx context.Context, payload models.ImagePayload, previewURL string) <-chan models.IdentificationRecord {
	w.mu.Lock()
	old := w.previewURL
	w.status = models.StatusSubmitting
	w.previewURL = previewURL
	w.errMsg = ""
	w.inflight.Add(1)
	w.mu.Unlock()

	if old != "" && old != previewURL {
		w.previews.Release(old)
	}

	slog.Info("Identifying plant", "filename", payload.Filename, "mime_type", payload.MIMEType, "bytes", payload.Size())

	done := make(chan models.IdentificationRecord, 1)
	go func() {
		defer w.inflight.Done()
		defer close(done)

		record := w.identifier.Identify(context.WithoutCancel(ctx), payload)

		w.mu.Lock()
		w.record = &record
		w.status = models.StatusResolved
		w.mu.Unlock()

		done <- record
	}()
	return done
}

// StartCamera acquires the camera. It is refused while a submission or camera
// session is under way. Access failures leave the workflow idle with a message.
// A stop that lands while the device is opening wins: the stream is released
// and camera.ErrStopped returned.
func (w *Workflow) StartCamera(ctx context.Context) error {
	w.mu.Lock()
	if err := w.busyLocked(); err != nil {
		w.mu.Unlock()
		return err
	}
	prev := w.status
	w.errMsg = ""
	w.status = models.StatusCameraInitializing
	w.cameraGen++
	gen := w.cameraGen
	w.mu.Unlock()

	err := w.camera.Start(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cameraGen != gen {
		if err == nil {
			w.camera.Stop()
		}
		return camera.ErrStopped
	}

	switch {
	case err == nil:
		w.status = models.StatusCameraActive
		return nil
	case errors.Is(err, camera.ErrStopped), errors.Is(err, camera.ErrSessionActive):
		w.status = prev
		return err
	default:
		w.errMsg = err.Error()
		w.status = models.StatusIdle
		return err
	}
}

// StopCamera cancels the camera sub-flow. Safe to call at any time.
func (w *Workflow) StopCamera() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.cameraGen++
	w.camera.Stop()
	if w.status == models.StatusCameraActive || w.status == models.StatusCameraInitializing {
		w.status = models.StatusIdle
	}
}

// CaptureAndSubmit takes the photo, ends the camera session and submits the frame.
// Capture failures are reported without changing the status.
func (w *Workflow) CaptureAndSubmit(ctx context.Context) (<-chan models.IdentificationRecord, error) {
	data, err := w.camera.Capture()
	if err != nil {
		msg := MsgCaptureFailed
		if errors.Is(err, camera.ErrNoVideoSource) {
			msg = MsgNoVideoSource
		}
		w.mu.Lock()
		w.errMsg = msg
		w.mu.Unlock()
		return nil, err
	}

	payload, preview := w.normalizer.FromCapture(data)
	return w.Submit(ctx, payload, preview), nil
}

// PreviewFrame returns the live camera frame as JPEG.
func (w *Workflow) PreviewFrame() ([]byte, error) {
	return w.camera.PreviewJPEG()
}

// Wait blocks until every in-flight identification has landed.
func (w *Workflow) Wait() {
	w.inflight.Wait()
}

// Close is the teardown path: the camera is always released, the preview dropped.
// In-flight identifications still complete and update the state.
func (w *Workflow) Close() error {
	w.mu.Lock()
	w.cameraGen++
	err := w.camera.Close()
	preview := w.previewURL
	if w.status == models.StatusCameraActive || w.status == models.StatusCameraInitializing {
		w.status = models.StatusIdle
	}
	w.mu.Unlock()

	if preview != "" {
		w.previews.Release(preview)
	}
	return err
}
