package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/lehigh-university-libraries/plantid/internal/storage"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
)

var monstera = models.IdentificationRecord{
	CommonName:     "Monstera",
	ScientificName: "Monstera deliciosa",
	Care:           models.CareInfo{Water: "Weekly", Sunlight: "Bright indirect", Soil: "Well-draining"},
	Facts:          "Climbing aroid.",
}

type stubIdentifier struct {
	record models.IdentificationRecord
	gate   chan struct{}
}

func (s *stubIdentifier) Identify(ctx context.Context, payload models.ImagePayload) models.IdentificationRecord {
	if s.gate != nil {
		<-s.gate
	}
	return s.record
}

type testServer struct {
	*httptest.Server
	handler *Handler
	device  *camera.MockDevice
}

func newTestServer(t *testing.T, device *camera.MockDevice, identifier workflow.Identifier) *testServer {
	t.Helper()
	previews := storage.NewPreviewStore("/previews/")
	normalizer := imagesource.New(previews)
	h := New(previews, func() *workflow.Workflow {
		return workflow.New(camera.NewController(device, camera.DefaultConstraints()), normalizer, identifier, previews)
	})
	h.previewInterval = 5 * time.Millisecond

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(func() {
		srv.Close()
		h.Sessions().CloseAll()
	})
	return &testServer{Server: srv, handler: h, device: device}
}

type sessionBody struct {
	SessionID  string                       `json:"session_id"`
	Status     string                       `json:"status"`
	PreviewURL string                       `json:"preview_url"`
	Result     *models.IdentificationRecord `json:"result"`
	Error      string                       `json:"error"`
}

func decode(t *testing.T, resp *http.Response) sessionBody {
	t.Helper()
	defer resp.Body.Close()
	var body sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func (s *testServer) createSession(t *testing.T) string {
	t.Helper()
	resp, err := http.Post(s.URL+"/api/sessions", "application/json", nil)
	if err != nil {
		t.Fatalf("Create session failed: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body.SessionID == "" || body.Status != "idle" {
		t.Fatalf("Unexpected session %+v", body)
	}
	return body.SessionID
}

func (s *testServer) post(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Post(s.URL+path, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func (s *testServer) upload(t *testing.T, sessionID, query string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "plant.jpg")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	_, _ = part.Write(data)
	_ = mw.Close()

	resp, err := http.Post(s.URL+"/api/sessions/"+sessionID+"/upload"+query, mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return resp
}

func TestUploadAndWait(t *testing.T) {
	srv := newTestServer(t, &camera.MockDevice{}, &stubIdentifier{record: monstera})
	id := srv.createSession(t)

	image := []byte("fake-jpeg-bytes")
	resp := srv.upload(t, id, "?wait=true", image)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body := decode(t, resp)

	if body.Status != "resolved" {
		t.Errorf("Expected resolved, got %s", body.Status)
	}
	if body.Result == nil || *body.Result != monstera {
		t.Errorf("Expected monstera record, got %+v", body.Result)
	}
	if !strings.HasPrefix(body.PreviewURL, "/previews/") {
		t.Fatalf("Unexpected preview URL %q", body.PreviewURL)
	}

	preview, err := http.Get(srv.URL + body.PreviewURL)
	if err != nil {
		t.Fatalf("Preview request failed: %v", err)
	}
	defer preview.Body.Close()
	served, _ := io.ReadAll(preview.Body)
	if !bytes.Equal(served, image) {
		t.Errorf("Expected preview bytes to match upload")
	}
}

func TestUploadWhileSubmittingConflicts(t *testing.T) {
	identifier := &stubIdentifier{record: monstera, gate: make(chan struct{})}
	srv := newTestServer(t, &camera.MockDevice{}, identifier)
	id := srv.createSession(t)

	resp := srv.upload(t, id, "", []byte("one"))
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body.Status != "submitting" {
		t.Errorf("Expected submitting, got %s", body.Status)
	}

	resp = srv.upload(t, id, "", []byte("two"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}

	close(identifier.gate)
}

func TestUploadMissingFile(t *testing.T) {
	srv := newTestServer(t, &camera.MockDevice{}, &stubIdentifier{})
	id := srv.createSession(t)

	resp := srv.post(t, "/api/sessions/"+id+"/upload")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, &camera.MockDevice{}, &stubIdentifier{})

	resp, err := http.Get(srv.URL + "/api/sessions/nope")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestCameraCaptureFlow(t *testing.T) {
	device := &camera.MockDevice{Width: 16, Height: 16}
	srv := newTestServer(t, device, &stubIdentifier{record: monstera})
	id := srv.createSession(t)

	resp := srv.post(t, "/api/sessions/"+id+"/camera/start")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body.Status != "camera_active" {
		t.Fatalf("Expected camera_active, got %s", body.Status)
	}

	resp = srv.post(t, "/api/sessions/"+id+"/camera/start")
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for second start, got %d", resp.StatusCode)
	}

	resp = srv.post(t, "/api/sessions/"+id+"/camera/capture?wait=true")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body.Status != "resolved" || body.Result == nil || body.Result.CommonName != "Monstera" {
		t.Errorf("Unexpected capture result %+v", body)
	}
	if device.LiveTracks() != 0 {
		t.Errorf("Expected camera released, got %d tracks", device.LiveTracks())
	}
}

func TestCameraPermissionDenied(t *testing.T) {
	device := &camera.MockDevice{OpenErr: errors.New("Permission denied")}
	srv := newTestServer(t, device, &stubIdentifier{})
	id := srv.createSession(t)

	resp := srv.post(t, "/api/sessions/"+id+"/camera/start")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", resp.StatusCode)
	}
	body := decode(t, resp)
	if body.Status != "idle" {
		t.Errorf("Expected idle, got %s", body.Status)
	}
	if !strings.Contains(body.Error, "Error accessing camera") {
		t.Errorf("Expected camera error, got %q", body.Error)
	}
}

func TestCaptureWithoutCamera(t *testing.T) {
	srv := newTestServer(t, &camera.MockDevice{}, &stubIdentifier{})
	id := srv.createSession(t)

	resp := srv.post(t, "/api/sessions/"+id+"/camera/capture")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body.Error != workflow.MsgNoVideoSource {
		t.Errorf("Expected %q, got %q", workflow.MsgNoVideoSource, body.Error)
	}
}

func TestStopAndDeleteReleaseCamera(t *testing.T) {
	device := &camera.MockDevice{}
	srv := newTestServer(t, device, &stubIdentifier{})

	first := srv.createSession(t)
	resp := srv.post(t, "/api/sessions/"+first+"/camera/stop")
	if body := decode(t, resp); body.Status != "idle" {
		t.Errorf("Expected idle after stop without session, got %s", body.Status)
	}

	srv.post(t, "/api/sessions/"+first+"/camera/start").Body.Close()
	if device.LiveTracks() != 1 {
		t.Fatalf("Expected one live track, got %d", device.LiveTracks())
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+first, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if device.LiveTracks() != 0 {
		t.Errorf("Expected teardown to release camera, got %d tracks", device.LiveTracks())
	}
}

func TestCameraPreviewStream(t *testing.T) {
	device := &camera.MockDevice{Width: 8, Height: 8}
	srv := newTestServer(t, device, &stubIdentifier{})
	id := srv.createSession(t)

	srv.post(t, "/api/sessions/"+id+"/camera/start").Body.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/camera/preview"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	msgType, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if msgType != websocket.BinaryMessage || !bytes.HasPrefix(frame, []byte{0xFF, 0xD8}) {
		t.Errorf("Expected binary JPEG frame, got type %d", msgType)
	}

	srv.post(t, "/api/sessions/"+id+"/camera/stop").Body.Close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.Errorf("Expected normal close, got %v", err)
			}
			break
		}
	}
}

func TestHealthcheck(t *testing.T) {
	srv := newTestServer(t, &camera.MockDevice{}, &stubIdentifier{})

	resp, err := http.Get(srv.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "OK" {
		t.Errorf("Expected OK, got %q", body)
	}
}

func uploadRequest(url string, data []byte) (*http.Request, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "plant.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req, nil
}

func TestConcurrentUploadsAcceptOne(t *testing.T) {
	identifier := &stubIdentifier{record: monstera, gate: make(chan struct{})}
	srv := newTestServer(t, &camera.MockDevice{}, identifier)
	id := srv.createSession(t)
	defer close(identifier.gate)

	const n = 8
	codes := make(chan int, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := uploadRequest(srv.URL+"/api/sessions/"+id+"/upload", []byte("leaf"))
			if err != nil {
				codes <- 0
				return
			}
			<-start
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	if counts[http.StatusAccepted] != 1 {
		t.Errorf("Expected exactly one 202, got %v", counts)
	}
	if counts[http.StatusConflict] != n-1 {
		t.Errorf("Expected %d conflicts, got %v", n-1, counts)
	}
}

func TestConcurrentCameraStartsAcceptOne(t *testing.T) {
	device := &camera.MockDevice{}
	srv := newTestServer(t, device, &stubIdentifier{})
	id := srv.createSession(t)

	const n = 8
	codes := make(chan int, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			resp, err := http.Post(srv.URL+"/api/sessions/"+id+"/camera/start", "application/json", nil)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	close(start)
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	if counts[http.StatusOK] != 1 || counts[http.StatusConflict] != n-1 {
		t.Errorf("Expected one 200 and %d conflicts, got %v", n-1, counts)
	}

	resp, err := http.Get(srv.URL + "/api/sessions/" + id)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body := decode(t, resp)
	if body.Status != "camera_active" || body.Error != "" {
		t.Errorf("Expected camera_active with no message, got %+v", body)
	}
	if device.LiveTracks() != 1 {
		t.Errorf("Expected one live track, got %d", device.LiveTracks())
	}
}

func TestUploadBodyOverLimit(t *testing.T) {
	previews := storage.NewPreviewStore("/previews/")
	h := New(previews, func() *workflow.Workflow {
		return workflow.New(camera.NewController(&camera.MockDevice{}, camera.DefaultConstraints()), imagesource.New(previews), &stubIdentifier{}, previews)
	})
	h.Sessions().Set("s1", h.newWorkflow())
	defer h.Sessions().CloseAll()

	req, err := uploadRequest("/api/sessions/s1/upload", make([]byte, imagesource.MaxUploadSize+2*1024*1024))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
	if session, _ := h.Sessions().Get("s1"); session.Status() != models.StatusIdle {
		t.Errorf("Expected session to stay idle, got %s", session.Status())
	}
}
