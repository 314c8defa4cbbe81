package camera

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"strings"
	"testing"
)

func TestStartCaptureReleases(t *testing.T) {
	device := &MockDevice{Width: 64, Height: 48}
	c := NewController(device, DefaultConstraints())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c.Status() != StatusActive {
		t.Fatalf("Expected active, got %s", c.Status())
	}
	if c.Tracks() != 1 {
		t.Errorf("Expected 1 track, got %d", c.Tracks())
	}

	data, err := c.Capture()
	if err != nil {
		t.Fatalf("Unexpected capture error: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Expected JPEG output: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("Expected native 64x48, got %dx%d", cfg.Width, cfg.Height)
	}

	if c.Status() != StatusIdle {
		t.Errorf("Expected idle after capture, got %s", c.Status())
	}
	if device.LiveTracks() != 0 {
		t.Errorf("Expected no tracks held after capture, got %d", device.LiveTracks())
	}
}

func TestStartPermissionDenied(t *testing.T) {
	device := &MockDevice{OpenErr: errors.New("Permission denied")}
	c := NewController(device, DefaultConstraints())

	err := c.Start(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "Error accessing camera") {
		t.Errorf("Expected access error message, got %q", err.Error())
	}
	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Errorf("Expected *AccessError, got %T", err)
	}
	if c.Status() != StatusIdle {
		t.Errorf("Expected idle, got %s", c.Status())
	}
	if c.Tracks() != 0 || device.LiveTracks() != 0 {
		t.Error("Expected no stream retained")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	device := &MockDevice{}
	c := NewController(device, DefaultConstraints())

	c.Stop()
	c.Stop()
	if c.Status() != StatusIdle {
		t.Errorf("Expected idle, got %s", c.Status())
	}

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	c.Stop()
	c.Stop()
	if c.Status() != StatusIdle {
		t.Errorf("Expected idle, got %s", c.Status())
	}
	if device.LiveTracks() != 0 {
		t.Errorf("Expected released tracks, got %d", device.LiveTracks())
	}
}

func TestCaptureWithoutSession(t *testing.T) {
	c := NewController(&MockDevice{}, DefaultConstraints())

	if _, err := c.Capture(); !errors.Is(err, ErrNoVideoSource) {
		t.Errorf("Expected ErrNoVideoSource, got %v", err)
	}
	if _, err := c.PreviewJPEG(); !errors.Is(err, ErrNoVideoSource) {
		t.Errorf("Expected ErrNoVideoSource, got %v", err)
	}
	if c.Status() != StatusIdle {
		t.Errorf("Expected idle, got %s", c.Status())
	}
}

func TestCaptureFailureKeepsSession(t *testing.T) {
	device := &MockDevice{FrameErr: errors.New("sensor timeout")}
	c := NewController(device, DefaultConstraints())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := c.Capture(); !errors.Is(err, ErrCaptureFailed) {
		t.Errorf("Expected ErrCaptureFailed, got %v", err)
	}
	if c.Status() != StatusActive {
		t.Errorf("Expected session to remain active, got %s", c.Status())
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Unexpected close error: %v", err)
	}
	if device.LiveTracks() != 0 {
		t.Errorf("Expected teardown to release tracks, got %d", device.LiveTracks())
	}
}

func TestStartTwice(t *testing.T) {
	device := &MockDevice{}
	c := NewController(device, DefaultConstraints())

	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := c.Start(context.Background()); !errors.Is(err, ErrSessionActive) {
		t.Errorf("Expected ErrSessionActive, got %v", err)
	}
	if device.Opened() != 1 {
		t.Errorf("Expected a single open, got %d", device.Opened())
	}
	c.Stop()
}

type blockingDevice struct {
	inner   *MockDevice
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	close(d.entered)
	<-d.release
	return d.inner.Open(ctx, c)
}

func TestStopDuringInitialization(t *testing.T) {
	device := &blockingDevice{
		inner:   &MockDevice{},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewController(device, DefaultConstraints())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(context.Background()) }()

	<-device.entered
	if c.Status() != StatusInitializing {
		t.Errorf("Expected initializing, got %s", c.Status())
	}
	c.Stop()
	close(device.release)

	if err := <-errCh; !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if c.Status() != StatusIdle {
		t.Errorf("Expected idle, got %s", c.Status())
	}
	if device.inner.LiveTracks() != 0 {
		t.Errorf("Expected late stream to be released, got %d tracks", device.inner.LiveTracks())
	}
}

func TestPreviewKeepsSession(t *testing.T) {
	c := NewController(&MockDevice{Width: 8, Height: 8}, DefaultConstraints())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer c.Stop()

	data, err := c.PreviewJPEG()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Error("Expected preview bytes")
	}
	if c.Status() != StatusActive {
		t.Errorf("Expected active, got %s", c.Status())
	}
}
