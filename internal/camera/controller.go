package camera

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"sync"
)

// Status is the controller's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusActive
)

func (s Status) String() string {
	switch s {
	case StatusInitializing:
		return "initializing"
	case StatusActive:
		return "active"
	default:
		return "idle"
	}
}

const (
	captureQuality = 92
	previewQuality = 70
)

// Controller owns at most one capture session at a time.
type Controller struct {
	device      Device
	constraints Constraints

	mu     sync.Mutex
	status Status
	stream Stream
	// gen changes on every Start and Stop so a slow Open can tell it was superseded.
	gen uint64
}

// NewController creates a controller for the given device.
func NewController(device Device, constraints Constraints) *Controller {
	return &Controller{
		device:      device,
		constraints: constraints,
	}
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Tracks returns the number of tracks held by the current session, zero when idle.
func (c *Controller) Tracks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return 0
	}
	return c.stream.Tracks()
}

// Start acquires the device and begins the live session.
// Failures are returned as *AccessError and leave the controller idle with nothing held.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusIdle {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.status = StatusInitializing
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	stream, err := c.device.Open(ctx, c.constraints)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		if stream != nil {
			stream.Stop()
		}
		if c.gen == gen {
			c.status = StatusIdle
		}
		slog.Error("Camera error", "err", err)
		return &AccessError{Err: err}
	}

	if c.gen != gen {
		stream.Stop()
		return ErrStopped
	}

	c.stream = stream
	c.status = StatusActive
	slog.Info("Camera started", "width", c.constraints.Width, "height", c.constraints.Height, "facing", c.constraints.FacingMode)
	return nil
}

// Capture grabs the current frame as a JPEG and ends the session.
// On failure the session stays live so the user can retry or cancel.
func (c *Controller) Capture() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive || c.stream == nil {
		return nil, ErrNoVideoSource
	}

	data, err := encodeFrame(c.stream, captureQuality)
	if err != nil {
		slog.Error("Capture error", "err", err)
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	c.releaseLocked()
	slog.Info("Photo captured", "bytes", len(data))
	return data, nil
}

// PreviewJPEG encodes the live frame for display without ending the session.
func (c *Controller) PreviewJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusActive || c.stream == nil {
		return nil, ErrNoVideoSource
	}
	return encodeFrame(c.stream, previewQuality)
}

// Stop releases the session unconditionally. It is a no-op when idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusIdle {
		return
	}
	c.releaseLocked()
	slog.Debug("Camera stopped")
}

// Close is the teardown path; it has the same release guarantee as Stop.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

func (c *Controller) releaseLocked() {
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
	c.status = StatusIdle
	c.gen++
}

func encodeFrame(stream Stream, quality int) ([]byte, error) {
	frame, err := stream.Frame()
	if err != nil {
		return nil, err
	}
	if frame == nil || frame.Bounds().Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
