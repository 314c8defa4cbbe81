// Package webcam implements camera.Device on top of OpenCV video capture.
package webcam

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"gocv.io/x/gocv"
)

// ErrDeviceBusy is returned when the physical camera is already held by another session.
var ErrDeviceBusy = errors.New("webcam: device busy")

// ErrAudioUnsupported is returned when constraints ask for audio.
var ErrAudioUnsupported = errors.New("webcam: audio capture not supported")

// Device maps facing modes to OpenCV device indexes.
type Device struct {
	Rear  int
	Front int

	mu   sync.Mutex
	busy bool
}

// New returns a device using the given indexes for rear and front cameras.
func New(rear, front int) *Device {
	return &Device{Rear: rear, Front: front}
}

func (d *Device) index(facing string) int {
	if facing == camera.FacingUser {
		return d.Front
	}
	return d.Rear
}

// Open acquires the camera for the requested facing mode and applies the ideal resolution.
func (d *Device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if c.Audio {
		return nil, ErrAudioUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	d.busy = true
	d.mu.Unlock()

	idx := d.index(c.FacingMode)
	capture, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		d.release()
		return nil, fmt.Errorf("open video device %d: %w", idx, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		d.release()
		return nil, fmt.Errorf("video device %d not available", idx)
	}

	// Ideal constraints; the driver may pick the nearest supported mode.
	if c.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	}
	if c.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))
	}

	slog.Debug("Webcam opened",
		"index", idx,
		"width", capture.Get(gocv.VideoCaptureFrameWidth),
		"height", capture.Get(gocv.VideoCaptureFrameHeight))

	return &stream{capture: capture, frame: gocv.NewMat(), onStop: d.release}, nil
}

func (d *Device) release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.busy = false
}

type stream struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	frame   gocv.Mat
	onStop  func()
}

func (s *stream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, camera.ErrNoVideoSource
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("webcam: no frame available")
	}
	return s.frame.ToImage()
}

func (s *stream) Tracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capture == nil {
		return 0
	}
	return 1
}

func (s *stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return
	}
	if err := s.capture.Close(); err != nil {
		slog.Warn("Failed to close webcam", "err", err)
	}
	s.frame.Close()
	s.capture = nil
	s.onStop()
}
