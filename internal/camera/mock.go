package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// MockDevice is an in-memory Device for tests and demos.
type MockDevice struct {
	// OpenErr, when set, makes every Open fail.
	OpenErr error
	// FrameErr, when set, makes every Frame call fail.
	FrameErr error
	// Width and Height of generated frames; the constraints are used when zero.
	Width, Height int

	mu      sync.Mutex
	opened  int
	streams []*MockStream
}

// Open returns a new live MockStream.
func (d *MockDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened++
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	w, h := d.Width, d.Height
	if w == 0 || h == 0 {
		w, h = c.Width, c.Height
	}
	s := &MockStream{width: w, height: h, frameErr: d.FrameErr, tracks: 1}
	d.streams = append(d.streams, s)
	return s, nil
}

// Opened returns how many times Open was called.
func (d *MockDevice) Opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// LiveTracks sums the tracks still held across every stream handed out.
func (d *MockDevice) LiveTracks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, s := range d.streams {
		total += s.Tracks()
	}
	return total
}

// MockStream produces solid green frames.
type MockStream struct {
	width, height int
	frameErr      error

	mu     sync.Mutex
	tracks int
}

func (s *MockStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tracks == 0 {
		return nil, ErrNoVideoSource
	}
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	green := color.RGBA{R: 34, G: 139, B: 34, A: 255}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.SetRGBA(x, y, green)
		}
	}
	return img, nil
}

func (s *MockStream) Tracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}

func (s *MockStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = 0
}
