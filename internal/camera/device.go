// Package camera manages the lifecycle of a single camera capture session:
// acquisition, live preview, still capture and guaranteed release.
package camera

import (
	"context"
	"image"
)

// Facing modes understood by devices.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Constraints describe the preferred stream. Width and Height are ideals, not minimums.
type Constraints struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FacingMode string `json:"facing_mode"`
	Audio      bool   `json:"audio"`
}

// DefaultConstraints prefers a 1280x720 rear camera without audio.
func DefaultConstraints() Constraints {
	return Constraints{
		Width:      1280,
		Height:     720,
		FacingMode: FacingEnvironment,
		Audio:      false,
	}
}

// Device acquires camera streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired camera stream. Stop must release every track and be safe to call twice.
type Stream interface {
	// Frame returns the current frame at the stream's native resolution.
	Frame() (image.Image, error)
	// Tracks returns the number of live tracks still held.
	Tracks() int
	Stop()
}
