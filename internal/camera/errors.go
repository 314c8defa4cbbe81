package camera

import "errors"

var (
	// ErrNoVideoSource is returned when a frame is requested without an active stream.
	ErrNoVideoSource = errors.New("camera: video source not found")

	// ErrCaptureFailed is returned when the current frame could not be turned into a photo.
	ErrCaptureFailed = errors.New("camera: error capturing photo")

	// ErrSessionActive is returned by Start while a session is initializing or live.
	ErrSessionActive = errors.New("camera: session already active")

	// ErrStopped is returned by Start when Stop was called before acquisition finished.
	ErrStopped = errors.New("camera: stopped during initialization")
)

// AccessError reports a failure to acquire the camera.
type AccessError struct {
	Err error
}

func (e *AccessError) Error() string {
	return "Error accessing camera: " + e.Err.Error()
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
