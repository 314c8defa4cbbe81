// Package imagesource turns an uploaded file or a captured frame into an
// image payload plus a display preview.
package imagesource

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/plantid/internal/models"
)

// MaxUploadSize mirrors the upload limit enforced by the HTTP surface.
const MaxUploadSize = 10 * 1024 * 1024

// CaptureFilename and CaptureMIMEType name every captured frame.
const (
	CaptureFilename = "captured-image.jpg"
	CaptureMIMEType = "image/jpeg"
)

// ErrTooLarge is returned when an upload exceeds MaxUploadSize.
var ErrTooLarge = errors.New("file too large (max 10MB)")

// Previewer registers preview bytes and returns a display URL.
type Previewer interface {
	Put(data []byte, mimeType string) string
}

type Normalizer struct {
	previews Previewer
}

func New(previews Previewer) *Normalizer {
	return &Normalizer{previews: previews}
}

// FromUpload reads a user-selected file. The picker already restricts the type,
// so the content is not validated here.
func (n *Normalizer) FromUpload(filename, mimeType string, r io.Reader) (models.ImagePayload, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return models.ImagePayload{}, "", fmt.Errorf("failed to read file contents: %w", err)
	}
	if len(data) > MaxUploadSize {
		return models.ImagePayload{}, "", ErrTooLarge
	}

	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	} else {
		mimeType = ""
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = mimeFromFilename(filename)
	}

	payload := models.ImagePayload{Data: data, MIMEType: mimeType, Filename: filename}
	return payload, n.preview(payload), nil
}

// FromCapture wraps the JPEG produced by the camera controller.
func (n *Normalizer) FromCapture(jpeg []byte) (models.ImagePayload, string) {
	payload := models.ImagePayload{Data: jpeg, MIMEType: CaptureMIMEType, Filename: CaptureFilename}
	return payload, n.preview(payload)
}

func (n *Normalizer) preview(payload models.ImagePayload) string {
	return n.previews.Put(payload.Data, payload.MIMEType)
}

func mimeFromFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t := mime.TypeByExtension(ext); t != "" {
		if mediaType, _, err := mime.ParseMediaType(t); err == nil {
			return mediaType
		}
	}
	return "image/jpeg"
}
