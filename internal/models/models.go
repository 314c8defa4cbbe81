package models

import "encoding/json"

// FailedIdentificationMessage is the only failure text ever shown to the user.
const FailedIdentificationMessage = "Failed to identify plant. Please try again."

// CareInfo holds the plant care instructions returned by the model
type CareInfo struct {
	Water    string `json:"water"`
	Sunlight string `json:"sunlight"`
	Soil     string `json:"soil"`
}

// IdentificationRecord is the structured result of one identification request
type IdentificationRecord struct {
	CommonName     string   `json:"commonName"`
	ScientificName string   `json:"scientificName"`
	Care           CareInfo `json:"care"`
	Facts          string   `json:"facts"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the record carries a normalized error
func (r IdentificationRecord) Failed() bool {
	return r.Error != ""
}

// FailedIdentification returns the normalized error record
func FailedIdentification() IdentificationRecord {
	return IdentificationRecord{Error: FailedIdentificationMessage}
}

// ImagePayload is binary image data plus its MIME type, ready for transport
type ImagePayload struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Size returns the payload length in bytes
func (p ImagePayload) Size() int {
	return len(p.Data)
}

// WorkflowStatus describes the user-visible progress of the identify action
type WorkflowStatus int

const (
	StatusIdle WorkflowStatus = iota
	StatusCameraInitializing
	StatusCameraActive
	StatusSubmitting
	StatusResolved
)

func (s WorkflowStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusCameraInitializing:
		return "camera_initializing"
	case StatusCameraActive:
		return "camera_active"
	case StatusSubmitting:
		return "submitting"
	case StatusResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

func (s WorkflowStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
