package providers

import (
	"context"
)

// Image is an inline image already encoded for transport
type Image struct {
	// Data is the base64 encoded image
	Data     string
	MIMEType string
}

// Request is a single prompt plus image sent to a vision-capable model
type Request struct {
	Model       string
	Temperature float64
	Prompt      string
	Image       Image
}

// Provider defines the interface for an LLM provider
type Provider interface {
	GenerateContent(ctx context.Context, req Request) (string, error)
}
