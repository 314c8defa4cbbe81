package providers

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey is returned when a provider requires a credential that was not configured.
	ErrNoAPIKey = errors.New("providers: API key required")

	// ErrEmptyResponse is returned when the model answered without any text.
	ErrEmptyResponse = errors.New("providers: empty response")
)

// APIError represents a non-2xx response from an inference endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// IsUnauthorized returns true if the credential was rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
