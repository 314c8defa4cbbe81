// Package images opens dataset photos from disk or over HTTP.
package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// Fetcher retrieves plant photos referenced by a dataset
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsRemote reports whether location is an http(s) URL
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Open returns a reader for a local path or remote URL plus the content type
// reported by the server. Local files report an empty content type.
func (f *Fetcher) Open(ctx context.Context, location string) (io.ReadCloser, string, error) {
	if !IsRemote(location) {
		file, err := os.Open(location)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open image: %w", err)
		}
		return file, "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("image URL returned status %d", resp.StatusCode)
	}

	slog.Debug("Fetched remote image", "url", location, "content_type", resp.Header.Get("Content-Type"))

	return resp.Body, resp.Header.Get("Content-Type"), nil
}
