package storage

import (
	"sync"

	"github.com/google/uuid"
)

// Preview is a display-only copy of an image payload.
type Preview struct {
	Data     []byte
	MIMEType string
}

// PreviewStore holds transient previews addressed by URL.
type PreviewStore struct {
	prefix   string
	previews map[string]Preview
	mu       sync.RWMutex
}

// NewPreviewStore creates a store whose URLs start with prefix, e.g. "/previews/".
func NewPreviewStore(prefix string) *PreviewStore {
	return &PreviewStore{
		prefix:   prefix,
		previews: make(map[string]Preview),
	}
}

// Put registers a preview and returns its URL.
func (p *PreviewStore) Put(data []byte, mimeType string) string {
	id := uuid.NewString()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.previews[id] = Preview{Data: data, MIMEType: mimeType}
	return p.prefix + id
}

// Get looks a preview up by id (the last URL segment).
func (p *PreviewStore) Get(id string) (Preview, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	preview, ok := p.previews[id]
	return preview, ok
}

// Release drops the preview behind url. Unknown URLs are ignored.
func (p *PreviewStore) Release(url string) {
	if len(url) <= len(p.prefix) || url[:len(p.prefix)] != p.prefix {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.previews, url[len(p.prefix):])
}

func (p *PreviewStore) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.previews)
}
