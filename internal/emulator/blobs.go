package emulator

import (
	"context"
	"fmt"
	"sync"

	"chat-client/internal/remote"
)

// Blobs is an in-memory blob store. The upload path doubles as the
// opaque handle.
type Blobs struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewBlobs creates an empty blob store resolving handles under baseURL.
func NewBlobs(baseURL string) *Blobs {
	return &Blobs{objects: make(map[string][]byte), baseURL: baseURL}
}

func (b *Blobs) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty blob path")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	b.mu.Lock()
	b.objects[path] = buf
	b.mu.Unlock()
	return path, nil
}

func (b *Blobs) ResolveURL(ctx context.Context, handle string) (string, error) {
	b.mu.RLock()
	_, ok := b.objects[handle]
	b.mu.RUnlock()
	if !ok {
		return "", remote.ErrNotFound
	}
	return b.baseURL + "/" + handle, nil
}

// Fetch returns stored bytes. Used by the dev server's blob endpoint.
func (b *Blobs) Fetch(path string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.objects[path]
	return data, ok
}

var _ remote.BlobStore = (*Blobs)(nil)
