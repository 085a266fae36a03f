package remote

import "context"

// BlobStore is the binary object collaborator. Upload returns an
// opaque handle; ResolveURL turns a handle into a fetchable URL.
// Paths are namespaced by entity kind and owner id to avoid collisions.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte) (string, error)
	ResolveURL(ctx context.Context, handle string) (string, error)
}
