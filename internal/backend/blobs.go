package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Upload stores data under path and returns the handle the backend
// assigned.
func (b *Backend) Upload(ctx context.Context, path string, data []byte) (string, error) {
	u := b.baseURL + "/v1/blobs?path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if token := b.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload blob %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload blob %s: backend returned %d", path, resp.StatusCode)
	}

	var payload struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("upload blob %s: %w", path, err)
	}
	return payload.Handle, nil
}

// ResolveURL maps a handle onto the backend's public blob endpoint.
func (b *Backend) ResolveURL(ctx context.Context, handle string) (string, error) {
	return b.baseURL + "/blobs/" + handle, nil
}
