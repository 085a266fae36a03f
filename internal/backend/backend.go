// Package backend is the client-side SDK for the dev backend. One
// Backend value implements the document store, auth and blob
// collaborators over the backend's HTTP and websocket endpoints.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chat-client/internal/remote"
)

type Backend struct {
	baseURL string
	wsURL   string
	http    *http.Client

	session sessionState
	socket  socketState
}

var (
	_ remote.DocumentStore = (*Backend)(nil)
	_ remote.AuthService   = (*Backend)(nil)
	_ remote.BlobStore     = (*Backend)(nil)
)

// New builds a Backend talking to baseURL, e.g. "http://localhost:8083".
func New(baseURL string) *Backend {
	baseURL = strings.TrimRight(baseURL, "/")
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/v1/watch"
	b := &Backend{
		baseURL: baseURL,
		wsURL:   wsURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	b.session.watchers = make(map[int]chan remote.Session)
	b.socket.subs = make(map[string]*socketSub)
	return b
}

// httpError carries a non-2xx response.
type httpError struct {
	Status  int
	Message string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// doJSON performs one authenticated JSON request. A nil out discards
// the response body.
func (b *Backend) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := b.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &httpError{Status: resp.StatusCode, Message: payload.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func statusOf(err error) int {
	var httpErr *httpError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}
