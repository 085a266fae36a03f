package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"chat-client/internal/remote"
)

func (b *Backend) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	var doc remote.Document
	err := b.doJSON(ctx, http.MethodGet, documentPath(collection, id), nil, &doc)
	if statusOf(err) == http.StatusNotFound {
		return remote.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Document{}, err
	}
	return doc, nil
}

func (b *Backend) RunQuery(ctx context.Context, q remote.Query) (remote.Snapshot, error) {
	var resp struct {
		Documents remote.Snapshot `json:"documents"`
	}
	if err := b.doJSON(ctx, http.MethodPost, "/v1/query", q, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (b *Backend) Set(ctx context.Context, collection, id string, doc any) error {
	return b.doJSON(ctx, http.MethodPut, documentPath(collection, id), map[string]any{"data": doc}, nil)
}

func (b *Backend) Add(ctx context.Context, collection string, doc any) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	err := b.doJSON(ctx, http.MethodPost, "/v1/documents/"+url.PathEscape(collection),
		map[string]any{"data": doc}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (b *Backend) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	err := b.doJSON(ctx, http.MethodPatch, documentPath(collection, id), map[string]any{"data": fields}, nil)
	if statusOf(err) == http.StatusNotFound {
		return remote.ErrNotFound
	}
	return err
}

func (b *Backend) ArrayUnion(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	err := b.doJSON(ctx, http.MethodPost, documentPath(collection, id)+"/array-union", map[string]any{
		"field":     field,
		"elem":      elem,
		"match_key": matchKey,
	}, nil)
	if statusOf(err) == http.StatusNotFound {
		return remote.ErrNotFound
	}
	return err
}

func (b *Backend) ArrayRemove(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	err := b.doJSON(ctx, http.MethodPost, documentPath(collection, id)+"/array-remove", map[string]any{
		"field":     field,
		"elem":      elem,
		"match_key": matchKey,
	}, nil)
	if statusOf(err) == http.StatusNotFound {
		return remote.ErrNotFound
	}
	return err
}

func (b *Backend) Delete(ctx context.Context, collection, id string) error {
	return b.doJSON(ctx, http.MethodDelete, documentPath(collection, id), nil, nil)
}

func documentPath(collection, id string) string {
	return fmt.Sprintf("/v1/documents/%s/%s", url.PathEscape(collection), url.PathEscape(id))
}
