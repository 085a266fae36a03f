package remote

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrNotFound = errors.New("document not found")

// ServerTimestamp is a sentinel field value. A store replaces it at
// commit time with its own clock, in Unix milliseconds, so creation
// times order consistently across clients.
const ServerTimestamp = "__server_timestamp__"

// Filter operators understood by the store.
const (
	OpEqual         = "=="
	OpArrayContains = "array-contains"
)

// Filter restricts a query to documents whose field matches the value
// under the given operator.
type Filter struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value"`
}

// Query describes a standing or one-shot query against one collection.
// A zero OrderBy means store order; a zero Limit means unbounded.
type Query struct {
	Collection string   `json:"collection"`
	Filters    []Filter `json:"filters,omitempty"`
	OrderBy    string   `json:"orderBy,omitempty"`
	Descending bool     `json:"descending,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// Document is one stored document: its id plus the raw JSON body.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the document body into v and then overlays the
// document id, so model structs with an `id` tag pick it up.
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return err
	}
	idJSON, err := json.Marshal(struct {
		ID string `json:"id"`
	}{d.ID})
	if err != nil {
		return err
	}
	return json.Unmarshal(idJSON, v)
}

// Snapshot is one delivered result set, internally consistent and
// already ordered and bounded by the store.
type Snapshot []Document

// Decode unmarshals every document of a snapshot into a typed slice.
func Decode[T any](snap Snapshot) ([]T, error) {
	out := make([]T, 0, len(snap))
	for _, doc := range snap {
		var v T
		if err := doc.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// SnapshotFunc receives each snapshot of a live subscription, in
// delivery order.
type SnapshotFunc func(Snapshot)

// CancelFunc tears down a subscription or watch. Safe to call more
// than once.
type CancelFunc func()

// DocumentStore is the remote document database the client is a thin
// view over. All durability, query execution and fan-out live behind
// this interface.
type DocumentStore interface {
	// Subscribe registers a live query. fn is called with the initial
	// snapshot and again whenever matching data changes, until the
	// returned CancelFunc is called or ctx is done.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (CancelFunc, error)
	Get(ctx context.Context, collection, id string) (Document, error)
	RunQuery(ctx context.Context, q Query) (Snapshot, error)
	// Set creates or fully replaces the document at (collection, id).
	Set(ctx context.Context, collection, id string, doc any) error
	// Add creates a document with a store-generated id.
	Add(ctx context.Context, collection string, doc any) (string, error)
	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// ArrayUnion appends elem to an array field unless an element with
	// the same matchKey value is already present.
	ArrayUnion(ctx context.Context, collection, id, field string, elem any, matchKey string) error
	// ArrayRemove removes every element matching elem from an array
	// field. Removing an element that is not present is a no-op.
	ArrayRemove(ctx context.Context, collection, id, field string, elem any, matchKey string) error
	Delete(ctx context.Context, collection, id string) error
}
