package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"chat-client/internal/remote"
)

// Store implements remote.DocumentStore on top of Postgres, keeping
// every document as a jsonb blob keyed by (collection, id). Live
// subscriptions are served by re-running the query after each write
// that touches the subscription's collection.
type Store struct {
	db  *sqlx.DB
	now func() time.Time

	mu      sync.Mutex
	subs    map[int]*subscription
	nextSub int
}

type subscription struct {
	query remote.Query
	fn    remote.SnapshotFunc

	// mu serializes deliveries. The query runs inside it, so each
	// delivered snapshot is current as of its own delivery and later
	// deliveries never carry older data.
	mu sync.Mutex
}

var _ remote.DocumentStore = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:   db,
		now:  time.Now,
		subs: make(map[int]*subscription),
	}
}

// SetClock overrides the commit clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Subscribe registers the subscription before evaluating it, so a
// write committed while the initial snapshot is being computed still
// reaches the subscriber through its broadcast.
func (s *Store) Subscribe(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.CancelFunc, error) {
	sub := &subscription{query: q, fn: fn}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	s.mu.Unlock()

	if err := s.refresh(ctx, sub); err != nil {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		return nil, fmt.Errorf("initial snapshot for %s: %w", q.Collection, err)
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}, nil
}

// refresh re-evaluates one subscription and delivers the result.
func (s *Store) refresh(ctx context.Context, sub *subscription) error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	snap, err := s.RunQuery(ctx, sub.query)
	if err != nil {
		return err
	}
	sub.fn(snap)
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return remote.Document{ID: id, Data: data}, nil
}

func (s *Store) RunQuery(ctx context.Context, q remote.Query) (remote.Snapshot, error) {
	stmt, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}

	type docRow struct {
		ID   string `db:"id"`
		Data []byte `db:"data"`
	}
	var rows []docRow
	if err := s.db.SelectContext(ctx, &rows, stmt, args...); err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}

	snap := make(remote.Snapshot, 0, len(rows))
	for _, r := range rows {
		snap = append(snap, remote.Document{ID: r.ID, Data: r.Data})
	}
	return snap, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	data, err := s.prepare(doc)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	s.broadcast(ctx, collection)
	return nil
}

func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := s.prepare(fields)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if affected == 0 {
		return remote.ErrNotFound
	}
	s.broadcast(ctx, collection)
	return nil
}

func (s *Store) ArrayUnion(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	wrap := func(err error) error {
		return fmt.Errorf("array union %s/%s: %w", collection, id, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.GetContext(ctx, &raw,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.ErrNotFound
	}
	if err != nil {
		return wrap(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return wrap(err)
	}

	arr, _ := doc[field].([]any)
	normalized, err := remote.NormalizeValue(elem)
	if err != nil {
		return wrap(err)
	}
	if remote.ContainsElement(arr, normalized, matchKey) {
		return nil
	}
	doc[field] = append(arr, normalized)
	remote.ResolveTimestamps(doc, s.now())

	data, err := json.Marshal(doc)
	if err != nil {
		return wrap(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET data = $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2`,
		collection, id, data); err != nil {
		return wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	s.broadcast(ctx, collection)
	return nil
}

func (s *Store) ArrayRemove(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	wrap := func(err error) error {
		return fmt.Errorf("array remove %s/%s: %w", collection, id, err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.GetContext(ctx, &raw,
		"SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE", collection, id)
	if errors.Is(err, sql.ErrNoRows) {
		return remote.ErrNotFound
	}
	if err != nil {
		return wrap(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return wrap(err)
	}

	arr, _ := doc[field].([]any)
	normalized, err := remote.NormalizeValue(elem)
	if err != nil {
		return wrap(err)
	}
	kept, removed := remote.RemoveElement(arr, normalized, matchKey)
	if !removed {
		return nil
	}
	doc[field] = kept

	data, err := json.Marshal(doc)
	if err != nil {
		return wrap(err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET data = $3, updated_at = NOW()
		WHERE collection = $1 AND id = $2`,
		collection, id, data); err != nil {
		return wrap(err)
	}
	if err := tx.Commit(); err != nil {
		return wrap(err)
	}
	s.broadcast(ctx, collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	s.broadcast(ctx, collection)
	return nil
}

// prepare normalizes a write payload and replaces timestamp sentinels,
// returning the jsonb blob to persist.
func (s *Store) prepare(doc any) ([]byte, error) {
	m, err := remote.NormalizeDocument(doc)
	if err != nil {
		return nil, err
	}
	remote.ResolveTimestamps(m, s.now())
	return json.Marshal(m)
}

// broadcast re-runs every subscription over the touched collection and
// pushes the fresh snapshot. Callbacks run outside the registry lock.
func (s *Store) broadcast(ctx context.Context, collection string) {
	s.mu.Lock()
	matched := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.query.Collection == collection {
			matched = append(matched, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range matched {
		if err := s.refresh(ctx, sub); err != nil {
			log.Printf("pgstore: refresh subscription on %s: %v", collection, err)
		}
	}
}
