// Package emulator provides in-memory implementations of the remote
// collaborators. They back the test suite and the dev server when no
// database is configured.
package emulator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"chat-client/internal/remote"
)

// Store is an in-memory document store with live subscriptions. Every
// committed write re-evaluates the standing queries of the touched
// collection and pushes fresh snapshots to their subscribers.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subs        map[int]*subscriber
	nextSub     int
	seq         int
	now         func() time.Time
}

// subscriber tracks the sequence number of its last applied snapshot.
// Snapshots are computed under the store lock at commit time but
// applied outside it, so a guard is needed to keep a slower older
// delivery from landing after a fresher one.
type subscriber struct {
	query remote.Query
	fn    remote.SnapshotFunc

	mu        sync.Mutex
	delivered int
}

// NewStore creates an empty store using the wall clock for
// server-assigned timestamps.
func NewStore() *Store {
	return &Store{
		collections: make(map[string]map[string]map[string]any),
		subs:        make(map[int]*subscriber),
		now:         time.Now,
	}
}

// SetClock overrides the commit clock. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Subscribe registers a live query and synchronously delivers the
// initial snapshot. A write racing the registration supersedes the
// initial snapshot instead of being shadowed by it.
func (s *Store) Subscribe(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.CancelFunc, error) {
	sub := &subscriber{query: q, fn: fn, delivered: -1}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = sub
	initial := delivery{sub: sub, seq: s.seq, snap: s.evaluateLocked(q)}
	s.mu.Unlock()

	deliver([]delivery{initial})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			cancel()
		}()
	}
	return cancel, nil
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return remote.Document{}, remote.ErrNotFound
	}
	return remote.EncodeDocument(id, doc), nil
}

// RunQuery executes a one-shot query.
func (s *Store) RunQuery(ctx context.Context, q remote.Query) (remote.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluateLocked(q), nil
}

// Set creates or replaces the document at (collection, id).
func (s *Store) Set(ctx context.Context, collection, id string, doc any) error {
	data, err := remote.NormalizeDocument(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	remote.ResolveTimestamps(data, s.now())
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]map[string]any)
	}
	s.collections[collection][id] = data
	notify := s.snapshotsLocked(collection)
	s.mu.Unlock()

	deliver(notify)
	return nil
}

// Add creates a document with a generated id.
func (s *Store) Add(ctx context.Context, collection string, doc any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, doc); err != nil {
		return "", err
	}
	return id, nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := remote.NormalizeDocument(fields)
	if err != nil {
		return err
	}
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return remote.ErrNotFound
	}
	remote.ResolveTimestamps(data, s.now())
	for k, v := range data {
		doc[k] = v
	}
	notify := s.snapshotsLocked(collection)
	s.mu.Unlock()

	deliver(notify)
	return nil
}

// ArrayUnion appends elem to an array field unless an equal element
// (or one with the same matchKey value) is already present.
func (s *Store) ArrayUnion(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	normalized, err := remote.NormalizeValue(elem)
	if err != nil {
		return err
	}
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return remote.ErrNotFound
	}
	arr, _ := doc[field].([]any)
	if remote.ContainsElement(arr, normalized, matchKey) {
		s.mu.Unlock()
		return nil
	}
	wrapped := map[string]any{field: normalized}
	remote.ResolveTimestamps(wrapped, s.now())
	doc[field] = append(arr, wrapped[field])
	notify := s.snapshotsLocked(collection)
	s.mu.Unlock()

	deliver(notify)
	return nil
}

// ArrayRemove drops every matching element from an array field in one
// committed step, so concurrent removals never shadow each other.
func (s *Store) ArrayRemove(ctx context.Context, collection, id, field string, elem any, matchKey string) error {
	normalized, err := remote.NormalizeValue(elem)
	if err != nil {
		return err
	}
	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return remote.ErrNotFound
	}
	arr, _ := doc[field].([]any)
	kept, removed := remote.RemoveElement(arr, normalized, matchKey)
	if !removed {
		s.mu.Unlock()
		return nil
	}
	doc[field] = kept
	notify := s.snapshotsLocked(collection)
	s.mu.Unlock()

	deliver(notify)
	return nil
}

// Delete removes a document. Deleting a missing document is a no-op.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	if docs, ok := s.collections[collection]; ok {
		delete(docs, id)
	}
	notify := s.snapshotsLocked(collection)
	s.mu.Unlock()

	deliver(notify)
	return nil
}

type delivery struct {
	sub  *subscriber
	seq  int
	snap remote.Snapshot
}

// deliver applies pending snapshots in per-subscriber order, skipping
// any that a fresher delivery has already superseded.
func deliver(notify []delivery) {
	for _, d := range notify {
		d.sub.mu.Lock()
		if d.seq > d.sub.delivered {
			d.sub.delivered = d.seq
			d.sub.fn(d.snap)
		}
		d.sub.mu.Unlock()
	}
}

// snapshotsLocked stamps the commit with the next sequence number and
// re-evaluates every subscription on the collection.
func (s *Store) snapshotsLocked(collection string) []delivery {
	s.seq++
	var notify []delivery
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		sub := s.subs[id]
		if sub.query.Collection != collection {
			continue
		}
		notify = append(notify, delivery{sub: sub, seq: s.seq, snap: s.evaluateLocked(sub.query)})
	}
	return notify
}

func (s *Store) evaluateLocked(q remote.Query) remote.Snapshot {
	type entry struct {
		id   string
		data map[string]any
	}
	var matched []entry
	for id, doc := range s.collections[q.Collection] {
		if remote.MatchesFilters(doc, q.Filters) {
			matched = append(matched, entry{id: id, data: doc})
		}
	}

	// Deterministic base order; ties under OrderBy keep id order.
	sort.Slice(matched, func(i, j int) bool { return matched[i].id < matched[j].id })
	if q.OrderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := remote.CompareValues(matched[i].data[q.OrderBy], matched[j].data[q.OrderBy])
			if q.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	snap := make(remote.Snapshot, 0, len(matched))
	for _, e := range matched {
		snap = append(snap, remote.EncodeDocument(e.id, e.data))
	}
	return snap
}

var _ remote.DocumentStore = (*Store)(nil)
