// Package feed maintains the live subscriptions of an authenticated
// session and projects each delivered snapshot into a render-ready,
// locally owned view.
package feed

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/remote"
)

// Server-side bounds for the home-screen subscriptions.
const (
	RoomListLimit  = 20
	StoryListLimit = 20
)

// Feed holds the four home-screen subscriptions: chats, rooms, pending
// friend requests and recent stories. It is owned by a single session
// and torn down when the session ends.
type Feed struct {
	mu       sync.RWMutex
	uid      string
	chats    []models.Chat
	rooms    []models.Room
	requests []models.FriendRequest
	stories  []models.Story
	cancels  []remote.CancelFunc
	updates  chan struct{}
	closed   bool
}

// Open starts the four live subscriptions for uid. On any subscription
// failure the feed is closed and the error returned; a half-open feed
// is never handed out.
func Open(ctx context.Context, store remote.DocumentStore, uid string) (*Feed, error) {
	f := &Feed{
		uid:     uid,
		updates: make(chan struct{}, 1),
	}

	subs := []struct {
		query remote.Query
		apply remote.SnapshotFunc
	}{
		{
			query: remote.Query{
				Collection: models.CollectionChats,
				Filters:    []remote.Filter{{Field: "participants", Op: remote.OpArrayContains, Value: uid}},
			},
			apply: f.applyChats,
		},
		{
			query: remote.Query{
				Collection: models.CollectionRooms,
				Limit:      RoomListLimit,
			},
			apply: f.applyRooms,
		},
		{
			query: remote.Query{
				Collection: models.CollectionRequests,
				Filters: []remote.Filter{
					{Field: "toUid", Op: remote.OpEqual, Value: uid},
					{Field: "status", Op: remote.OpEqual, Value: models.RequestPending},
				},
			},
			apply: f.applyRequests,
		},
		{
			query: remote.Query{
				Collection: models.CollectionStories,
				OrderBy:    "createdAt",
				Descending: true,
				Limit:      StoryListLimit,
			},
			apply: f.applyStories,
		},
	}

	for _, sub := range subs {
		cancel, err := store.Subscribe(ctx, sub.query, sub.apply)
		if err != nil {
			f.Close()
			return nil, err
		}
		f.cancels = append(f.cancels, cancel)
	}
	return f, nil
}

// Chats returns the conversations sorted by last-message time,
// newest first. The caller owns the returned slice.
func (f *Feed) Chats() []models.Chat {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Chat, len(f.chats))
	copy(out, f.chats)
	return out
}

// Rooms returns the current room list.
func (f *Feed) Rooms() []models.Room {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.Room, len(f.rooms))
	copy(out, f.rooms)
	return out
}

// Requests returns the pending friend requests addressed to this user.
func (f *Feed) Requests() []models.FriendRequest {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]models.FriendRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Stories returns the recent stories still fresh at now. Expiry is
// evaluated here, at render time, never by mutating the store.
func (f *Feed) Stories(now time.Time) []models.Story {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FreshStories(f.stories, now)
}

// Updates signals, coalesced, whenever any snapshot changed.
func (f *Feed) Updates() <-chan struct{} {
	return f.updates
}

// Close cancels every subscription. Safe to call more than once.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	cancels := f.cancels
	f.cancels = nil
	f.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

func (f *Feed) applyChats(snap remote.Snapshot) {
	chats, err := remote.Decode[models.Chat](snap)
	if err != nil {
		log.Printf("feed: decode chats snapshot: %v", err)
		return
	}
	// The store cannot order an array-contains query, so freshness
	// order is derived locally on every snapshot.
	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].LastMessageTime.After(chats[j].LastMessageTime.Time)
	})
	f.mu.Lock()
	f.chats = chats
	f.mu.Unlock()
	observability.IncSnapshotApplied("chats")
	f.notify()
}

func (f *Feed) applyRooms(snap remote.Snapshot) {
	rooms, err := remote.Decode[models.Room](snap)
	if err != nil {
		log.Printf("feed: decode rooms snapshot: %v", err)
		return
	}
	f.mu.Lock()
	f.rooms = rooms
	f.mu.Unlock()
	observability.IncSnapshotApplied("rooms")
	f.notify()
}

func (f *Feed) applyRequests(snap remote.Snapshot) {
	requests, err := remote.Decode[models.FriendRequest](snap)
	if err != nil {
		log.Printf("feed: decode requests snapshot: %v", err)
		return
	}
	f.mu.Lock()
	f.requests = requests
	f.mu.Unlock()
	observability.IncSnapshotApplied("requests")
	f.notify()
}

func (f *Feed) applyStories(snap remote.Snapshot) {
	stories, err := remote.Decode[models.Story](snap)
	if err != nil {
		log.Printf("feed: decode stories snapshot: %v", err)
		return
	}
	f.mu.Lock()
	f.stories = stories
	f.mu.Unlock()
	observability.IncSnapshotApplied("stories")
	f.notify()
}

func (f *Feed) notify() {
	select {
	case f.updates <- struct{}{}:
	default:
	}
}
