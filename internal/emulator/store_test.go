package emulator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/remote"
)

func TestSubscribeDeliversInitialSnapshotAndUpdates(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rooms", "r1", map[string]any{"name": "first"}))

	var snaps []remote.Snapshot
	cancel, err := store.Subscribe(ctx, remote.Query{Collection: "rooms"}, func(snap remote.Snapshot) {
		snaps = append(snaps, snap)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, snaps, 1)
	require.Len(t, snaps[0], 1)

	require.NoError(t, store.Set(ctx, "rooms", "r2", map[string]any{"name": "second"}))
	require.Len(t, snaps, 2)
	assert.Len(t, snaps[1], 2)

	// Writes to other collections do not wake this subscription.
	require.NoError(t, store.Set(ctx, "users", "u1", map[string]any{"username": "alice"}))
	assert.Len(t, snaps, 2)

	cancel()
	require.NoError(t, store.Set(ctx, "rooms", "r3", map[string]any{"name": "third"}))
	assert.Len(t, snaps, 2)
}

func TestRunQueryFiltersOrderAndLimit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, doc := range []map[string]any{
		{"uid": "a", "createdAt": float64(100)},
		{"uid": "b", "createdAt": float64(300)},
		{"uid": "c", "createdAt": float64(200)},
	} {
		require.NoError(t, store.Set(ctx, "stories", string(rune('x'+i)), doc))
	}

	snap, err := store.RunQuery(ctx, remote.Query{
		Collection: "stories",
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, snap, 2)

	var first, second struct {
		UID string `json:"uid"`
	}
	require.NoError(t, snap[0].Decode(&first))
	require.NoError(t, snap[1].Decode(&second))
	assert.Equal(t, "b", first.UID)
	assert.Equal(t, "c", second.UID)
}

func TestRunQueryArrayContains(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "chats", "c1", map[string]any{"participants": []string{"a", "b"}}))
	require.NoError(t, store.Set(ctx, "chats", "c2", map[string]any{"participants": []string{"b", "c"}}))

	snap, err := store.RunQuery(ctx, remote.Query{
		Collection: "chats",
		Filters:    []remote.Filter{{Field: "participants", Op: remote.OpArrayContains, Value: "a"}},
	})
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, "c1", snap[0].ID)
}

func TestServerTimestampResolvedAtCommit(t *testing.T) {
	store := NewStore()
	store.SetClock(func() time.Time { return time.UnixMilli(1700000000000) })
	ctx := context.Background()

	id, err := store.Add(ctx, "messages", map[string]any{
		"text":      "hi",
		"createdAt": remote.ServerTimestamp,
	})
	require.NoError(t, err)

	doc, err := store.Get(ctx, "messages", id)
	require.NoError(t, err)

	var msg struct {
		CreatedAt float64 `json:"createdAt"`
	}
	require.NoError(t, doc.Decode(&msg))
	assert.Equal(t, float64(1700000000000), msg.CreatedAt)
}

func TestArrayUnionDedupesByMatchKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stories", "s1", map[string]any{"views": []any{}}))

	viewer := map[string]any{"uid": "a", "name": "Alice"}
	require.NoError(t, store.ArrayUnion(ctx, "stories", "s1", "views", viewer, "uid"))
	require.NoError(t, store.ArrayUnion(ctx, "stories", "s1", "views", viewer, "uid"))
	require.NoError(t, store.ArrayUnion(ctx, "stories", "s1", "views", map[string]any{"uid": "b"}, "uid"))

	doc, err := store.Get(ctx, "stories", "s1")
	require.NoError(t, err)
	var story struct {
		Views []map[string]any `json:"views"`
	}
	require.NoError(t, doc.Decode(&story))
	assert.Len(t, story.Views, 2)
}

func TestUpdateMergesFields(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "requests", "q1", map[string]any{"status": "pending", "fromUid": "a"}))
	require.NoError(t, store.Update(ctx, "requests", "q1", map[string]any{"status": "accepted"}))

	doc, err := store.Get(ctx, "requests", "q1")
	require.NoError(t, err)
	var req struct {
		Status  string `json:"status"`
		FromUID string `json:"fromUid"`
	}
	require.NoError(t, doc.Decode(&req))
	assert.Equal(t, "accepted", req.Status)
	assert.Equal(t, "a", req.FromUID)
}

func TestUpdateMissingDocument(t *testing.T) {
	store := NewStore()

	err := store.Update(context.Background(), "requests", "missing", map[string]any{"status": "accepted"})
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestDeleteRemovesDocument(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stories", "s1", map[string]any{"uid": "a"}))
	require.NoError(t, store.Delete(ctx, "stories", "s1"))

	_, err := store.Get(ctx, "stories", "s1")
	require.ErrorIs(t, err, remote.ErrNotFound)

	// Deleting again is a no-op.
	require.NoError(t, store.Delete(ctx, "stories", "s1"))
}

func TestArrayRemoveDropsMatchingElements(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rooms", "r1", map[string]any{
		"speakers": []string{"a", "b", "a"},
	}))

	require.NoError(t, store.ArrayRemove(ctx, "rooms", "r1", "speakers", "a", ""))

	doc, err := store.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	var room struct {
		Speakers []string `json:"speakers"`
	}
	require.NoError(t, doc.Decode(&room))
	assert.Equal(t, []string{"b"}, room.Speakers)

	// Removing an element that is not there changes nothing.
	require.NoError(t, store.ArrayRemove(ctx, "rooms", "r1", "speakers", "zz", ""))
	doc, err = store.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	require.NoError(t, doc.Decode(&room))
	assert.Equal(t, []string{"b"}, room.Speakers)
}

func TestArrayRemoveByMatchKey(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "stories", "s1", map[string]any{
		"views": []map[string]any{
			{"uid": "a", "name": "Alice"},
			{"uid": "b", "name": "Bob"},
		},
	}))

	require.NoError(t, store.ArrayRemove(ctx, "stories", "s1", "views",
		map[string]any{"uid": "a"}, "uid"))

	doc, err := store.Get(ctx, "stories", "s1")
	require.NoError(t, err)
	var story struct {
		Views []map[string]any `json:"views"`
	}
	require.NoError(t, doc.Decode(&story))
	require.Len(t, story.Views, 1)
	assert.Equal(t, "b", story.Views[0]["uid"])
}

func TestArrayRemoveMissingDocument(t *testing.T) {
	store := NewStore()
	err := store.ArrayRemove(context.Background(), "rooms", "nope", "speakers", "a", "")
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestSubscribeWriteRacingRegistrationIsNotShadowed(t *testing.T) {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		store := NewStore()
		var mu sync.Mutex
		var snaps []remote.Snapshot

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			cancel, err := store.Subscribe(ctx, remote.Query{Collection: "rooms"}, func(snap remote.Snapshot) {
				mu.Lock()
				snaps = append(snaps, snap)
				mu.Unlock()
			})
			require.NoError(t, err)
			t.Cleanup(cancel)
		}()
		go func() {
			defer wg.Done()
			require.NoError(t, store.Set(ctx, "rooms", "r1", map[string]any{"name": "late"}))
		}()
		wg.Wait()

		// Whatever the interleaving, the last applied snapshot holds
		// the write; a stale initial snapshot never lands on top of it.
		mu.Lock()
		require.NotEmpty(t, snaps)
		last := snaps[len(snaps)-1]
		mu.Unlock()
		require.Len(t, last, 1)
	}
}
