package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/client"
	"chat-client/internal/emulator"
	"chat-client/internal/remote"
	"chat-client/internal/server"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	gin.SetMode(gin.TestMode)
	srv := server.New(
		emulator.NewStore(),
		server.NewMemAccounts(),
		server.NewMemBlobs(),
		server.NewTokenIssuer("test-secret", time.Hour),
		nil,
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func signIn(t *testing.T, b *Backend) string {
	t.Helper()
	ctx := context.Background()
	uid, err := b.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	got, err := b.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, uid, got)
	return uid
}

func TestAuthFlowOverWire(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	sessions, cancel, err := b.Sessions(ctx)
	require.NoError(t, err)
	defer cancel()
	assert.False(t, (<-sessions).Authenticated())

	uid, err := b.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	// Register alone opens no session.
	select {
	case sess := <-sessions:
		t.Fatalf("unexpected session event after register: %+v", sess)
	default:
	}

	_, err = b.Register(ctx, "a@example.com", "other-secret")
	require.ErrorIs(t, err, remote.ErrEmailTaken)

	_, err = b.SignIn(ctx, "a@example.com", "wrong-pass")
	require.ErrorIs(t, err, remote.ErrInvalidCreds)

	got, err := b.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uid, got)
	assert.Equal(t, uid, (<-sessions).UID)

	require.NoError(t, b.UpdateProfile(ctx, "Alice", ""))

	require.NoError(t, b.SignOut(ctx))
	assert.False(t, (<-sessions).Authenticated())
}

func TestDocumentOpsOverWire(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	signIn(t, b)

	require.NoError(t, b.Set(ctx, "rooms", "r1", map[string]any{
		"name":     "late night",
		"speakers": []string{"a"},
	}))

	doc, err := b.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	var room struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, doc.Decode(&room))
	assert.Equal(t, "r1", room.ID)
	assert.Equal(t, "late night", room.Name)

	_, err = b.Get(ctx, "rooms", "missing")
	require.ErrorIs(t, err, remote.ErrNotFound)

	id, err := b.Add(ctx, "rooms", map[string]any{"name": "second"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snap, err := b.RunQuery(ctx, remote.Query{Collection: "rooms"})
	require.NoError(t, err)
	assert.Len(t, snap, 2)

	require.NoError(t, b.Update(ctx, "rooms", "r1", map[string]any{"name": "renamed"}))
	require.ErrorIs(t, b.Update(ctx, "rooms", "missing", map[string]any{"name": "x"}), remote.ErrNotFound)

	require.NoError(t, b.ArrayUnion(ctx, "rooms", "r1", "speakers", "b", ""))
	require.NoError(t, b.ArrayUnion(ctx, "rooms", "r1", "speakers", "b", ""))
	doc, err = b.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	var seats struct {
		Speakers []string `json:"speakers"`
	}
	require.NoError(t, doc.Decode(&seats))
	assert.Equal(t, []string{"a", "b"}, seats.Speakers)

	require.NoError(t, b.Delete(ctx, "rooms", id))
	_, err = b.Get(ctx, "rooms", id)
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestSubscribeOverWire(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	signIn(t, b)

	require.NoError(t, b.Set(ctx, "rooms", "r1", map[string]any{"name": "first"}))

	var mu sync.Mutex
	var snaps []remote.Snapshot
	cancel, err := b.Subscribe(ctx, remote.Query{Collection: "rooms"}, func(snap remote.Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancel()

	// The initial snapshot arrives over the socket.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) == 1 && len(snaps[0]) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Set(ctx, "rooms", "r2", map[string]any{"name": "second"}))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(snaps) >= 2 && len(snaps[len(snaps)-1]) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	count := len(snaps)
	mu.Unlock()

	require.NoError(t, b.Set(ctx, "rooms", "r3", map[string]any{"name": "third"}))
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, count, len(snaps))
	mu.Unlock()
}

func TestBlobsOverWire(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	signIn(t, b)

	handle, err := b.Upload(ctx, "profile_pictures/u1", []byte("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "profile_pictures/u1", handle)

	url, err := b.ResolveURL(ctx, handle)
	require.NoError(t, err)

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestArrayRemoveOverWire(t *testing.T) {
	b := newBackend(t)
	signIn(t, b)
	ctx := context.Background()

	require.NoError(t, b.Set(ctx, "rooms", "r1", map[string]any{"speakers": []string{"a", "b"}}))
	require.NoError(t, b.ArrayRemove(ctx, "rooms", "r1", "speakers", "a", ""))

	doc, err := b.Get(ctx, "rooms", "r1")
	require.NoError(t, err)
	var room struct {
		Speakers []string `json:"speakers"`
	}
	require.NoError(t, doc.Decode(&room))
	assert.Equal(t, []string{"b"}, room.Speakers)

	err = b.ArrayRemove(ctx, "rooms", "missing", "speakers", "a", "")
	require.ErrorIs(t, err, remote.ErrNotFound)
}

func TestClientRegistersOverWire(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := server.New(
		emulator.NewStore(),
		server.NewMemAccounts(),
		server.NewMemBlobs(),
		server.NewTokenIssuer("test-secret", time.Hour),
		nil,
	)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	b := New(ts.URL)
	c := client.New(b, b, b, emulator.NewMic())
	require.NoError(t, c.Run(ctx))

	// The whole registration sequence runs before the first sign-in:
	// username check, profile write, then the session opens.
	require.NoError(t, c.Register(ctx, "amy@example.com", "secret1", "Amy Pond", nil))
	require.Eventually(t, func() bool {
		return c.View() == client.ViewHome
	}, 5*time.Second, 20*time.Millisecond)

	user, ok := c.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "amypond", user.Username)

	// A second device cannot take the same username.
	b2 := New(ts.URL)
	c2 := client.New(b2, b2, b2, emulator.NewMic())
	require.NoError(t, c2.Run(ctx))
	err := c2.Register(ctx, "rory@example.com", "secret1", "AmyPond", nil)
	require.ErrorIs(t, err, client.ErrUsernameTaken)
	assert.Equal(t, client.ViewAuth, c2.View())
}
