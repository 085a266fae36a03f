package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/emulator"
	"chat-client/internal/models"
	"chat-client/internal/remote"
)

func waitForState(t *testing.T, states <-chan State) State {
	t.Helper()
	select {
	case st := <-states:
		return st
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session state")
		return State{}
	}
}

func TestManagerResolvesProfile(t *testing.T) {
	store := emulator.NewStore()
	auth := emulator.NewAuth()
	ctx := context.Background()

	uid, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, models.CollectionUsers, uid, models.User{
		UID:      uid,
		Username: "alice",
	}))

	m := NewManager(auth, store)
	require.NoError(t, m.Run(ctx))
	defer m.Close()

	st := waitForState(t, m.States())
	assert.Equal(t, Unauthenticated, st.Phase)

	_, err = auth.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	st = waitForState(t, m.States())
	require.Equal(t, Authenticated, st.Phase)
	assert.Equal(t, "alice", st.User.Username)
	assert.Equal(t, uid, st.User.UID)
	assert.Equal(t, Authenticated, m.Current().Phase)
}

func TestManagerSignsOutOrphanedCredential(t *testing.T) {
	store := emulator.NewStore()
	auth := emulator.NewAuth()
	ctx := context.Background()

	// Account exists, profile document does not.
	_, err := auth.Register(ctx, "ghost@example.com", "secret1")
	require.NoError(t, err)

	m := NewManager(auth, store)
	require.NoError(t, m.Run(ctx))
	defer m.Close()

	st := waitForState(t, m.States())
	assert.Equal(t, Unauthenticated, st.Phase)

	_, err = auth.SignIn(ctx, "ghost@example.com", "secret1")
	require.NoError(t, err)

	// The orphaned credential resolves to signed out, twice: once from
	// the resolution itself, once from the sign-out it triggers.
	st = waitForState(t, m.States())
	assert.Equal(t, Unauthenticated, st.Phase)
	st = waitForState(t, m.States())
	assert.Equal(t, Unauthenticated, st.Phase)
}

func TestManagerSurfacesLookupFailure(t *testing.T) {
	auth := emulator.NewAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	store := &failingStore{err: assertErr}
	m := NewManager(auth, store)
	require.NoError(t, m.Run(ctx))
	defer m.Close()

	waitForState(t, m.States())

	_, err = auth.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	st := waitForState(t, m.States())
	require.Equal(t, Failed, st.Phase)
	assert.ErrorIs(t, st.Err, assertErr)
}

var assertErr = remoteError("store unavailable")

type remoteError string

func (e remoteError) Error() string { return string(e) }

// failingStore fails every Get; nothing else is exercised here.
type failingStore struct {
	remote.DocumentStore
	err error
}

func (f *failingStore) Get(ctx context.Context, collection, id string) (remote.Document, error) {
	return remote.Document{}, f.err
}
