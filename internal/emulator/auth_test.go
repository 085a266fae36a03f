package emulator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-client/internal/remote"
)

func TestRegisterDoesNotOpenSession(t *testing.T) {
	auth := NewAuth()
	ctx := context.Background()

	sessions, cancel, err := auth.Sessions(ctx)
	require.NoError(t, err)
	defer cancel()

	assert.False(t, (<-sessions).Authenticated())

	uid, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	select {
	case sess := <-sessions:
		t.Fatalf("unexpected session event after register: %+v", sess)
	default:
	}

	got, err := auth.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	sess := <-sessions
	assert.Equal(t, uid, sess.UID)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth := NewAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "a@example.com", "other")
	require.ErrorIs(t, err, remote.ErrEmailTaken)
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	auth := NewAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.SignIn(ctx, "a@example.com", "wrong")
	require.ErrorIs(t, err, remote.ErrInvalidCreds)

	_, err = auth.SignIn(ctx, "unknown@example.com", "secret1")
	require.ErrorIs(t, err, remote.ErrInvalidCreds)
}

func TestSignOutBroadcastsEmptySession(t *testing.T) {
	auth := NewAuth()
	ctx := context.Background()

	_, err := auth.Register(ctx, "a@example.com", "secret1")
	require.NoError(t, err)
	_, err = auth.SignIn(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	sessions, cancel, err := auth.Sessions(ctx)
	require.NoError(t, err)
	defer cancel()
	assert.True(t, (<-sessions).Authenticated())

	require.NoError(t, auth.SignOut(ctx))
	assert.False(t, (<-sessions).Authenticated())
}
