package remote

import (
	"context"
	"errors"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid email or password")
)

// Session is one auth-state event. A zero UID means signed out.
type Session struct {
	UID string
}

// Authenticated reports whether the session carries a credential.
func (s Session) Authenticated() bool {
	return s.UID != ""
}

// AuthService is the credential collaborator. The uid it issues doubles
// as the profile document id in the store.
type AuthService interface {
	// Register creates an identity for the credential pair without
	// opening a session, so the caller can write the profile document
	// before the first session resolves.
	Register(ctx context.Context, email, password string) (string, error)
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context) error
	// Sessions delivers the current session immediately and every
	// subsequent auth-state change until cancel or ctx done.
	Sessions(ctx context.Context) (<-chan Session, CancelFunc, error)
	UpdateProfile(ctx context.Context, displayName, photoURL string) error
}
