package backend

import (
	"context"
	"log"
	"net/http"
	"sync"

	"chat-client/internal/remote"
)

// sessionState holds the signed-in credential and its watchers.
type sessionState struct {
	mu        sync.Mutex
	token     string
	uid       string
	watchers  map[int]chan remote.Session
	nextWatch int
}

func (b *Backend) currentToken() string {
	b.session.mu.Lock()
	defer b.session.mu.Unlock()
	return b.session.token
}

// Register creates an account without opening a session. The returned
// token is kept so the profile writes that precede the first sign-in
// authenticate; no session event fires until SignIn.
func (b *Backend) Register(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		UID   string `json:"uid"`
		Token string `json:"token"`
	}
	err := b.doJSON(ctx, http.MethodPost, "/auth/register", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if statusOf(err) == http.StatusConflict {
		return "", remote.ErrEmailTaken
	}
	if err != nil {
		return "", err
	}

	b.session.mu.Lock()
	b.session.token = resp.Token
	b.session.mu.Unlock()
	return resp.UID, nil
}

func (b *Backend) SignIn(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		UID   string `json:"uid"`
		Token string `json:"token"`
	}
	err := b.doJSON(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if statusOf(err) == http.StatusUnauthorized {
		return "", remote.ErrInvalidCreds
	}
	if err != nil {
		return "", err
	}

	b.session.mu.Lock()
	b.session.token = resp.Token
	b.session.uid = resp.UID
	b.broadcastLocked()
	b.session.mu.Unlock()
	return resp.UID, nil
}

// SignOut drops the token locally. Tokens are stateless on the
// backend, so there is nothing to revoke.
func (b *Backend) SignOut(ctx context.Context) error {
	b.session.mu.Lock()
	b.session.token = ""
	b.session.uid = ""
	b.broadcastLocked()
	b.session.mu.Unlock()
	b.closeSocket()
	return nil
}

// Sessions delivers the current session immediately, then every change.
func (b *Backend) Sessions(ctx context.Context) (<-chan remote.Session, remote.CancelFunc, error) {
	ch := make(chan remote.Session, 8)

	b.session.mu.Lock()
	id := b.session.nextWatch
	b.session.nextWatch++
	b.session.watchers[id] = ch
	ch <- remote.Session{UID: b.session.uid}
	b.session.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.session.mu.Lock()
			delete(b.session.watchers, id)
			b.session.mu.Unlock()
			close(ch)
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			cancel()
		}()
	}
	return ch, cancel, nil
}

func (b *Backend) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	return b.doJSON(ctx, http.MethodPatch, "/auth/profile", map[string]string{
		"display_name": displayName,
		"photo_url":    photoURL,
	}, nil)
}

func (b *Backend) broadcastLocked() {
	for _, ch := range b.session.watchers {
		select {
		case ch <- remote.Session{UID: b.session.uid}:
		default:
			log.Printf("session watcher backlogged, dropping event")
		}
	}
}
