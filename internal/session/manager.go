// Package session resolves the authenticated identity and gates the
// rest of the client on it.
package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/remote"
)

// Phase of a resolved session.
type Phase int

const (
	// Unauthenticated: no credential session, or it was terminated.
	Unauthenticated Phase = iota
	// Authenticated: credential resolved to an existing profile.
	Authenticated
	// Failed: the profile lookup errored. Surfaced instead of hanging;
	// no retry is attempted.
	Failed
)

// State is one resolved session state.
type State struct {
	Phase Phase
	User  models.User
	Err   error
}

// Manager watches auth-state changes and resolves each one against the
// profile collection. A credential whose profile document is missing is
// treated as orphaned: the credential session is terminated.
type Manager struct {
	auth  remote.AuthService
	store remote.DocumentStore

	mu      sync.RWMutex
	current State

	states chan State
	cancel remote.CancelFunc
}

// NewManager wires a manager to its collaborators.
func NewManager(auth remote.AuthService, store remote.DocumentStore) *Manager {
	return &Manager{
		auth:   auth,
		store:  store,
		states: make(chan State, 8),
	}
}

// Run starts consuming auth-state events. It returns once the watch is
// established; resolution happens in the background until Close or ctx
// done.
func (m *Manager) Run(ctx context.Context) error {
	sessions, cancel, err := m.auth.Sessions(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()

	go func() {
		for sess := range sessions {
			state := m.resolve(ctx, sess)
			m.mu.Lock()
			m.current = state
			m.mu.Unlock()
			m.states <- state
		}
	}()
	return nil
}

// States delivers every resolved state in order.
func (m *Manager) States() <-chan State {
	return m.states
}

// Current returns the most recently resolved state.
func (m *Manager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Close stops the auth watch.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (m *Manager) resolve(ctx context.Context, sess remote.Session) State {
	if !sess.Authenticated() {
		return State{Phase: Unauthenticated}
	}

	doc, err := m.store.Get(ctx, models.CollectionUsers, sess.UID)
	if errors.Is(err, remote.ErrNotFound) {
		// Orphaned credential: the account exists but its profile does
		// not. End the credential session and fall back to signed out.
		log.Printf("session: no profile for uid %s, signing out", sess.UID)
		if err := m.auth.SignOut(ctx); err != nil {
			log.Printf("session: sign out orphaned credential: %v", err)
		}
		return State{Phase: Unauthenticated}
	}
	if err != nil {
		return State{Phase: Failed, Err: err}
	}

	var user models.User
	if err := doc.Decode(&user); err != nil {
		return State{Phase: Failed, Err: err}
	}
	return State{Phase: Authenticated, User: user}
}
