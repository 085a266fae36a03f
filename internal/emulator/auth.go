package emulator

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"chat-client/internal/remote"
)

// Auth is an in-memory credential service. It holds at most one
// signed-in session and pushes auth-state changes to its watchers.
type Auth struct {
	mu        sync.Mutex
	accounts  map[string]*account // keyed by email
	current   string              // uid of the signed-in account, "" when signed out
	watchers  map[int]chan remote.Session
	nextWatch int
}

type account struct {
	uid          string
	passwordHash string
	displayName  string
	photoURL     string
}

// NewAuth creates an empty auth service.
func NewAuth() *Auth {
	return &Auth{
		accounts: make(map[string]*account),
		watchers: make(map[int]chan remote.Session),
	}
}

// Register creates an account and returns its uid. It does not open a
// session: the caller writes the profile document first and then signs
// in, so a session never resolves against a missing profile.
func (a *Auth) Register(ctx context.Context, email, password string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.accounts[email]; exists {
		return "", remote.ErrEmailTaken
	}
	hash, err := hashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	uid := uuid.NewString()
	a.accounts[email] = &account{uid: uid, passwordHash: hash}
	return uid, nil
}

// SignIn verifies the credential pair and opens a session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (string, error) {
	a.mu.Lock()
	acct, ok := a.accounts[email]
	if !ok || !verifyPassword(password, acct.passwordHash) {
		a.mu.Unlock()
		return "", remote.ErrInvalidCreds
	}
	a.current = acct.uid
	a.broadcastLocked()
	a.mu.Unlock()
	return acct.uid, nil
}

// SignOut ends the current session.
func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.current = ""
	a.broadcastLocked()
	a.mu.Unlock()
	return nil
}

// Sessions delivers the current session immediately, then every change.
func (a *Auth) Sessions(ctx context.Context) (<-chan remote.Session, remote.CancelFunc, error) {
	ch := make(chan remote.Session, 8)

	a.mu.Lock()
	id := a.nextWatch
	a.nextWatch++
	a.watchers[id] = ch
	ch <- remote.Session{UID: a.current}
	a.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.watchers, id)
			a.mu.Unlock()
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

// UpdateProfile stores display fields on the signed-in account.
func (a *Auth) UpdateProfile(ctx context.Context, displayName, photoURL string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, acct := range a.accounts {
		if acct.uid == a.current && a.current != "" {
			if displayName != "" {
				acct.displayName = displayName
			}
			if photoURL != "" {
				acct.photoURL = photoURL
			}
			return nil
		}
	}
	return remote.ErrInvalidCreds
}

func (a *Auth) broadcastLocked() {
	for _, ch := range a.watchers {
		select {
		case ch <- remote.Session{UID: a.current}:
		default:
			log.Printf("auth watcher backlogged, dropping session event")
		}
	}
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return fmt.Sprintf("%s:%s",
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func verifyPassword(password, encoded string) bool {
	saltB64, hashB64, ok := strings.Cut(encoded, ":")
	if !ok {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false
	}
	hash := argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
	return subtle.ConstantTimeCompare(hash, expected) == 1
}

var _ remote.AuthService = (*Auth)(nil)
