// Package client is the application core: it reconciles the live
// subscriptions, applies optimistic local mutations and exposes the
// render-ready view state the presentation layer draws from.
package client

import (
	"context"
	"log"
	"sync"
	"time"

	"chat-client/internal/capability"
	"chat-client/internal/feed"
	"chat-client/internal/models"
	"chat-client/internal/remote"
	"chat-client/internal/session"
)

// View names the screen the client is on.
type View string

const (
	ViewAuth View = "auth"
	ViewHome View = "home"
	ViewChat View = "chat"
	ViewRoom View = "room"
)

// Client owns the whole client-side state: the resolved session, the
// live subscription set, the open chat or room, and the microphone
// capability. All remote effects flow back in through subscriptions.
type Client struct {
	store    remote.DocumentStore
	auth     remote.AuthService
	blobs    remote.BlobStore
	devices  remote.Devices
	sessions *session.Manager
	mic      *capability.Holder

	mu             sync.RWMutex
	view           View
	user           models.User
	signedIn       bool
	feed           *feed.Feed
	thread         *feed.Thread
	activeChat     models.Chat
	activeChatUser models.User
	activeRoom     models.Room
	compose        string

	notices chan Notice
	now     func() time.Time
}

// New wires a client to its collaborators.
func New(store remote.DocumentStore, auth remote.AuthService, blobs remote.BlobStore, devices remote.Devices) *Client {
	return &Client{
		store:    store,
		auth:     auth,
		blobs:    blobs,
		devices:  devices,
		sessions: session.NewManager(auth, store),
		mic:      capability.NewHolder(),
		view:     ViewAuth,
		notices:  make(chan Notice, 16),
		now:      time.Now,
	}
}

// Run starts session resolution and the state loop. It returns once
// started; the loop lives until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if err := c.sessions.Run(ctx); err != nil {
		return err
	}
	go func() {
		for {
			select {
			case st := <-c.sessions.States():
				c.applySession(ctx, st)
			case <-ctx.Done():
				c.teardown()
				c.sessions.Close()
				return
			}
		}
	}()
	return nil
}

// View returns the current screen.
func (c *Client) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.view
}

// CurrentUser returns the signed-in profile, if any.
func (c *Client) CurrentUser() (models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user, c.signedIn
}

// Feed returns the live subscription set, nil while signed out.
func (c *Client) Feed() *feed.Feed {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feed
}

// Thread returns the open chat's message subscription, nil when no
// chat is open.
func (c *Client) Thread() *feed.Thread {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.thread
}

// ActiveChat returns the open chat and its other participant.
func (c *Client) ActiveChat() (models.Chat, models.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeChat, c.activeChatUser, c.view == ViewChat
}

// ActiveRoom returns the room the client is in, if any.
func (c *Client) ActiveRoom() (models.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.activeRoom, c.view == ViewRoom
}

// MicEnabled reports whether the held microphone tracks are live.
func (c *Client) MicEnabled() bool {
	return c.mic.Enabled()
}

// MicHeld reports whether a capture stream is currently held.
func (c *Client) MicHeld() bool {
	return c.mic.Held()
}

// Notices delivers tagged outcomes for the presentation layer.
func (c *Client) Notices() <-chan Notice {
	return c.notices
}

// SetCompose stores the message draft.
func (c *Client) SetCompose(text string) {
	c.mu.Lock()
	c.compose = text
	c.mu.Unlock()
}

// Compose returns the current message draft.
func (c *Client) Compose() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.compose
}

func (c *Client) applySession(ctx context.Context, st session.State) {
	switch st.Phase {
	case session.Authenticated:
		c.mu.Lock()
		sameUser := c.signedIn && c.user.UID == st.User.UID
		c.user = st.User
		c.signedIn = true
		if sameUser {
			c.mu.Unlock()
			return
		}
		if c.feed != nil {
			c.feed.Close()
		}
		c.mu.Unlock()

		f, err := feed.Open(ctx, c.store, st.User.UID)
		if err != nil {
			c.notify(Notice{Op: OpSession, Err: err})
			return
		}
		c.mu.Lock()
		c.feed = f
		c.view = ViewHome
		c.mu.Unlock()

	case session.Failed:
		c.notify(Notice{Op: OpSession, Err: st.Err})
		c.teardown()

	default:
		c.teardown()
	}
}

// teardown returns the client to the unauthenticated state: every
// subscription cancelled, the microphone released, local state cleared.
func (c *Client) teardown() {
	c.mu.Lock()
	f, t := c.feed, c.thread
	c.feed = nil
	c.thread = nil
	c.user = models.User{}
	c.signedIn = false
	c.activeChat = models.Chat{}
	c.activeChatUser = models.User{}
	c.activeRoom = models.Room{}
	c.compose = ""
	c.view = ViewAuth
	c.mu.Unlock()

	if t != nil {
		t.Close()
	}
	if f != nil {
		f.Close()
	}
	c.mic.Release()
}

func (c *Client) requireUser() (models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.signedIn {
		return models.User{}, ErrNotSignedIn
	}
	return c.user, nil
}

func logf(format string, args ...any) {
	log.Printf("client: "+format, args...)
}
