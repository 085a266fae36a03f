package client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-client/internal/capability"
	"chat-client/internal/feed"
	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/remote"
)

const fallbackAvatarFormat = "https://api.dicebear.com/7.x/avataaars/svg?seed=%s"

// Register creates an identity. The username is checked for uniqueness
// before any write happens; on success the new identity is signed in
// and the session loop takes the client to the home view.
func (c *Client) Register(ctx context.Context, email, password, username string, photo []byte) error {
	username = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(username), " ", ""))
	if username == "" {
		return c.fail(OpRegister, ErrEmptyUsername)
	}

	snap, err := c.store.RunQuery(ctx, remote.Query{
		Collection: models.CollectionUsers,
		Filters:    []remote.Filter{{Field: "username", Op: remote.OpEqual, Value: username}},
	})
	if err != nil {
		return c.fail(OpRegister, err)
	}
	if len(snap) > 0 {
		return c.fail(OpRegister, ErrUsernameTaken)
	}

	uid, err := c.auth.Register(ctx, email, password)
	if err != nil {
		return c.fail(OpRegister, err)
	}

	photoURL := fmt.Sprintf(fallbackAvatarFormat, username)
	if len(photo) > 0 {
		url, err := c.uploadImage(ctx, profileImagePath(uid), photo)
		if err != nil {
			return c.fail(OpRegister, err)
		}
		photoURL = url
	}

	user := models.User{
		UID:         uid,
		Email:       email,
		Username:    username,
		DisplayName: username,
		PhotoURL:    photoURL,
		IsOnline:    true,
	}
	if err := c.store.Set(ctx, models.CollectionUsers, uid, user); err != nil {
		return c.fail(OpRegister, err)
	}
	if err := c.auth.UpdateProfile(ctx, username, photoURL); err != nil {
		logf("update auth profile after register: %v", err)
	}
	if _, err := c.auth.SignIn(ctx, email, password); err != nil {
		return c.fail(OpRegister, err)
	}
	return nil
}

// SignIn opens a session. The view transition follows from the
// resulting session event, not from this call.
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	if _, err := c.auth.SignIn(ctx, email, password); err != nil {
		return c.fail(OpSignIn, err)
	}
	return nil
}

// SignOut ends the session; the session loop tears everything down.
func (c *Client) SignOut(ctx context.Context) error {
	return c.auth.SignOut(ctx)
}

// SendFriendRequest looks the target up by username and files a
// pending request carrying the sender's display snapshot.
func (c *Client) SendFriendRequest(ctx context.Context, username string) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}

	snap, err := c.store.RunQuery(ctx, remote.Query{
		Collection: models.CollectionUsers,
		Filters:    []remote.Filter{{Field: "username", Op: remote.OpEqual, Value: strings.TrimSpace(username)}},
	})
	if err != nil {
		return c.fail(OpSendRequest, err)
	}
	if len(snap) == 0 {
		return c.fail(OpSendRequest, ErrUserNotFound)
	}
	var target models.User
	if err := snap[0].Decode(&target); err != nil {
		return c.fail(OpSendRequest, err)
	}
	if target.UID == me.UID {
		return c.fail(OpSendRequest, ErrSelfRequest)
	}

	_, err = c.store.Add(ctx, models.CollectionRequests, map[string]any{
		"fromUid":   me.UID,
		"fromName":  me.DisplayName,
		"fromPhoto": me.PhotoURL,
		"toUid":     target.UID,
		"status":    models.RequestPending,
		"createdAt": remote.ServerTimestamp,
	})
	if err != nil {
		return c.fail(OpSendRequest, err)
	}
	c.notify(Notice{Op: OpSendRequest, Info: "request sent"})
	return nil
}

// HandleRequest resolves a pending request. Acceptance creates the
// pair's single conversation at its deterministic id before flipping
// the status; both outcomes are terminal.
func (c *Client) HandleRequest(ctx context.Context, req models.FriendRequest, accept bool) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return c.fail(OpHandleRequest, ErrRequestResolved)
	}

	status := models.RequestRejected
	if accept {
		status = models.RequestAccepted
		chatID := models.ChatID(req.FromUID, me.UID)
		// Set at the deterministic id: a second acceptance recreates
		// the same document instead of duplicating the conversation.
		err := c.store.Set(ctx, models.CollectionChats, chatID, map[string]any{
			"participants":    []string{req.FromUID, me.UID},
			"lastMessage":     "Chat created",
			"lastMessageTime": remote.ServerTimestamp,
		})
		if err != nil {
			return c.fail(OpHandleRequest, err)
		}
	}
	if err := c.store.Update(ctx, models.CollectionRequests, req.ID, map[string]any{"status": status}); err != nil {
		return c.fail(OpHandleRequest, err)
	}
	return nil
}

// OpenChat resolves the other participant and opens the message
// subscription for the chat.
func (c *Client) OpenChat(ctx context.Context, chat models.Chat) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}
	other := chat.OtherParticipant(me.UID)
	if other == "" {
		return c.fail(OpOpenChat, fmt.Errorf("chat %s has no other participant", chat.ID))
	}

	doc, err := c.store.Get(ctx, models.CollectionUsers, other)
	if err != nil {
		return c.fail(OpOpenChat, err)
	}
	var otherUser models.User
	if err := doc.Decode(&otherUser); err != nil {
		return c.fail(OpOpenChat, err)
	}

	thread, err := feed.OpenThread(ctx, c.store, chat.ID)
	if err != nil {
		return c.fail(OpOpenChat, err)
	}

	c.mu.Lock()
	old := c.thread
	c.thread = thread
	c.activeChat = chat
	c.activeChatUser = otherUser
	c.view = ViewChat
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// CloseChat tears down the thread subscription and returns home.
func (c *Client) CloseChat() {
	c.mu.Lock()
	old := c.thread
	c.thread = nil
	c.activeChat = models.Chat{}
	c.activeChatUser = models.User{}
	if c.view == ViewChat {
		c.view = ViewHome
	}
	c.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// SendMessage sends the compose draft to the open chat. The draft is
// cleared before the remote write resolves; if the write fails, the
// text rides along on the notice so the view can re-populate it.
func (c *Client) SendMessage(ctx context.Context) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.view != ViewChat {
		c.mu.Unlock()
		return ErrNoActiveChat
	}
	text := strings.TrimSpace(c.compose)
	if text == "" {
		c.mu.Unlock()
		return nil
	}
	chatID := c.activeChat.ID
	c.compose = ""
	c.mu.Unlock()

	_, err = c.store.Add(ctx, models.CollectionMessages, map[string]any{
		"chatId":    chatID,
		"senderId":  me.UID,
		"text":      text,
		"createdAt": remote.ServerTimestamp,
	})
	if err != nil {
		observability.IncMutationFailure(string(OpSendMessage))
		c.notify(Notice{Op: OpSendMessage, Err: err, FailedText: text})
		return err
	}

	err = c.store.Update(ctx, models.CollectionChats, chatID, map[string]any{
		"lastMessage":     text,
		"lastMessageTime": remote.ServerTimestamp,
	})
	if err != nil {
		// The message itself is stored; only the preview is stale.
		return c.fail(OpSendMessage, err)
	}
	return nil
}

// CreateRoom creates a party room with the host in the first seat and
// enters it.
func (c *Client) CreateRoom(ctx context.Context, name string) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return c.fail(OpCreateRoom, ErrEmptyRoomName)
	}

	room := models.Room{
		Name:      name,
		HostUID:   me.UID,
		HostName:  me.DisplayName,
		HostPhoto: me.PhotoURL,
		Speakers:  []string{me.UID},
		Viewers:   0,
	}
	id, err := c.store.Add(ctx, models.CollectionRooms, room)
	if err != nil {
		return c.fail(OpCreateRoom, err)
	}
	room.ID = id

	c.enterRoom(ctx, room)
	return nil
}

// JoinRoom enters a room and takes a seat. Entry is optimistic: the
// view switches first, then the seat write lands; a failed write is
// surfaced but does not bounce the user back out.
func (c *Client) JoinRoom(ctx context.Context, room models.Room) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}

	c.enterRoom(ctx, room)

	if err := c.store.ArrayUnion(ctx, models.CollectionRooms, room.ID, "speakers", me.UID, ""); err != nil {
		return c.fail(OpJoinRoom, err)
	}
	return nil
}

// enterRoom switches the view and tries to acquire the microphone.
// Acquisition failure is logged and the room entry proceeds without
// local audio; no retry is attempted.
func (c *Client) enterRoom(ctx context.Context, room models.Room) {
	c.mu.Lock()
	c.activeRoom = room
	c.view = ViewRoom
	c.mu.Unlock()

	if err := c.mic.Acquire(ctx, c.devices, capability.RoomAudio); err != nil {
		logf("mic acquisition failed, entering room without audio: %v", err)
	}
}

// ToggleMic flips the held microphone tracks and returns the new state.
func (c *Client) ToggleMic() bool {
	return c.mic.Toggle()
}

// LeaveRoom releases the microphone, vacates the seat and returns
// home. The room document itself stays behind for others to join.
func (c *Client) LeaveRoom(ctx context.Context) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.view != ViewRoom {
		c.mu.Unlock()
		c.mic.Release()
		return nil
	}
	room := c.activeRoom
	c.activeRoom = models.Room{}
	c.view = ViewHome
	c.mu.Unlock()

	c.mic.Release()

	// Atomic seat removal: concurrent leavers must not shadow each
	// other's writes. A room already deleted needs no vacating.
	err = c.store.ArrayRemove(ctx, models.CollectionRooms, room.ID, "speakers", me.UID, "")
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	if err != nil {
		return c.fail(OpLeaveRoom, err)
	}
	return nil
}

// PostStory uploads the media and creates the story document with an
// empty viewer set.
func (c *Client) PostStory(ctx context.Context, image []byte, caption string) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}
	if len(image) == 0 {
		return c.fail(OpPostStory, ErrNoStoryImage)
	}

	url, err := c.uploadImage(ctx, storyImagePath(me.UID, c.now().UnixMilli()), image)
	if err != nil {
		return c.fail(OpPostStory, err)
	}

	_, err = c.store.Add(ctx, models.CollectionStories, map[string]any{
		"uid":       me.UID,
		"username":  me.DisplayName,
		"userPhoto": me.PhotoURL,
		"imageUrl":  url,
		"text":      caption,
		"createdAt": remote.ServerTimestamp,
		"views":     []models.Viewer{},
	})
	if err != nil {
		return c.fail(OpPostStory, err)
	}
	return nil
}

// DeleteStory removes one of the current user's stories.
func (c *Client) DeleteStory(ctx context.Context, story models.Story) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}
	if story.UID != me.UID {
		return c.fail(OpDeleteStory, ErrNotStoryOwner)
	}
	if err := c.store.Delete(ctx, models.CollectionStories, story.ID); err != nil {
		return c.fail(OpDeleteStory, err)
	}
	return nil
}

// ViewStory records that the current user saw a story. The write is
// detached: it runs on its own, is skipped when the user already
// appears in the viewer set or owns the story, and its errors are
// intentionally discarded, never surfaced.
func (c *Client) ViewStory(story models.Story) {
	me, err := c.requireUser()
	if err != nil || story.UID == me.UID || story.ViewedBy(me.UID) {
		return
	}
	viewer := map[string]any{
		"uid":      me.UID,
		"name":     me.DisplayName,
		"photo":    me.PhotoURL,
		"viewedAt": remote.ServerTimestamp,
	}
	go func() {
		_ = c.store.ArrayUnion(context.Background(), models.CollectionStories, story.ID, "views", viewer, "uid")
	}()
}

// UpdateProfilePhoto uploads a new avatar and points both the profile
// document and the credential profile at it.
func (c *Client) UpdateProfilePhoto(ctx context.Context, image []byte) error {
	me, err := c.requireUser()
	if err != nil {
		return err
	}

	url, err := c.uploadImage(ctx, profileImagePath(me.UID), image)
	if err != nil {
		return c.fail(OpUpdatePhoto, err)
	}
	if err := c.store.Update(ctx, models.CollectionUsers, me.UID, map[string]any{"photoURL": url}); err != nil {
		return c.fail(OpUpdatePhoto, err)
	}
	if err := c.auth.UpdateProfile(ctx, "", url); err != nil {
		logf("update auth profile photo: %v", err)
	}

	c.mu.Lock()
	if c.signedIn && c.user.UID == me.UID {
		c.user.PhotoURL = url
	}
	c.mu.Unlock()
	return nil
}

func (c *Client) uploadImage(ctx context.Context, path string, data []byte) (string, error) {
	handle, err := c.blobs.Upload(ctx, path, data)
	if err != nil {
		return "", err
	}
	return c.blobs.ResolveURL(ctx, handle)
}

func (c *Client) fail(op Op, err error) error {
	observability.IncMutationFailure(string(op))
	c.notify(Notice{Op: op, Err: err})
	return err
}

func profileImagePath(uid string) string {
	return fmt.Sprintf("profile_pictures/%s", uid)
}

func storyImagePath(uid string, unixMillis int64) string {
	return fmt.Sprintf("stories/%s/%d", uid, unixMillis)
}
