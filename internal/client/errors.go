package client

import "errors"

// Validation failures. Each aborts its action before any remote write
// and leaves all state unchanged.
var (
	ErrNotSignedIn     = errors.New("not signed in")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrUserNotFound    = errors.New("user not found")
	ErrSelfRequest     = errors.New("cannot send a friend request to yourself")
	ErrRequestResolved = errors.New("friend request already resolved")
	ErrNoActiveChat    = errors.New("no chat is open")
	ErrEmptyRoomName   = errors.New("room name must not be empty")
	ErrNoStoryImage    = errors.New("story needs an image")
	ErrNoActiveRoom    = errors.New("no room is open")
	ErrNotStoryOwner   = errors.New("only the owner can delete a story")
	ErrEmptyUsername   = errors.New("username must not be empty")
)
