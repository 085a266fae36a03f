package models

// Collection names in the remote store. Messages live in one flat
// collection filtered by chatId.
const (
	CollectionUsers    = "users"
	CollectionChats    = "chats"
	CollectionMessages = "messages"
	CollectionRequests = "requests"
	CollectionRooms    = "rooms"
	CollectionStories  = "stories"
)
