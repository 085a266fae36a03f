package models

import (
	"sort"
	"strings"
)

// Chat represents a private conversation between exactly two users.
// Its document id is derived from the participant pair, so at most one
// chat can exist for any pair.
type Chat struct {
	ID              string   `json:"id,omitempty"`
	Participants    []string `json:"participants"`
	LastMessage     string   `json:"lastMessage"`
	LastMessageTime Time     `json:"lastMessageTime"`
	UnreadCount     int      `json:"unreadCount,omitempty"`
}

// ChatID returns the deterministic chat document id for a pair of user
// ids. The ids are sorted first, so ChatID(a, b) == ChatID(b, a).
func ChatID(uidA, uidB string) string {
	pair := []string{uidA, uidB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// OtherParticipant returns the participant that is not uid, or "" when
// uid is not part of the chat.
func (c Chat) OtherParticipant(uid string) string {
	for _, p := range c.Participants {
		if p != uid {
			return p
		}
	}
	return ""
}
