package models

// Message is a single chat message. Messages are immutable once
// created and ordered by their server-assigned creation time.
type Message struct {
	ID        string `json:"id,omitempty"`
	ChatID    string `json:"chatId"`
	SenderID  string `json:"senderId"`
	Text      string `json:"text"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt Time   `json:"createdAt"`
}
