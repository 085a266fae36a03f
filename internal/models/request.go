package models

// Friend request lifecycle states. Accepted and rejected are terminal.
const (
	RequestPending  = "pending"
	RequestAccepted = "accepted"
	RequestRejected = "rejected"
)

// FriendRequest carries a snapshot of the sender's display fields so
// the recipient can render it without a second lookup. Only the
// recipient transitions its status.
type FriendRequest struct {
	ID        string `json:"id,omitempty"`
	FromUID   string `json:"fromUid"`
	FromName  string `json:"fromName"`
	FromPhoto string `json:"fromPhoto,omitempty"`
	ToUID     string `json:"toUid"`
	Status    string `json:"status"`
	CreatedAt Time   `json:"createdAt"`
}
