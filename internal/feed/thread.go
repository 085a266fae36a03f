package feed

import (
	"context"
	"log"
	"sync"

	"chat-client/internal/models"
	"chat-client/internal/observability"
	"chat-client/internal/remote"
)

// MessageWindow bounds the active-thread subscription: only the most
// recent messages are synced, so a reconnect after long inactivity
// never pulls full history.
const MessageWindow = 50

// Thread is the live message subscription of one open chat. It exists
// only while that chat view is open.
type Thread struct {
	mu       sync.RWMutex
	chatID   string
	messages []models.Message
	cancel   remote.CancelFunc
	updates  chan struct{}
	closed   bool
}

// OpenThread subscribes to the newest MessageWindow messages of a chat.
func OpenThread(ctx context.Context, store remote.DocumentStore, chatID string) (*Thread, error) {
	t := &Thread{
		chatID:  chatID,
		updates: make(chan struct{}, 1),
	}
	cancel, err := store.Subscribe(ctx, remote.Query{
		Collection: models.CollectionMessages,
		Filters:    []remote.Filter{{Field: "chatId", Op: remote.OpEqual, Value: chatID}},
		OrderBy:    "createdAt",
		Descending: true,
		Limit:      MessageWindow,
	}, t.apply)
	if err != nil {
		return nil, err
	}
	t.cancel = cancel
	return t, nil
}

// ChatID returns the chat this thread belongs to.
func (t *Thread) ChatID() string {
	return t.chatID
}

// Messages returns the window in display order: ascending creation
// time. The caller owns the returned slice.
func (t *Thread) Messages() []models.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Updates signals, coalesced, whenever the window changed.
func (t *Thread) Updates() <-chan struct{} {
	return t.updates
}

// Close cancels the subscription. Safe to call more than once.
func (t *Thread) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (t *Thread) apply(snap remote.Snapshot) {
	msgs, err := remote.Decode[models.Message](snap)
	if err != nil {
		log.Printf("thread %s: decode snapshot: %v", t.chatID, err)
		return
	}
	// The query runs newest-first so the limit keeps the tail of the
	// conversation; reverse for display.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	t.mu.Lock()
	t.messages = msgs
	t.mu.Unlock()
	observability.IncSnapshotApplied("messages")

	select {
	case t.updates <- struct{}{}:
	default:
	}
}
