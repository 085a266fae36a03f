package backend

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"chat-client/internal/remote"
)

// socketState is the shared watch connection and the subscriptions
// multiplexed over it.
type socketState struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
	subs    map[string]*socketSub
	nextID  int
}

type socketSub struct {
	query remote.Query
	fn    remote.SnapshotFunc
}

type watchRequest struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Query remote.Query `json:"query,omitempty"`
}

type watchEvent struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Documents remote.Snapshot `json:"documents,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Subscribe opens a live query over the shared watch socket. The
// initial snapshot arrives asynchronously on the socket.
func (b *Backend) Subscribe(ctx context.Context, q remote.Query, fn remote.SnapshotFunc) (remote.CancelFunc, error) {
	b.socket.mu.Lock()
	conn, err := b.ensureSocketLocked(ctx)
	if err != nil {
		b.socket.mu.Unlock()
		return nil, err
	}
	id := strconv.Itoa(b.socket.nextID)
	b.socket.nextID++
	b.socket.subs[id] = &socketSub{query: q, fn: fn}
	b.socket.mu.Unlock()

	if err := b.writeFrame(conn, watchRequest{Type: "subscribe", ID: id, Query: q}); err != nil {
		b.socket.mu.Lock()
		delete(b.socket.subs, id)
		b.socket.mu.Unlock()
		return nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.socket.mu.Lock()
			delete(b.socket.subs, id)
			conn := b.socket.conn
			b.socket.mu.Unlock()
			if conn != nil {
				_ = b.writeFrame(conn, watchRequest{Type: "unsubscribe", ID: id})
			}
		})
	}
	if done := ctx.Done(); done != nil {
		go func() {
			<-done
			cancel()
		}()
	}
	return cancel, nil
}

// ensureSocketLocked dials the watch endpoint if no connection is up.
func (b *Backend) ensureSocketLocked(ctx context.Context) (*websocket.Conn, error) {
	if b.socket.conn != nil {
		return b.socket.conn, nil
	}

	url := b.wsURL + "?token=" + b.currentToken()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	b.socket.conn = conn
	go b.readLoop(conn)
	return conn, nil
}

// readLoop dispatches pushed snapshots to their subscriptions. On a
// read error it reconnects and resubscribes open queries.
func (b *Backend) readLoop(conn *websocket.Conn) {
	for {
		var event watchEvent
		if err := conn.ReadJSON(&event); err != nil {
			b.handleSocketDown(conn, err)
			return
		}

		switch event.Type {
		case "snapshot":
			b.socket.mu.Lock()
			sub, ok := b.socket.subs[event.ID]
			b.socket.mu.Unlock()
			if ok {
				sub.fn(event.Documents)
			}
		case "error":
			log.Printf("watch subscription %s failed: %s", event.ID, event.Error)
		}
	}
}

func (b *Backend) handleSocketDown(conn *websocket.Conn, err error) {
	b.socket.mu.Lock()
	if b.socket.conn != conn {
		// Already replaced or deliberately closed.
		b.socket.mu.Unlock()
		return
	}
	b.socket.conn = nil
	pending := len(b.socket.subs)
	b.socket.mu.Unlock()
	conn.Close()

	if pending == 0 || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return
	}
	log.Printf("watch socket lost, reconnecting: %v", err)
	go b.reconnect()
}

func (b *Backend) reconnect() {
	for attempt := 0; attempt < 5; attempt++ {
		time.Sleep(time.Duration(attempt+1) * time.Second)

		b.socket.mu.Lock()
		if len(b.socket.subs) == 0 || b.currentToken() == "" {
			b.socket.mu.Unlock()
			return
		}
		conn, err := b.ensureSocketLocked(context.Background())
		if err != nil {
			b.socket.mu.Unlock()
			continue
		}
		resub := make(map[string]remote.Query, len(b.socket.subs))
		for id, sub := range b.socket.subs {
			resub[id] = sub.query
		}
		b.socket.mu.Unlock()

		ok := true
		for id, q := range resub {
			if err := b.writeFrame(conn, watchRequest{Type: "subscribe", ID: id, Query: q}); err != nil {
				ok = false
				break
			}
		}
		if ok {
			return
		}
	}
	log.Printf("watch socket reconnect gave up")
}

func (b *Backend) closeSocket() {
	b.socket.mu.Lock()
	conn := b.socket.conn
	b.socket.conn = nil
	b.socket.subs = make(map[string]*socketSub)
	b.socket.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
}

func (b *Backend) writeFrame(conn *websocket.Conn, req watchRequest) error {
	b.socket.writeMu.Lock()
	defer b.socket.writeMu.Unlock()
	return conn.WriteJSON(req)
}
