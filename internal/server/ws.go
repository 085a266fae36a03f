package server

import (
	"context"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-client/internal/observability"
	"chat-client/internal/remote"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame types on the watch socket. The client opens subscriptions by
// id; the server pushes a snapshot frame for the initial result set
// and again whenever matching data changes.
const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
	frameSnapshot    = "snapshot"
	frameError       = "error"
)

type watchRequest struct {
	Type  string       `json:"type"`
	ID    string       `json:"id"`
	Query remote.Query `json:"query"`
}

type watchEvent struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Documents remote.Snapshot `json:"documents,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// handleWatch upgrades the connection and serves live subscriptions
// over it until the peer disconnects.
func (s *Server) handleWatch(c *gin.Context) {
	spanCtx, span := otel.Tracer("chat-backend/watch").Start(c.Request.Context(), "watch.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(spanCtx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}
	parts := strings.SplitN(token, " ", 2)
	if len(parts) != 2 {
		observability.IncAuthFailure()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	uid, err := s.tokens.Validate(parts[1])
	if err != nil {
		observability.IncAuthFailure()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	log.Printf("watch connected uid=%s trace=%s", uid, span.SpanContext().TraceID())

	client := &watchConn{conn: conn, cancels: make(map[string]remote.CancelFunc)}
	defer client.closeAll()

	ctx := c.Request.Context()
	for {
		var req watchRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("watch read error for %s: %v", uid, err)
			}
			return
		}

		switch req.Type {
		case frameSubscribe:
			client.subscribe(ctx, s.store, req)
		case frameUnsubscribe:
			client.unsubscribe(req.ID)
		default:
			client.send(watchEvent{Type: frameError, ID: req.ID, Error: "unknown frame type"})
		}
	}
}

// watchConn is one websocket peer and its open subscriptions. Writes
// are serialized: snapshot callbacks fire from store goroutines.
type watchConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	cancels map[string]remote.CancelFunc
}

func (w *watchConn) subscribe(ctx context.Context, store remote.DocumentStore, req watchRequest) {
	if req.ID == "" || req.Query.Collection == "" {
		w.send(watchEvent{Type: frameError, ID: req.ID, Error: "missing subscription id or collection"})
		return
	}
	w.unsubscribe(req.ID)

	collection := req.Query.Collection
	cancel, err := store.Subscribe(ctx, req.Query, func(snap remote.Snapshot) {
		w.send(watchEvent{Type: frameSnapshot, ID: req.ID, Documents: snap})
		observability.IncSnapshotPushed(collection)
	})
	if err != nil {
		w.send(watchEvent{Type: frameError, ID: req.ID, Error: "subscription failed"})
		return
	}

	w.mu.Lock()
	w.cancels[req.ID] = cancel
	w.mu.Unlock()
	observability.IncSubscriptions()
}

func (w *watchConn) unsubscribe(id string) {
	w.mu.Lock()
	cancel, ok := w.cancels[id]
	delete(w.cancels, id)
	w.mu.Unlock()
	if ok {
		cancel()
		observability.DecSubscriptions()
	}
}

func (w *watchConn) closeAll() {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = make(map[string]remote.CancelFunc)
	w.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
		observability.DecSubscriptions()
	}
	w.conn.Close()
}

func (w *watchConn) send(event watchEvent) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteJSON(event); err != nil {
		log.Printf("websocket write error: %v", err)
	}
}
