package websockets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer is how many messages a subscriber may fall behind before it is dropped.
	sendBuffer = 16
)

// subscriber is one browser connection. Only its writer goroutine writes to conn.
type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub serves settlement notifications to browsers connected directly to the API
// server. It is the local counterpart of DefaultPublisher. Publish never waits on
// the network: each subscriber has a bounded queue drained by its own writer.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu   sync.Mutex
	subs map[string]*subscriber
}

// NewHub creates an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
		subs:   make(map[string]*subscriber),
	}
}

// Make sure we conform to the interface
var _ Publisher = (*Hub)(nil)

// ServeHTTP upgrades the request and keeps the connection until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	sub := h.add(conn)
	h.logger.InfoContext(r.Context(), "websocket connected", "connectionId", sub.id)
	go h.writeLoop(sub)
	defer func() {
		h.remove(sub.id)
		h.logger.Info("websocket disconnected", "connectionId", sub.id)
	}()

	// Clients only listen; reading drives close and ping handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) writeLoop(sub *subscriber) {
	for payload := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("websocket write failed", "connectionId", sub.id, "error", err)
			// Closing unblocks the reader, which removes the subscriber.
			_ = sub.conn.Close()
			return
		}
	}
}

// Publish queues the message for every connected client. A client whose queue is
// full is disconnected.
func (h *Hub) Publish(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		select {
		case sub.send <- payload:
		default:
			h.logger.WarnContext(ctx, "dropping slow websocket connection", "connectionId", id)
			h.dropLocked(id)
		}
	}
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(id)
}

// dropLocked closes the subscriber's queue and connection. h.mu must be held.
func (h *Hub) dropLocked(id string) {
	sub, ok := h.subs[id]
	if !ok {
		return
	}
	delete(h.subs, id)
	close(sub.send)
	_ = sub.conn.Close()
}
