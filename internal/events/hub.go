// Package events broadcasts item change notifications to WebSocket clients.
// Messages only say what changed; clients re-fetch the item.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/manujcode/lose-and-found/internal/model"
)

// Event types.
const (
	ItemCreated    = "item.created"
	ItemUpdated    = "item.updated"
	ItemDeleted    = "item.deleted"
	CommentCreated = "comment.created"
)

// Event is one change notification.
type Event struct {
	Type    string         `json:"type"`
	Kind    model.ItemKind `json:"kind"`
	ID      string         `json:"id"`
	Version int64          `json:"version,omitempty"`
}

const (
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The feed carries no private data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans events out to connected clients. A single goroutine owns the
// client set.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	closeOnce  sync.Once

	mu    sync.Mutex
	count int
}

// NewHub creates a hub and starts its loop.
func NewHub() *Hub {
	h := &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	clients := make(map[*client]struct{})
	for {
		select {
		case c := <-h.register:
			clients[c] = struct{}{}
			h.setCount(len(clients))
		case c := <-h.unregister:
			if _, ok := clients[c]; ok {
				delete(clients, c)
				close(c.send)
				h.setCount(len(clients))
			}
		case msg := <-h.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					// Slow client; it will catch up by re-fetching.
					slog.Warn("dropping event for slow websocket client", "remote", c.conn.RemoteAddr().String())
				}
			}
		case <-h.done:
			for c := range clients {
				close(c.send)
			}
			h.setCount(0)
			return
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.count
}

// Publish queues an event for every client. It never blocks on clients.
func (h *Hub) Publish(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		slog.Error("encoding event", "type", e.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		slog.Warn("event queue full, dropping event", "type", e.Type, "item", e.ID)
	}
}

// Close disconnects all clients and stops the hub.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ServeHTTP upgrades the request to a WebSocket and streams events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
