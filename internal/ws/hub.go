package ws

import (
	"net/http"
	"sync"
	"time"

	"webpagegenie/internal/logger"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pages are served from this host; the reload socket accepts any
	// origin because the editor UI may run on a different port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ReloadMessage tells connected pages to refresh. An empty slug means
// every page reloads.
type ReloadMessage struct {
	Type string `json:"type"`
	Slug string `json:"slug,omitempty"`
}

// client pairs a connection with its write lock. Broadcasts come from
// concurrent request goroutines and the page watcher, and the websocket
// protocol allows only one writer on a connection at a time.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub tracks live-reload subscribers and fans reload notices out to
// them. Clients that fail a write are dropped.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]*client
}

func NewHub() *Hub {
	return &Hub{conns: map[*websocket.Conn]*client{}}
}

// Handle upgrades the request and keeps the connection registered until
// the peer goes away. Inbound frames are drained and discarded.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = &client{conn: conn}
	total := len(h.conns)
	h.mu.Unlock()
	logger.Debug("Reload client connected", "clients", total)

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// BroadcastReload tells every subscriber to reload the given slug.
func (h *Hub) BroadcastReload(slug string) {
	msg := ReloadMessage{Type: "reload", Slug: slug}

	h.mu.Lock()
	clients := make([]*client, 0, len(h.conns))
	for _, c := range h.conns {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(msg); err != nil {
			h.drop(c.conn)
		}
	}
}

// Count returns the number of connected reload clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
