package inspector

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/nativebridge/pkg/recording"
)

const (
	writeTimeout = 5 * time.Second
	sendBuffer   = 256
)

// client is one websocket subscriber. Messages are queued so a slow
// client never blocks the recorder; a client whose queue fills up is
// disconnected.
type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
	})
}

// Hub fans recorded entries out to websocket clients. New clients first
// receive the retained backlog.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	backlog  int

	mu      sync.RWMutex
	clients map[*client]struct{}
	history [][]byte
	closed  bool
}

// NewHub creates a hub keeping the last backlog entries.
func NewHub(backlog int, logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		backlog: backlog,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true // local debugging tool
			},
		},
	}
}

// ServeHTTP upgrades the request and streams entries until the client
// goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer+h.backlog)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	for _, msg := range h.history {
		c.send <- msg
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writer(c)

	// Reads only detect the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writer(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

// Broadcast sends e to every client and appends it to the backlog.
func (h *Hub) Broadcast(e recording.Entry) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	if h.backlog > 0 {
		if len(h.history) == h.backlog {
			h.history = append(h.history[:0], h.history[1:]...)
		}
		h.history = append(h.history, data)
	}
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("inspector client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
			delete(h.clients, c)
			c.close()
		}
	}
}

// Backlog returns the retained entries, oldest first.
func (h *Hub) Backlog() []json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]json.RawMessage, len(h.history))
	for i, msg := range h.history {
		out[i] = msg
	}
	return out
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}
