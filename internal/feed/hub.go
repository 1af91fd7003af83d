// Package feed pushes newly stored analyses to websocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edgard/foodlens/internal/nutrition"
)

// Route is where the hub is mounted on the HTTP server.
const Route = "/ws/analyses"

const (
	MessageAnalysisCreated = "analysis_created"

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	clientBuffer = 16
)

// Message is the envelope written to subscribers.
type Message struct {
	Type string            `json:"type"`
	Data *nutrition.Record `json:"data"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out published records to every connected client. Publish never
// blocks; a client whose buffer is full is disconnected.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewHub creates a hub. An empty allowedOrigins list, or one containing "*",
// accepts any origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		log:     logger.With("component", "feed"),
		clients: make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || len(set) == 0 || set[origin]
	}
}

// Publish implements analysis.Notifier.
func (h *Hub) Publish(record *nutrition.Record) {
	payload, err := json.Marshal(Message{Type: MessageAnalysisCreated, Data: record})
	if err != nil {
		h.log.Error("Failed to encode feed message", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.log.Warn("Dropping slow feed client", "client_id", id)
			h.removeLocked(id)
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run blocks until ctx is done and then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("Starting analysis feed")
	<-ctx.Done()

	h.mu.Lock()
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
	h.mu.Unlock()

	h.log.Info("Analysis feed stopped")
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c.id] = c
	h.mu.Unlock()

	h.log.Debug("Feed client connected", "client_id", c.id, "remote_addr", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) removeLocked(id string) {
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	close(c.send)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	h.removeLocked(id)
	h.mu.Unlock()
}

// readPump discards inbound frames; it exists to process control frames and
// notice when the peer goes away.
func (h *Hub) readPump(c *client) {
	defer h.remove(c.id)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Feed client read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		h.log.Debug("Feed client disconnected", "client_id", c.id)
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.remove(c.id)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c.id)
				return
			}
		}
	}
}
