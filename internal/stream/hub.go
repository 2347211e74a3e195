// Package stream broadcasts committed frames to websocket clients.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/logging"
)

const (
	// sendBuffer is how many encoded frames a client may lag behind
	// before further frames are dropped for it.
	sendBuffer = 4

	writeWait = 2 * time.Second
)

// Hub fans frames out to every connected client. ObserveFrame never
// blocks: throttled frames are skipped and slow clients drop frames.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	limiter  *rate.Limiter
	upgrader websocket.Upgrader
	logger   *slog.Logger

	sent      atomic.Uint64
	throttled atomic.Uint64
	dropped   atomic.Uint64
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub that broadcasts at most maxFPS frames per second.
// maxFPS <= 0 disables throttling.
func NewHub(maxFPS float64, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	if maxFPS > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(maxFPS), 1)
	}
	return h
}

// ServeHTTP upgrades the request and streams frames until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("stream client connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards inbound messages and unregisters the client on close.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("stream write failed", "error", err)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ObserveFrame implements engine.Observer.
func (h *Hub) ObserveFrame(f *engine.Frame) {
	if h.limiter != nil && !h.limiter.Allow() {
		h.throttled.Add(1)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(f)
	if err != nil {
		// NaN positions cannot be encoded as JSON.
		h.logger.Debug("frame not encodable", "tick", f.Tick, "error", err)
		h.dropped.Add(1)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
			h.sent.Add(1)
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Stats reports frames sent, skipped by the rate limit and dropped for
// slow clients or encoding failures.
func (h *Hub) Stats() (sent, throttled, dropped uint64) {
	return h.sent.Load(), h.throttled.Load(), h.dropped.Load()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
