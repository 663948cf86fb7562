package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/ahmetcoskunkizilkaya/agroconnect-backend/internal/metrics"
	"github.com/google/uuid"
)

// Envelope is the wire format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encode(event string, data interface{}) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}

// Hub tracks open connections per user. A user may hold several
// connections at once (phone and browser).
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.userID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[c.userID] = conns
	}
	conns[c] = struct{}{}
	count := len(conns)
	h.mu.Unlock()

	metrics.ConnectionOpened()
	slog.Debug("ws connected", "user_id", c.userID.String(), "connections", count)
}

func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := h.remove(c)
	h.mu.Unlock()

	if removed {
		slog.Debug("ws disconnected", "user_id", c.userID.String())
	}
}

// remove must be called with mu held. It closes the send channel exactly
// once, whichever of Unregister and a dropped delivery gets there first.
func (h *Hub) remove(c *Client) bool {
	conns, ok := h.clients[c.userID]
	if !ok {
		return false
	}
	if _, ok := conns[c]; !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	metrics.ConnectionClosed()
	return true
}

// SendToUser queues an event on every connection of userID. A connection
// whose buffer is full is dropped. It reports whether at least one
// connection accepted the event.
func (h *Hub) SendToUser(userID uuid.UUID, event string, data interface{}) bool {
	msg, err := encode(event, data)
	if err != nil {
		slog.Error("ws encode failed", "event", event, "error", err)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
			delivered = true
		default:
			h.remove(c)
			metrics.ClientDropped()
			slog.Warn("ws client dropped, send buffer full", "user_id", userID.String())
		}
	}
	return delivered
}

// sendTo queues msg on one connection. It is a no-op once the connection
// has been unregistered or dropped, since its send channel is closed.
func (h *Hub) sendTo(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.userID][c]; !ok {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// OnlineCount is the number of distinct connected users.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
