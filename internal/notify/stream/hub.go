// internal/notify/stream/hub.go
package stream

import (
	"encoding/json"
	"sync"
	"time"

	"journal-notifier/internal/common/errors"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/common/metrics"

	"github.com/gorilla/websocket"
)

// Message is one push frame on the live channel.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub is the registry of live client connections, keyed by user id. Delivery
// is strictly best-effort: no connection means no-op, a full client buffer
// drops the frame and the connection takes care of its own teardown. Nothing
// in here ever reaches back into dispatch transactions.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[*Client]struct{}
	logger    logger.Logger
	heartbeat time.Duration
}

func NewHub(log logger.Logger, heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		clients:   make(map[string]map[*Client]struct{}),
		logger:    log.WithFields(map[string]interface{}{"component": "stream_hub"}),
		heartbeat: heartbeat,
	}
}

// Register attaches a websocket connection for a user and starts its pumps.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	c := &Client{
		hub:    h,
		userID: userID,
		conn:   conn,
		send:   make(chan Message, clientSendBuffer),
	}

	h.mu.Lock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	total := h.totalLocked()
	h.mu.Unlock()

	metrics.StreamClients.Set(float64(total))
	h.logger.Debug("stream client connected", map[string]interface{}{
		"userId": userID,
		"total":  total,
	})

	go c.writePump()
	go c.readPump()
}

// unregister removes a connection; called from the client's own pumps on
// disconnect or write error.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.userID]
	if ok {
		if _, present := set[c]; present {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	total := h.totalLocked()
	h.mu.Unlock()

	metrics.StreamClients.Set(float64(total))
	h.logger.Debug("stream client disconnected", map[string]interface{}{
		"userId": c.userID,
		"total":  total,
	})
}

// Publish delivers a frame to every live connection of the user. Zero
// connections is a no-op; a slow client loses the frame rather than blocking
// the caller.
func (h *Hub) Publish(userID, eventType string, data interface{}) {
	msg := Message{Type: eventType, Data: data}

	// The sends stay under the read lock: unregister needs the write lock to
	// close a send channel, so no channel can close mid-send. The sends never
	// block, so the lock is held only for buffer handoffs.
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			metrics.StreamDropped.Inc()
			h.logger.WithError(errors.NewStreamPushFailedError(userID)).
				Debug("client buffer full", map[string]interface{}{
					"type": eventType,
				})
		}
	}
}

// Connections reports the live connection count for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) totalLocked() int {
	total := 0
	for _, set := range h.clients {
		total += len(set)
	}
	return total
}

func encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
