// internal/notify/stream/client.go
package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	clientSendBuffer = 16

	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongMultiplier: the read deadline allows missing one heartbeat.
	pongMultiplier = 2
)

// Client is one live websocket connection owned by a user. Its pumps are the
// only goroutines touching the connection; teardown from either pump
// unregisters it from the hub and never surfaces errors to callers.
type Client struct {
	hub    *Hub
	userID string
	conn   *websocket.Conn
	send   chan Message
}

// writePump serializes outgoing frames and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.heartbeat)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// Hub closed the channel on unregister.
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait))
				return
			}
			payload, err := encode(msg)
			if err != nil {
				c.hub.logger.Warn("stream frame encode failed", map[string]interface{}{
					"userId": c.userID,
					"type":   msg.Type,
				})
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}

// readPump discards inbound frames (the channel is push-only) and tracks
// pongs so dead connections get reaped.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	deadline := c.hub.heartbeat * pongMultiplier
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
