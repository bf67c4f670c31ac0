package bridge

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// client is one connected renderer.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

// writeLoop drains the send queue and pings the renderer until it is
// dropped.
func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write error", "client", c.id, "error", err)
				if h.metrics != nil {
					h.metrics.BridgeError("write")
				}
				h.drop(c, websocket.CloseAbnormalClosure)
				return
			}
			if h.metrics != nil {
				h.metrics.FramesSent(1)
			}

		case <-ticker.C:
			deadline := time.Now().Add(h.config.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.drop(c, websocket.CloseAbnormalClosure)
				return
			}

		case <-c.done:
			return
		}
	}
}

// readLoop handles renderer requests. It blocks until the connection is
// closed or an error occurs.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c, websocket.CloseNormalClosure)

	c.conn.SetReadLimit(h.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "client", c.id, "error", err)
				if h.metrics != nil {
					h.metrics.BridgeError("read")
				}
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(h.config.ReadTimeout))

		var req struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			h.logger.Warn("frame decode error", "client", c.id, "error", err)
			if h.metrics != nil {
				h.metrics.BridgeError("decode")
			}
			continue
		}

		switch req.Type {
		case FrameResync:
			h.resync(c)
		default:
			h.logger.Warn("unknown frame type", "client", c.id, "type", req.Type)
		}
	}
}

// resync queues a fresh snapshot for c.
func (h *Hub) resync(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	msg, err := json.Marshal(h.snapshot())
	if err != nil {
		h.logger.Error("snapshot encode failed", "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("renderer too slow", "client", c.id)
		if h.metrics != nil {
			h.metrics.BridgeError("slow")
		}
		go h.drop(c, websocket.ClosePolicyViolation)
	}
}
