package realtime

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// pingInterval and pongWait drive the transport-level heartbeat.
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second

	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client is one live WebSocket connection registered under a meeting code
// (or the reserved system channel). The hub owns its registration; the
// client owns its own rate-limit and activity bookkeeping, which the hub
// resets on Register and reads during idle sweeps.
type Client struct {
	ID          string
	MeetingCode string

	hub    *Hub
	conn   *websocket.Conn
	logger *zap.Logger

	send chan any
	done chan struct{}
	once sync.Once

	mu           sync.Mutex
	window       *slidingWindow
	lastActivity time.Time
}

func newClient(hub *Hub, meetingCode string, conn *websocket.Conn) *Client {
	return &Client{
		ID:          uuid.New().String(),
		MeetingCode: meetingCode,
		hub:         hub,
		conn:        conn,
		logger:      hub.logger,
		send:        make(chan any, sendBufferSize),
		done:        make(chan struct{}),
		window:      newSlidingWindow(hub.cfg.MaxMessages, hub.cfg.RateWindow),
	}
}

// trySend queues an event for delivery. It returns false when the client is
// closed or its buffer is full; the hub treats that as a failed send.
func (c *Client) trySend(event any) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- event:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// close marks the client terminal. Idempotent; the transport is closed by
// whichever pump observes done first.
func (c *Client) close() {
	c.once.Do(func() { close(c.done) })
}

// closed reports whether the client has reached its terminal state.
func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// touch resets the idle clock. Called on every inbound frame, including
// keepalive pings.
func (c *Client) touch(now time.Time) {
	c.mu.Lock()
	c.lastActivity = now
	c.mu.Unlock()
}

// resetActivity clears all rate-limit bookkeeping and restarts the idle
// clock. The hub calls this on Register, including re-registration.
func (c *Client) resetActivity(now time.Time) {
	c.mu.Lock()
	c.window.reset()
	c.lastActivity = now
	c.mu.Unlock()
}

// allowMessage applies the sliding-window limiter to one inbound message.
func (c *Client) allowMessage(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.allow(now)
}

// idleExpired reports whether the connection has been silent for longer
// than timeout. The caller is responsible for closing and unregistering.
func (c *Client) idleExpired(now time.Time, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return now.Sub(c.lastActivity) > timeout
}

// readPump consumes inbound frames until the connection drops. Every frame
// counts as activity; frames beyond the rate limit are rejected with an
// error event but the connection stays open.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch(c.hub.clock.Now())
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		now := c.hub.clock.Now()
		c.touch(now)
		if !c.allowMessage(now) {
			c.trySend(Error("rate limit exceeded, slow down"))
			continue
		}

		switch strings.Trim(strings.TrimSpace(string(raw)), `"`) {
		case "ping", "keepalive":
			c.trySend(Pong())
		default:
			// Clients mutate state over HTTP; other frames are keepalive noise.
		}
	}
}

// writePump drains the send buffer onto the transport and emits
// protocol-level pings. A write error ends the pump; readPump then tears
// the client down.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case event := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.writeEvent(event); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) writeEvent(event any) error {
	switch v := event.(type) {
	case []byte:
		return c.conn.WriteMessage(websocket.TextMessage, v)
	case json.RawMessage:
		return c.conn.WriteMessage(websocket.TextMessage, v)
	default:
		return c.conn.WriteJSON(v)
	}
}
