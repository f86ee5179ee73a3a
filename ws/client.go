package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/types"
)

// Client is one WebSocket connection subscribed to a diagram's channel.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger logger.Logger

	session  types.SessionID
	diagram  types.DiagramID
	identity types.Identity
	name     string

	// send is the connection's FIFO outbound queue, drained by writePump.
	// Guarded by sendMu so a concurrent broadcast can never race the close:
	// a send on a closed channel panics even inside a select with default.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	// limiter throttles inbound volatile messages (cursor, drag).
	limiter *rate.Limiter

	disconnectOnce sync.Once
}

// newClient wraps an upgraded connection.
func newClient(hub *Hub, conn *websocket.Conn, session types.SessionID, diagram types.DiagramID, identity types.Identity, name string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		logger:   hub.logger.WithDiagram(diagram),
		session:  session,
		diagram:  diagram,
		identity: identity,
		name:     name,
		send:     make(chan []byte, sendBufferSize),
		limiter:  rate.NewLimiter(rate.Limit(volatileMessageRate), volatileMessageBurst),
	}
}

// enqueue offers payload to the connection's send queue without blocking.
// It reports false when the queue is full or already closed.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue exactly once, after which enqueue
// reports false instead of panicking.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return
	}
	c.sendClosed = true
	close(c.send)
}

// run starts the read and write pumps. It returns immediately; the pumps
// own the connection from here on.
func (c *Client) run() {
	go c.writePump()
	go c.readPump()
}

// readPump reads frames until the connection drops, dispatching each one.
// On exit it triggers the disconnect path exactly once.
func (c *Client) readPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warnw("connection closed unexpectedly",
					"session", c.session, "identity", c.identity, "error", err)
			}
			return
		}
		c.handleMessage(context.Background(), data)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. It exits when the queue is closed by unregister or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// disconnect runs the disconnect path exactly once per connection:
// unsubscribe from the channel, then release the member's locks and
// announce the departure.
func (c *Client) disconnect() {
	c.disconnectOnce.Do(func() {
		c.hub.unregister(c)
		if c.hub.cleaner != nil {
			c.hub.cleaner.OnDisconnect(context.Background(), c.diagram, c.identity, c.name)
		}
	})
}
