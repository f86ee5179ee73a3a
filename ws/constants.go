package ws

import "time"

// Connection timing
const (
	// writeWait is the deadline for a single write to a peer.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead. Pings are answered by pongs that reset this.
	pongWait = 60 * time.Second

	// pingPeriod is how often pings are sent. Must be below pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Capacity
const (
	// maxMessageSize caps a single inbound frame. Collaboration messages
	// are small; anything larger is a misbehaving client.
	maxMessageSize = 4 * 1024

	// sendBufferSize is the per-connection outbound queue. Delivery to one
	// connection is FIFO through this channel; a client that cannot drain
	// it has its frames dropped rather than stalling the whole channel.
	sendBufferSize = 64
)

// Volatile-message rate limiting. Cursor and drag updates arrive at mouse
// frequency; the limiter keeps one client from flooding the channel.
const (
	volatileMessageRate  = 30 // messages per second
	volatileMessageBurst = 60
)
