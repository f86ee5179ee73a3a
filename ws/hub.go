// Package ws is the WebSocket transport for diagram collaboration
// channels: one channel per diagram, all connected viewers subscribed to
// it. The hub is the relay's local fan-out primitive; inbound frames are
// translated into lock operations and event publishes.
package ws

import (
	"sync"

	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/relay"
	"github.com/erdlab/collab/session"
	"github.com/erdlab/collab/types"
)

// Hub tracks the connections subscribed to each diagram's channel and
// fans payloads out to them. It implements relay.Broadcaster.
type Hub struct {
	mu       sync.RWMutex
	channels map[types.DiagramID]map[*Client]struct{}

	locks   lock.Manager
	relay   relay.Relay
	cleaner *session.Cleaner
	logger  logger.Logger
}

// NewHub creates a Hub enforcing locks through locks. Bind must be called
// before serving connections.
func NewHub(locks lock.Manager, log logger.Logger) *Hub {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Hub{
		channels: make(map[types.DiagramID]map[*Client]struct{}),
		locks:    locks,
		logger:   log.WithComponent("ws"),
	}
}

// Bind wires in the relay and session cleaner. Separate from NewHub
// because the relay's broadcaster is the hub itself.
func (h *Hub) Bind(r relay.Relay, cleaner *session.Cleaner) {
	h.relay = r
	h.cleaner = cleaner
}

// Broadcast delivers payload to every connection subscribed to the
// diagram's channel. A channel with no subscribers is a no-op. Frames are
// enqueued FIFO per connection; a connection whose queue is full, or that
// disconnected after the snapshot, has the frame dropped so one slow
// client cannot stall the rest.
func (h *Hub) Broadcast(diagram types.DiagramID, payload []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.channels[diagram]))
	for c := range h.channels[diagram] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if !c.enqueue(payload) {
			c.logger.Warnw("dropping frame for slow or departed consumer",
				"identity", c.identity, "session", c.session)
		}
	}
}

// Subscribers returns the number of connections on the diagram's channel.
func (h *Hub) Subscribers(diagram types.DiagramID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[diagram])
}

// register subscribes c to its diagram's channel.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	ch, ok := h.channels[c.diagram]
	if !ok {
		ch = make(map[*Client]struct{})
		h.channels[c.diagram] = ch
	}
	ch[c] = struct{}{}
	h.mu.Unlock()

	c.logger.Infow("connection registered", "identity", c.identity, "session", c.session)
}

// unregister removes c from its channel and closes its send queue. Safe to
// call more than once; only the first call has effect.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	ch, ok := h.channels[c.diagram]
	if ok {
		if _, subscribed := ch[c]; !subscribed {
			ok = false
		} else {
			delete(ch, c)
			if len(ch) == 0 {
				delete(h.channels, c.diagram)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	c.closeSend()
	c.logger.Infow("connection unregistered", "identity", c.identity, "session", c.session)
}
