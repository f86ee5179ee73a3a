// Package relay classifies collaboration events by delivery class and fans
// them out to every subscriber of the owning diagram's channel, across
// server instances when the class requires it.
package relay

import (
	"context"
	"errors"

	"github.com/erdlab/collab/event"
	"github.com/erdlab/collab/types"
)

// ErrUnroutableEvent indicates a caller published an event variant the
// relay does not know how to route. This is a programming error in the
// caller, not a runtime condition, and is surfaced loudly.
var ErrUnroutableEvent = errors.New("relay: unroutable event type")

// Broadcaster is the transport layer's local fan-out primitive: it delivers
// a payload to every connection subscribed to a diagram's channel on this
// instance. Delivering to a channel with no subscribers is a no-op.
type Broadcaster interface {
	Broadcast(diagram types.DiagramID, payload []byte)
}

// Relay delivers diagram-change events with a policy matched to each
// event's durability class.
type Relay interface {
	// Publish routes one event by its delivery class. Replicated events go
	// through the durable bus; every other class is delivered directly to
	// this instance's subscribers. A bus failure is non-fatal: the event
	// falls back to local delivery and the failure is logged, never rolled
	// back into the caller's already-applied mutation.
	Publish(ctx context.Context, e event.Event) error

	// Run consumes this instance's bus subscription, re-delivering each
	// replicated event to local subscribers. It blocks until ctx is
	// cancelled. On a relay with no bus it returns immediately.
	Run(ctx context.Context) error
}
