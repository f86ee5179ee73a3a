// Package bus provides the durable message bus used to relay replicated
// collaboration events across server instances.
package bus

import "context"

// Handler consumes one message delivered by a subscription. key is the
// partition key the message was published with (the diagram ID).
type Handler func(ctx context.Context, key string, payload []byte)

// Bus is the durable publish/subscribe transport for replicated events.
// Messages published with the same key are delivered in publish order to
// each subscriber; no ordering is guaranteed across keys.
type Bus interface {
	// Publish sends payload keyed by key. It returns once the bus has
	// accepted the message.
	Publish(ctx context.Context, key string, payload []byte) error

	// Subscribe delivers messages to h until ctx is cancelled. It blocks
	// for the lifetime of the subscription and returns nil on a clean
	// cancellation.
	Subscribe(ctx context.Context, h Handler) error

	// Close releases the bus's resources.
	Close() error
}
