package bus

import (
	"context"
	"sync"
)

// LoopbackBus is an in-process Bus for tests and single-instance
// deployments. Publish delivers synchronously, in order, to every active
// subscription, which makes multi-instance delivery deterministic to test:
// point two relays at one LoopbackBus and they behave like two servers
// sharing a topic.
type LoopbackBus struct {
	mu     sync.Mutex
	subs   map[int]Handler
	nextID int
	closed bool
}

// NewLoopbackBus returns an empty loopback bus.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{subs: make(map[int]Handler)}
}

// Publish invokes every subscribed handler with the message.
func (b *LoopbackBus) Publish(ctx context.Context, key string, payload []byte) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(ctx, key, payload)
	}
	return nil
}

// Subscribe registers h and blocks until ctx is cancelled.
func (b *LoopbackBus) Subscribe(ctx context.Context, h Handler) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrBusClosed
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = h
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
	return nil
}

// Subscribers reports the number of active subscriptions. Callers use it
// to wait for a subscription started in another goroutine to register.
func (b *LoopbackBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops all subscriptions and rejects further publishes.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[int]Handler)
	return nil
}
