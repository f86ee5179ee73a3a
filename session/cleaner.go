// Package session wires transport-layer connection lifecycle signals into
// the collaboration core: presence events on connect, lock cleanup plus
// unlock broadcasts on disconnect.
package session

import (
	"context"

	"github.com/erdlab/collab/event"
	"github.com/erdlab/collab/lock"
	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/relay"
	"github.com/erdlab/collab/types"
)

// Cleaner reacts to connection lifecycle signals. The transport layer is
// contractually required to call OnDisconnect exactly once per disconnect.
type Cleaner struct {
	locks  lock.Manager
	relay  relay.Relay
	logger logger.Logger
}

// NewCleaner creates a Cleaner releasing locks through locks and
// broadcasting through r.
func NewCleaner(locks lock.Manager, r relay.Relay, log logger.Logger) *Cleaner {
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Cleaner{
		locks:  locks,
		relay:  r,
		logger: log.WithComponent("session"),
	}
}

// OnConnect announces a member joining the diagram's channel.
func (c *Cleaner) OnConnect(ctx context.Context, diagram types.DiagramID, identity types.Identity, name string) {
	log := c.logger.WithDiagram(diagram)

	joined := event.MemberJoined{
		DiagramID:  diagram,
		Member:     identity,
		MemberName: name,
		Color:      event.MemberColor(identity),
	}
	if err := c.relay.Publish(ctx, joined); err != nil {
		log.Warnw("failed to announce member join", "identity", identity, "error", err)
	}
	log.Infow("member joined", "identity", identity)
}

// OnDisconnect releases every lock identity holds and publishes one
// ElementUnlocked per released element so other viewers immediately see
// the lock indicators clear, then announces the member leaving. Errors are
// logged and never propagated to the transport layer: cleanup is
// best-effort, and a missed release self-heals once the liveness marker
// lapses and the sweeper reclaims the lock.
func (c *Cleaner) OnDisconnect(ctx context.Context, diagram types.DiagramID, identity types.Identity, name string) {
	log := c.logger.WithDiagram(diagram)

	released, err := c.locks.ReleaseAllFor(ctx, identity)
	if err != nil {
		log.Errorw("disconnect lock cleanup incomplete", "identity", identity, "error", err)
	}

	for _, elementID := range released {
		unlocked := event.ElementUnlocked{
			DiagramID: diagram,
			ElementID: elementID,
			Owner:     identity,
		}
		if err := c.relay.Publish(ctx, unlocked); err != nil {
			log.Warnw("failed to broadcast unlock after disconnect",
				"element", elementID, "identity", identity, "error", err)
		}
	}

	left := event.MemberLeft{
		DiagramID:  diagram,
		Member:     identity,
		MemberName: name,
		Color:      event.MemberColor(identity),
	}
	if err := c.relay.Publish(ctx, left); err != nil {
		log.Warnw("failed to announce member leave", "identity", identity, "error", err)
	}

	log.Infow("member left", "identity", identity, "locksReleased", len(released))
}
