package lock

import (
	"context"
	"errors"
	"time"

	"github.com/erdlab/collab/store"
	"github.com/erdlab/collab/types"
)

// runSweeper periodically reclaims locks whose liveness marker has expired.
// This covers the client that crashes or is silently partitioned without a
// clean disconnect: its heartbeat lapses, and the next sweep force-releases
// the lock instead of leaving it held forever.
func (m *manager) runSweeper() {
	defer close(m.sweepDone)

	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			m.sweepOnce(context.Background())
		}
	}
}

// sweepOnce performs a single reclamation pass and returns the number of
// locks released. Every element is handled independently; an error on one
// never aborts the rest of the pass.
func (m *manager) sweepOnce(ctx context.Context) int {
	swept := 0

	err := m.store.Scan(ctx, ownerKeyPattern, func(key string) error {
		elementID := elementFromOwnerKey(key)
		id := string(elementID)

		alive, err := m.store.Exists(ctx, heartbeatKeyFor(id))
		if err != nil {
			m.logger.Warnw("sweep skipped element, heartbeat check failed", "element", elementID, "error", err)
			return nil
		}
		if alive {
			return nil
		}

		owner, err := m.store.Get(ctx, key)
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil // released concurrently
		}
		if err != nil {
			m.logger.Warnw("sweep skipped element, owner read failed", "element", elementID, "error", err)
			return nil
		}

		if err := m.store.Delete(ctx, lockKeyFor(id), key, heartbeatKeyFor(id)); err != nil {
			m.logger.Warnw("sweep failed to reclaim lock", "element", elementID, "error", err)
			return nil
		}

		swept++
		m.logger.Infow("reclaimed stale lock", "element", elementID, "owner", owner)
		if m.config.OnSweep != nil {
			m.config.OnSweep(elementID, types.Identity(owner))
		}
		return nil
	})
	if err != nil {
		m.logger.Errorw("stale lock sweep failed", "error", err)
	}

	if swept > 0 {
		m.metrics.IncrSwept(swept)
		m.logger.Infow("stale lock sweep finished", "reclaimed", swept)
	}
	return swept
}
