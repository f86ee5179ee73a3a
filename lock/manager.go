package lock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/erdlab/collab/logger"
	"github.com/erdlab/collab/store"
	"github.com/erdlab/collab/types"
)

// manager provides a concrete implementation of the Manager interface over a
// shared store. It keeps no authoritative local state: the store's atomic
// set-if-absent is the sole arbiter of ownership across instances.
type manager struct {
	store   store.Store
	config  Config
	logger  logger.Logger
	metrics Metrics

	sweepStop chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
}

// NewManager creates a new lock Manager backed by st, applying the provided
// options. If the sweeper is enabled it starts immediately.
func NewManager(st store.Store, opts ...Option) Manager {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.Logger == nil {
		config.Logger = &logger.NoOpLogger{}
	}
	if config.Metrics == nil {
		config.Metrics = NoOpMetrics{}
	}

	m := &manager{
		store:     st,
		config:    config,
		logger:    config.Logger.WithComponent("lock"),
		metrics:   config.Metrics,
		sweepStop: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}

	if config.EnableSweeper {
		go m.runSweeper()
	} else {
		close(m.sweepDone)
	}

	return m
}

// opCtx bounds a single store round-trip so an unreachable store produces a
// prompt fail-closed error instead of a hung request.
func (m *manager) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.config.StoreTimeout)
}

// storeErr wraps an infrastructure failure so callers can match it with
// errors.Is(err, ErrStoreUnavailable).
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

// elementFromOwnerKey recovers the element ID embedded in an owner key.
func elementFromOwnerKey(key string) types.ElementID {
	id := strings.TrimPrefix(key, lockKeyPrefix)
	id = strings.TrimSuffix(id, ownerKeySuffix)
	return types.ElementID(id)
}

func (m *manager) Acquire(ctx context.Context, elementID types.ElementID, identity types.Identity) (bool, error) {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	id := string(elementID)
	granted, err := m.store.SetIfAbsent(ctx, lockKeyFor(id), string(identity), 0)
	if err != nil {
		m.metrics.IncrStoreError()
		m.logger.Errorw("acquire failed, store unreachable", "element", elementID, "identity", identity, "error", err)
		return false, storeErr("acquire", err)
	}
	if !granted {
		owner, _ := m.currentOwner(ctx, id)
		m.logger.Debugw("acquire denied, element already locked",
			"element", elementID, "owner", owner, "requestedBy", identity)
		m.metrics.IncrAcquire(false)
		return false, nil
	}

	// Seed the liveness marker, then record the owner. The sweeper scans
	// owner keys and reclaims any without a heartbeat, so the heartbeat
	// must exist before the owner key becomes visible or a sweep passing
	// between the two writes would reclaim a lock acquired milliseconds
	// ago. If either write fails the half-acquired lock is rolled back so
	// the element does not end up locked with no introspectable owner.
	if err := m.store.Set(ctx, heartbeatKeyFor(id), string(identity), m.config.HeartbeatTTL); err != nil {
		m.rollbackAcquire(ctx, id)
		m.metrics.IncrStoreError()
		return false, storeErr("acquire", err)
	}
	if err := m.store.Set(ctx, ownerKeyFor(id), string(identity), 0); err != nil {
		m.rollbackAcquire(ctx, id)
		m.metrics.IncrStoreError()
		return false, storeErr("acquire", err)
	}

	m.metrics.IncrAcquire(true)
	m.logger.Infow("lock acquired", "element", elementID, "identity", identity)
	return true, nil
}

// rollbackAcquire undoes a partially completed acquire.
func (m *manager) rollbackAcquire(ctx context.Context, id string) {
	if err := m.store.Delete(ctx, lockKeyFor(id), ownerKeyFor(id), heartbeatKeyFor(id)); err != nil {
		m.logger.Warnw("failed to roll back partial acquire", "element", id, "error", err)
	}
}

// Release reads the owner and then deletes, in two round-trips rather than
// an atomic compare-and-delete. A release delayed between the two could in
// principle delete a lock the element's next owner just acquired; the
// window is a single network round-trip and the next Validate re-syncs the
// loser, so it is tolerated.
func (m *manager) Release(ctx context.Context, elementID types.ElementID, identity types.Identity) error {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	id := string(elementID)
	owner, err := m.currentOwner(ctx, id)
	if err != nil {
		m.metrics.IncrStoreError()
		return storeErr("release", err)
	}
	if owner == "" {
		m.logger.Warnw("release ignored, element not locked", "element", elementID, "identity", identity)
		m.metrics.IncrRelease(false)
		return nil
	}
	if owner != identity {
		// A delayed or duplicate unlock from another client must never
		// steal the current owner's lock.
		m.logger.Warnw("release ignored, caller is not the owner",
			"element", elementID, "owner", owner, "requestedBy", identity)
		m.metrics.IncrRelease(false)
		return nil
	}

	if err := m.store.Delete(ctx, lockKeyFor(id), ownerKeyFor(id), heartbeatKeyFor(id)); err != nil {
		m.metrics.IncrStoreError()
		return storeErr("release", err)
	}

	m.metrics.IncrRelease(true)
	m.logger.Infow("lock released", "element", elementID, "identity", identity)
	return nil
}

func (m *manager) Validate(ctx context.Context, elementID types.ElementID, identity types.Identity) error {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	owner, err := m.currentOwner(ctx, string(elementID))
	if err != nil {
		m.metrics.IncrStoreError()
		m.logger.Errorw("validate failed, store unreachable", "element", elementID, "error", err)
		return storeErr("validate", err)
	}
	if owner == "" {
		m.metrics.IncrValidate(false)
		return ErrLockAbsent
	}
	if owner != identity {
		m.metrics.IncrValidate(false)
		return ErrNotLockOwner
	}
	m.metrics.IncrValidate(true)
	return nil
}

func (m *manager) Heartbeat(ctx context.Context, elementID types.ElementID, identity types.Identity) error {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	id := string(elementID)
	owner, err := m.currentOwner(ctx, id)
	if err != nil {
		m.metrics.IncrStoreError()
		return storeErr("heartbeat", err)
	}
	if owner == "" {
		m.logger.Warnw("heartbeat rejected, element not locked", "element", elementID, "sender", identity)
		m.metrics.IncrHeartbeat(false)
		return ErrLockAbsent
	}
	if owner != identity {
		m.logger.Warnw("heartbeat rejected, sender is not the owner",
			"element", elementID, "owner", owner, "sender", identity)
		m.metrics.IncrHeartbeat(false)
		return ErrNotLockOwner
	}

	if err := m.store.Set(ctx, heartbeatKeyFor(id), string(identity), m.config.HeartbeatTTL); err != nil {
		m.metrics.IncrStoreError()
		return storeErr("heartbeat", err)
	}

	m.metrics.IncrHeartbeat(true)
	m.logger.Debugw("heartbeat refreshed", "element", elementID, "identity", identity)
	return nil
}

func (m *manager) ReleaseAllFor(ctx context.Context, identity types.Identity) ([]types.ElementID, error) {
	var released []types.ElementID

	// Each lock is released independently: the scan holds no critical
	// section, and a failure on one element never blocks the rest.
	err := m.store.Scan(ctx, ownerKeyPattern, func(key string) error {
		owner, err := m.store.Get(ctx, key)
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil // released concurrently
		}
		if err != nil {
			m.logger.Warnw("skipping lock during disconnect cleanup", "key", key, "error", err)
			return nil
		}
		if types.Identity(owner) != identity {
			return nil
		}

		elementID := elementFromOwnerKey(key)
		id := string(elementID)
		if err := m.store.Delete(ctx, lockKeyFor(id), key, heartbeatKeyFor(id)); err != nil {
			m.logger.Warnw("failed to release lock during disconnect cleanup",
				"element", elementID, "identity", identity, "error", err)
			return nil
		}
		released = append(released, elementID)
		m.logger.Infow("released lock for disconnected user", "element", elementID, "identity", identity)
		return nil
	})
	if err != nil {
		m.metrics.IncrStoreError()
		m.logger.Errorw("disconnect cleanup scan failed", "identity", identity, "error", err)
		return released, storeErr("release all", err)
	}

	if len(released) > 0 {
		m.metrics.IncrDisconnectRelease(len(released))
		m.logger.Infow("disconnect cleanup finished", "identity", identity, "released", len(released))
	}
	return released, nil
}

func (m *manager) IsLocked(ctx context.Context, elementID types.ElementID) (bool, error) {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	exists, err := m.store.Exists(ctx, lockKeyFor(string(elementID)))
	if err != nil {
		m.metrics.IncrStoreError()
		return false, storeErr("is locked", err)
	}
	return exists, nil
}

func (m *manager) OwnerOf(ctx context.Context, elementID types.ElementID) (types.Identity, bool, error) {
	ctx, cancel := m.opCtx(ctx)
	defer cancel()

	owner, err := m.currentOwner(ctx, string(elementID))
	if err != nil {
		m.metrics.IncrStoreError()
		return "", false, storeErr("owner of", err)
	}
	if owner == "" {
		return "", false, nil
	}
	return owner, true, nil
}

func (m *manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.sweepStop)
	})
	<-m.sweepDone
	return nil
}

// currentOwner reads the element's owner key. It returns "" (and no error)
// when the element is unlocked.
func (m *manager) currentOwner(ctx context.Context, id string) (types.Identity, error) {
	owner, err := m.store.Get(ctx, ownerKeyFor(id))
	if errors.Is(err, store.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return types.Identity(owner), nil
}
