package lock

import (
	"context"

	"github.com/erdlab/collab/types"
)

// Manager defines distributed, per-element mutual exclusion for diagram
// editing. Locks are advisory-immediate: Acquire never queues or blocks on
// contention, so a client can show "locked by X" instead of hanging.
//
// All state lives in the shared Store; a Manager holds no authoritative
// in-process state, which is what lets independent server instances agree
// on ownership. Every method is safe under arbitrary interleaving from
// multiple goroutines and multiple processes.
//
// Notes:
//   - Losing an acquire race is an expected outcome, not an error.
//   - Store unavailability fails closed: callers must deny the mutation.
type Manager interface {
	// Acquire attempts a try-once acquisition of the element's lock for
	// identity. On success it also records the owner and seeds the liveness
	// marker.
	//
	// Returns:
	//   - (true, nil) if the lock was granted.
	//   - (false, nil) if another identity holds it.
	//   - (false, ErrStoreUnavailable) on infrastructure failure.
	Acquire(ctx context.Context, elementID types.ElementID, identity types.Identity) (bool, error)

	// Release releases the element's lock only if identity is the recorded
	// owner. A mismatched or missing owner is a logged no-op, so a stale
	// unlock from one client can never steal another owner's release.
	Release(ctx context.Context, elementID types.ElementID, identity types.Identity) error

	// Validate checks that identity may perform an important mutation on
	// the element.
	//
	// Returns:
	//   - nil if identity holds the lock.
	//   - ErrLockAbsent if no lock exists (the caller must lock first).
	//   - ErrNotLockOwner if a different identity holds it.
	//   - ErrStoreUnavailable on infrastructure failure.
	Validate(ctx context.Context, elementID types.ElementID, identity types.Identity) error

	// Heartbeat refreshes the element's liveness marker, but only if
	// identity matches the recorded owner; otherwise the refresh is
	// rejected so a stale client cannot mask another owner's activity.
	//
	// Returns nil, ErrLockAbsent, ErrNotLockOwner, or ErrStoreUnavailable.
	Heartbeat(ctx context.Context, elementID types.ElementID, identity types.Identity) error

	// ReleaseAllFor scans all held locks and releases every one owned by
	// identity, returning the released element IDs. Invoked once per
	// disconnect. Per-lock deletion is independent and idempotent; a scan
	// failure returns the elements released so far alongside the error.
	ReleaseAllFor(ctx context.Context, identity types.Identity) ([]types.ElementID, error)

	// IsLocked reports whether any identity currently holds the element.
	IsLocked(ctx context.Context, elementID types.ElementID) (bool, error)

	// OwnerOf returns the identity holding the element's lock. The boolean
	// is false when the element is unlocked.
	OwnerOf(ctx context.Context, elementID types.ElementID) (types.Identity, bool, error)

	// Close stops the background stale-lock sweeper, if enabled.
	Close() error
}

// SweepNotify is invoked by the stale-lock sweeper for every lock it
// reclaims, with the element and the owner whose heartbeat had lapsed.
type SweepNotify func(elementID types.ElementID, owner types.Identity)
