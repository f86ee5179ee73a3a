package lock

import "time"

// Key layout in the shared store. The lock key is the mutual-exclusion
// record itself; the owner key is its introspection companion; the
// heartbeat key is the short-TTL liveness marker.
const (
	// lockKeyPrefix is the scope of all element lock keys.
	lockKeyPrefix = "erd:lock:element:"

	// ownerKeySuffix is appended to a lock key to form the owner key.
	ownerKeySuffix = ":owner"

	// heartbeatKeyPrefix is the scope of all liveness marker keys.
	heartbeatKeyPrefix = "erd:lock:heartbeat:"
)

// Time
const (
	// DefaultHeartbeatTTL is how long a liveness marker survives without
	// a refresh. Clients are expected to heartbeat well inside this window.
	DefaultHeartbeatTTL = 10 * time.Second

	// DefaultSweepInterval is how often the background sweeper looks for
	// locks whose heartbeat has lapsed.
	DefaultSweepInterval = 30 * time.Second

	// DefaultStoreTimeout bounds every round-trip to the lock store so an
	// unreachable store produces a prompt fail-closed error instead of a
	// hung request.
	DefaultStoreTimeout = 3 * time.Second
)

// lockKeyFor returns the store key holding the element's lock.
func lockKeyFor(elementID string) string {
	return lockKeyPrefix + elementID
}

// ownerKeyFor returns the store key recording the lock's owner.
func ownerKeyFor(elementID string) string {
	return lockKeyPrefix + elementID + ownerKeySuffix
}

// heartbeatKeyFor returns the store key of the element's liveness marker.
func heartbeatKeyFor(elementID string) string {
	return heartbeatKeyPrefix + elementID
}

// ownerKeyPattern matches every owner key, for scans.
const ownerKeyPattern = lockKeyPrefix + "*" + ownerKeySuffix
