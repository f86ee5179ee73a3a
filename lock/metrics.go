package lock

// Metrics defines the interface for recording lock operation outcomes.
// All methods must be safe for concurrent use.
type Metrics interface {
	// IncrAcquire increments counters for acquisition attempts.
	// `granted` is false when the lock was already held.
	IncrAcquire(granted bool)

	// IncrRelease increments counters for explicit releases.
	// `owned` is false when the caller was not the owner (no-op release).
	IncrRelease(owned bool)

	// IncrValidate increments counters for edit-gate validations.
	IncrValidate(ok bool)

	// IncrHeartbeat increments counters for heartbeat refreshes.
	IncrHeartbeat(accepted bool)

	// IncrDisconnectRelease increments the count of locks released by
	// disconnect cleanup.
	IncrDisconnectRelease(count int)

	// IncrSwept increments the count of stale locks reclaimed by the sweeper.
	IncrSwept(count int)

	// IncrStoreError increments the count of fail-closed store failures.
	IncrStoreError()
}

// NoOpMetrics is a Metrics implementation that records nothing.
type NoOpMetrics struct{}

func (NoOpMetrics) IncrAcquire(bool)          {}
func (NoOpMetrics) IncrRelease(bool)          {}
func (NoOpMetrics) IncrValidate(bool)         {}
func (NoOpMetrics) IncrHeartbeat(bool)        {}
func (NoOpMetrics) IncrDisconnectRelease(int) {}
func (NoOpMetrics) IncrSwept(int)             {}
func (NoOpMetrics) IncrStoreError()           {}
