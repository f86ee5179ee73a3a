package lock

import "errors"

var (
	// ErrLockAbsent indicates an operation requiring a held lock was
	// attempted on an element nobody has locked.
	ErrLockAbsent = errors.New("lock: element is not locked")

	// ErrNotLockOwner indicates an attempt to act on a lock by an identity
	// that does not own it.
	ErrNotLockOwner = errors.New("lock: identity is not the lock owner")

	// ErrStoreUnavailable indicates the shared lock store could not be
	// reached. Callers must fail closed and deny the mutation.
	ErrStoreUnavailable = errors.New("lock: lock store unavailable")
)
