package store

import "errors"

var (
	// ErrKeyNotFound indicates the requested key does not exist or has expired.
	ErrKeyNotFound = errors.New("store: key not found")

	// ErrClosed indicates an operation was attempted on a closed store.
	ErrClosed = errors.New("store: store is closed")
)
