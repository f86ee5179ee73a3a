package bus

import "errors"

// ErrBusClosed indicates an operation on a bus that has been closed.
var ErrBusClosed = errors.New("bus: bus is closed")
