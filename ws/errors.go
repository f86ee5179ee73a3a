package ws

import "errors"

// ErrUnidentified indicates a connection attempt whose identity could not
// be resolved.
var ErrUnidentified = errors.New("ws: request identity could not be resolved")
