package types

// DiagramID uniquely identifies a diagram. All collaboration events for a
// diagram are delivered on the channel named after its ID.
type DiagramID string

// ElementID identifies a lockable diagram element, such as a table.
// Locks are granted per element, never per field.
type ElementID string

// RelationID identifies a relation (edge) between two diagram elements.
type RelationID string

// Identity is the opaque identity of a collaborating user, typically an
// email address. Lock ownership and event attribution are keyed by it.
type Identity string

// SessionID identifies a single client connection. One identity may hold
// several sessions (multiple tabs), each with its own SessionID.
type SessionID string
