// Package event defines the closed set of collaboration events carried by
// the broadcast relay, their wire encoding, and the delivery class that
// decides how each one is fanned out.
package event

import "github.com/erdlab/collab/types"

// Event is a single immutable diagram-change message. Every variant carries
// enough identifying keys to resolve the owning diagram's channel. Events
// are never stored; persisted variants exist on the wire only as the side
// effect of a state change that has already been applied.
type Event interface {
	// Type returns the wire tag identifying the variant.
	Type() Type

	// Diagram returns the diagram whose channel the event is delivered on.
	Diagram() types.DiagramID
}

// Type is the wire tag of an event variant, carried in the JSON envelope's
// "type" property.
type Type string

const (
	TypeElementCreated  Type = "ELEMENT_CREATED"
	TypeElementUpdated  Type = "ELEMENT_UPDATED"
	TypeElementDeleted  Type = "ELEMENT_DELETED"
	TypeRelationCreated Type = "RELATION_CREATED"
	TypeRelationUpdated Type = "RELATION_UPDATED"
	TypeRelationDeleted Type = "RELATION_DELETED"
	TypeOrderChanged    Type = "ORDER_CHANGED"
	TypeElementLocked   Type = "ELEMENT_LOCKED"
	TypeElementUnlocked Type = "ELEMENT_UNLOCKED"
	TypeCursorMoved     Type = "CURSOR_MOVED"
	TypeElementDragged  Type = "ELEMENT_DRAGGED"
	TypeMemberJoined    Type = "MEMBER_JOINED"
	TypeMemberLeft      Type = "MEMBER_LEFT"
)

// Class is an event's delivery class. It encodes the durability/urgency
// trade-off the relay applies when fanning the event out.
type Class int

const (
	// ClassUnknown marks a type the relay does not know how to route.
	// Publishing such an event is a programming error in the caller.
	ClassUnknown Class = iota

	// ClassReplicated events describe persisted mutations whose absence
	// from any viewer would be visibly wrong. They travel through the
	// durable bus so clients on every server instance receive them.
	ClassReplicated

	// ClassLocal events describe persisted but low-value mutations. They
	// are broadcast only to the local instance's subscribers; a transient
	// miss on a far instance is acceptable and saves bus load.
	ClassLocal

	// ClassTracked events mirror shared state held outside the diagram
	// (lock ownership). Broadcast locally only: a lost message is
	// self-correcting once the next heartbeat or validate re-syncs.
	ClassTracked

	// ClassVolatile events carry no stored state at all (cursors, drags).
	// A newer message supersedes any lost one within milliseconds.
	ClassVolatile
)

// ClassOf returns the delivery class of t. The switch is exhaustive over
// the closed event set; adding a variant without extending it leaves the
// variant unroutable, which the relay fails loudly on.
func ClassOf(t Type) Class {
	switch t {
	case TypeElementCreated, TypeElementUpdated, TypeElementDeleted,
		TypeRelationCreated, TypeRelationUpdated, TypeRelationDeleted:
		return ClassReplicated
	case TypeOrderChanged:
		return ClassLocal
	case TypeElementLocked, TypeElementUnlocked:
		return ClassTracked
	case TypeCursorMoved, TypeElementDragged, TypeMemberJoined, TypeMemberLeft:
		return ClassVolatile
	default:
		return ClassUnknown
	}
}

// String names the class for logs.
func (c Class) String() string {
	switch c {
	case ClassReplicated:
		return "replicated"
	case ClassLocal:
		return "local"
	case ClassTracked:
		return "tracked"
	case ClassVolatile:
		return "volatile"
	default:
		return "unknown"
	}
}
