package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEventType indicates a payload whose "type" tag is not part of
// the closed event set, or an attempt to marshal an unregistered variant.
var ErrUnknownEventType = errors.New("event: unknown event type")

// Marshal encodes an event as a flat JSON object with the variant's wire
// tag injected as the "type" property, matching the envelope clients parse.
func Marshal(e Event) ([]byte, error) {
	if ClassOf(e.Type()) == ClassUnknown {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type())
	}

	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("event: marshal %s: %w", e.Type(), err)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("event: marshal %s: %w", e.Type(), err)
	}
	tag, err := json.Marshal(e.Type())
	if err != nil {
		return nil, fmt.Errorf("event: marshal %s: %w", e.Type(), err)
	}
	fields["type"] = tag

	return json.Marshal(fields)
}

// Unmarshal decodes a wire payload back into its concrete variant by
// dispatching on the envelope's "type" property.
func Unmarshal(payload []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, fmt.Errorf("event: decode envelope: %w", err)
	}

	var e Event
	switch head.Type {
	case TypeElementCreated:
		e = &ElementCreated{}
	case TypeElementUpdated:
		e = &ElementUpdated{}
	case TypeElementDeleted:
		e = &ElementDeleted{}
	case TypeRelationCreated:
		e = &RelationCreated{}
	case TypeRelationUpdated:
		e = &RelationUpdated{}
	case TypeRelationDeleted:
		e = &RelationDeleted{}
	case TypeOrderChanged:
		e = &OrderChanged{}
	case TypeElementLocked:
		e = &ElementLocked{}
	case TypeElementUnlocked:
		e = &ElementUnlocked{}
	case TypeCursorMoved:
		e = &CursorMoved{}
	case TypeElementDragged:
		e = &ElementDragged{}
	case TypeMemberJoined:
		e = &MemberJoined{}
	case TypeMemberLeft:
		e = &MemberLeft{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, head.Type)
	}

	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("event: decode %s: %w", head.Type, err)
	}
	return deref(e), nil
}

// deref returns the value form of a decoded variant so that decoded events
// compare equal to the value-typed events callers construct.
func deref(e Event) Event {
	switch v := e.(type) {
	case *ElementCreated:
		return *v
	case *ElementUpdated:
		return *v
	case *ElementDeleted:
		return *v
	case *RelationCreated:
		return *v
	case *RelationUpdated:
		return *v
	case *RelationDeleted:
		return *v
	case *OrderChanged:
		return *v
	case *ElementLocked:
		return *v
	case *ElementUnlocked:
		return *v
	case *CursorMoved:
		return *v
	case *ElementDragged:
		return *v
	case *MemberJoined:
		return *v
	case *MemberLeft:
		return *v
	default:
		return e
	}
}
