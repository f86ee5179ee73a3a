package event

import "github.com/erdlab/collab/types"

// ElementCreated announces a new element (table) in the diagram.
type ElementCreated struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	Name      string          `json:"name"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
}

func (e ElementCreated) Type() Type               { return TypeElementCreated }
func (e ElementCreated) Diagram() types.DiagramID { return e.DiagramID }

// ElementUpdated announces a structural change to an element, such as a
// rename or recolor that has been persisted.
type ElementUpdated struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	Name      string          `json:"name,omitempty"`
	Color     string          `json:"color,omitempty"`
}

func (e ElementUpdated) Type() Type               { return TypeElementUpdated }
func (e ElementUpdated) Diagram() types.DiagramID { return e.DiagramID }

// ElementDeleted announces the removal of an element.
type ElementDeleted struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
}

func (e ElementDeleted) Type() Type               { return TypeElementDeleted }
func (e ElementDeleted) Diagram() types.DiagramID { return e.DiagramID }

// RelationCreated announces a new relation between two elements.
type RelationCreated struct {
	DiagramID  types.DiagramID  `json:"diagramId"`
	RelationID types.RelationID `json:"relationId"`
	SourceID   types.ElementID  `json:"sourceId"`
	TargetID   types.ElementID  `json:"targetId"`
	Kind       string           `json:"kind,omitempty"`
}

func (e RelationCreated) Type() Type               { return TypeRelationCreated }
func (e RelationCreated) Diagram() types.DiagramID { return e.DiagramID }

// RelationUpdated announces a change to an existing relation.
type RelationUpdated struct {
	DiagramID  types.DiagramID  `json:"diagramId"`
	RelationID types.RelationID `json:"relationId"`
	Kind       string           `json:"kind,omitempty"`
}

func (e RelationUpdated) Type() Type               { return TypeRelationUpdated }
func (e RelationUpdated) Diagram() types.DiagramID { return e.DiagramID }

// RelationDeleted announces the removal of a relation.
type RelationDeleted struct {
	DiagramID  types.DiagramID  `json:"diagramId"`
	RelationID types.RelationID `json:"relationId"`
}

func (e RelationDeleted) Type() Type               { return TypeRelationDeleted }
func (e RelationDeleted) Diagram() types.DiagramID { return e.DiagramID }

// OrderChanged announces a persisted reordering inside an element, e.g. a
// column moved to a new ordinal.
type OrderChanged struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	Ordinal   int             `json:"ordinal"`
}

func (e OrderChanged) Type() Type               { return TypeOrderChanged }
func (e OrderChanged) Diagram() types.DiagramID { return e.DiagramID }

// ElementLocked announces that Owner now holds the element's edit lock.
type ElementLocked struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	Owner     types.Identity  `json:"owner"`
	OwnerName string          `json:"ownerName,omitempty"`
}

func (e ElementLocked) Type() Type               { return TypeElementLocked }
func (e ElementLocked) Diagram() types.DiagramID { return e.DiagramID }

// ElementUnlocked announces that the element's edit lock was released,
// whether explicitly, by disconnect cleanup, or by the stale-lock sweeper.
type ElementUnlocked struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	Owner     types.Identity  `json:"owner,omitempty"`
}

func (e ElementUnlocked) Type() Type               { return TypeElementUnlocked }
func (e ElementUnlocked) Diagram() types.DiagramID { return e.DiagramID }

// CursorMoved carries a member's live cursor position.
type CursorMoved struct {
	DiagramID  types.DiagramID `json:"diagramId"`
	Member     types.Identity  `json:"member"`
	MemberName string          `json:"memberName,omitempty"`
	Color      string          `json:"color,omitempty"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
}

func (e CursorMoved) Type() Type               { return TypeCursorMoved }
func (e CursorMoved) Diagram() types.DiagramID { return e.DiagramID }

// ElementDragged carries an element's live position while a member drags it.
// The final position is persisted separately when the drag ends.
type ElementDragged struct {
	DiagramID types.DiagramID `json:"diagramId"`
	ElementID types.ElementID `json:"elementId"`
	X         float64         `json:"x"`
	Y         float64         `json:"y"`
}

func (e ElementDragged) Type() Type               { return TypeElementDragged }
func (e ElementDragged) Diagram() types.DiagramID { return e.DiagramID }

// MemberJoined announces a member entering the diagram's channel.
type MemberJoined struct {
	DiagramID  types.DiagramID `json:"diagramId"`
	Member     types.Identity  `json:"member"`
	MemberName string          `json:"memberName,omitempty"`
	Color      string          `json:"color,omitempty"`
}

func (e MemberJoined) Type() Type               { return TypeMemberJoined }
func (e MemberJoined) Diagram() types.DiagramID { return e.DiagramID }

// MemberLeft announces a member leaving the diagram's channel.
type MemberLeft struct {
	DiagramID  types.DiagramID `json:"diagramId"`
	Member     types.Identity  `json:"member"`
	MemberName string          `json:"memberName,omitempty"`
	Color      string          `json:"color,omitempty"`
}

func (e MemberLeft) Type() Type               { return TypeMemberLeft }
func (e MemberLeft) Diagram() types.DiagramID { return e.DiagramID }
