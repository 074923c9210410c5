package models

import "time"

// BoundaryEventType is the direction of a boundary crossing.
type BoundaryEventType string

const (
	BoundaryEnter BoundaryEventType = "enter"
	BoundaryExit  BoundaryEventType = "exit"
)

// GeofenceDefinition is immutable configuration describing one boundary.
// A leash definition has no fixed center; its effective center is the
// owner's live position, supplied by the caller on every evaluation.
type GeofenceDefinition struct {
	ID      string `json:"id" bson:"_id" validate:"required"`
	OwnerID string `json:"ownerId" bson:"ownerId"`
	Name    string `json:"name" bson:"name"`

	Center  *Position `json:"center,omitempty" bson:"center,omitempty"`
	IsLeash bool      `json:"isLeash" bson:"isLeash"`

	RadiusMeters float64 `json:"radiusMeters" bson:"radiusMeters" validate:"required,gt=0"`

	NotifyOnEnter bool `json:"notifyOnEnter" bson:"notifyOnEnter"`
	NotifyOnExit  bool `json:"notifyOnExit" bson:"notifyOnExit"`
	OneShot       bool `json:"oneShot" bson:"oneShot"`

	// SkipInitialTrigger marks definitions whose tracked entity was already
	// inside the boundary when the definition was created. The entity must
	// leave and come back before the first real enter event fires.
	SkipInitialTrigger bool `json:"skipInitialTrigger" bson:"skipInitialTrigger"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// EffectiveCenter resolves the center the evaluator should measure against.
func (d *GeofenceDefinition) EffectiveCenter(ownerPos *Position) (Position, bool) {
	if d.IsLeash {
		if ownerPos == nil {
			return Position{}, false
		}
		return *ownerPos, true
	}
	if d.Center == nil {
		return Position{}, false
	}
	return *d.Center, true
}

// GeofenceRuntimeState is the per-(definition, entity) mutable record the
// evaluator keeps. It changes only on explicit evaluations.
type GeofenceRuntimeState struct {
	Observed            bool `json:"observed"`
	KnownInside         bool `json:"knownInside"`
	SuppressedUntilExit bool `json:"suppressedUntilExit"`
	Spent               bool `json:"spent"` // one-shot already fired
}

// BoundaryEvent is emitted when a tracked entity genuinely crosses a
// boundary. OneShot is carried so the consuming layer can persist the
// definition's deactivation.
type BoundaryEvent struct {
	ID             string            `json:"id" bson:"_id"`
	DefinitionID   string            `json:"definitionId" bson:"definitionId"`
	EntityID       string            `json:"entityId" bson:"entityId"`
	Type           BoundaryEventType `json:"type" bson:"type"`
	DistanceMeters float64           `json:"distanceMeters" bson:"distanceMeters"`
	Position       Position          `json:"position" bson:"position"`
	OneShot        bool              `json:"oneShot" bson:"oneShot"`
	OccurredAt     time.Time         `json:"occurredAt" bson:"occurredAt"`
}
