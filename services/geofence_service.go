package services

import (
	"sync"
	"time"

	"trackpulse/models"
	"trackpulse/utils"

	"github.com/sirupsen/logrus"
)

// GeofenceEvaluator keeps per-(definition, entity) membership state and
// raises enter/exit events on genuine transitions. It holds no timers and
// never self-initiates: state moves only on explicit Evaluate calls.
//
// Both the entity position and the definition center must already be in
// the same coordinate reference system; that is the caller's contract.
type GeofenceEvaluator struct {
	mu     sync.Mutex
	states map[stateKey]*models.GeofenceRuntimeState

	now func() time.Time
}

type stateKey struct {
	definitionID string
	entityID     string
}

func NewGeofenceEvaluator() *GeofenceEvaluator {
	return &GeofenceEvaluator{
		states: make(map[stateKey]*models.GeofenceRuntimeState),
		now:    time.Now,
	}
}

// Evaluate checks one entity position against one definition and returns a
// boundary event when a genuine crossing happened, nil otherwise. For leash
// definitions ownerPos supplies the live center.
func (ge *GeofenceEvaluator) Evaluate(def *models.GeofenceDefinition, entityID string, entityPos models.Position, ownerPos *models.Position) (*models.BoundaryEvent, error) {
	center, ok := def.EffectiveCenter(ownerPos)
	if !ok {
		return nil, utils.NewServiceError(utils.ErrCodeNoOwnerFix, "geofence has no usable center")
	}

	distance := utils.CalculateDistance(entityPos.Latitude, entityPos.Longitude, center.Latitude, center.Longitude)
	isInside := distance <= def.RadiusMeters

	ge.mu.Lock()
	defer ge.mu.Unlock()

	key := stateKey{definitionID: def.ID, entityID: entityID}
	state, exists := ge.states[key]
	if !exists {
		state = &models.GeofenceRuntimeState{}
		ge.states[key] = state
	}

	// First observation: record the baseline, emit nothing. An entity that
	// was already inside when the definition was created must leave and
	// come back before its first real enter fires.
	if !state.Observed {
		state.Observed = true
		state.KnownInside = isInside
		if def.SkipInitialTrigger && isInside {
			state.SuppressedUntilExit = true
		}
		return nil, nil
	}

	if state.KnownInside == isInside {
		return nil, nil
	}
	state.KnownInside = isInside

	if state.Spent {
		return nil, nil
	}

	if state.SuppressedUntilExit {
		if !isInside {
			// The pending catch-up exit: suppression lifts but this exit
			// itself stays silent. Deliberately asymmetric.
			state.SuppressedUntilExit = false
			logrus.Debugf("Geofence %s entity %s caught up, suppression cleared", def.ID, entityID)
		}
		// A re-enter while still suppressed also stays silent.
		return nil, nil
	}

	eventType := models.BoundaryExit
	notify := def.NotifyOnExit
	if isInside {
		eventType = models.BoundaryEnter
		notify = def.NotifyOnEnter
	}
	if !notify {
		return nil, nil
	}

	if def.OneShot {
		state.Spent = true
	}

	return &models.BoundaryEvent{
		ID:             utils.GenerateUUID(),
		DefinitionID:   def.ID,
		EntityID:       entityID,
		Type:           eventType,
		DistanceMeters: distance,
		Position:       entityPos,
		OneShot:        def.OneShot,
		OccurredAt:     ge.now(),
	}, nil
}

// DropDefinition clears all runtime state kept for a deleted definition.
func (ge *GeofenceEvaluator) DropDefinition(definitionID string) {
	ge.mu.Lock()
	defer ge.mu.Unlock()

	for key := range ge.states {
		if key.definitionID == definitionID {
			delete(ge.states, key)
		}
	}
}

// TrackedPairs reports how many (definition, entity) pairs carry state.
func (ge *GeofenceEvaluator) TrackedPairs() int {
	ge.mu.Lock()
	defer ge.mu.Unlock()
	return len(ge.states)
}
