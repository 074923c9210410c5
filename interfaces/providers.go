package interfaces

import (
	"context"
	"time"

	"trackpulse/models"
)

// Reporter publishes a position report to collaborators. Failures are
// logged by the caller and retried on the next natural tick, never
// out-of-band.
type Reporter interface {
	Report(ctx context.Context, report models.PositionReport) error
}

// ActivityProvider supplies the current confirmed motion state. The sensor
// classifier and the speed-based inference both satisfy it; callers never
// care which one is installed.
type ActivityProvider interface {
	Current() models.MotionState
	StationaryFor(now time.Time) time.Duration
}

// PositionSource supplies the device's own position on request.
type PositionSource interface {
	Position(ctx context.Context, accuracy models.Accuracy) (models.Position, error)
}

// PowerMonitor supplies a snapshot of battery and power-save state.
type PowerMonitor interface {
	Power() models.PowerState
}

// BoundaryEventSink receives boundary-crossing events from the geofence
// evaluator. Delivery and display are the consuming layer's problem.
type BoundaryEventSink interface {
	OnBoundaryEvent(ctx context.Context, event models.BoundaryEvent)
}

// GeofenceStore provides a read-only snapshot of the active definitions
// that apply to an entity at evaluation time.
type GeofenceStore interface {
	ActiveDefinitions(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error)
}
