package services

import (
	"context"

	"trackpulse/models"
	"trackpulse/repositories"
	"trackpulse/websocket"

	"github.com/sirupsen/logrus"
)

// BoundarySink is the production boundary-event consumer: persist the
// event, deactivate spent one-shot definitions, and push the event to
// live observers.
type BoundarySink struct {
	repo        *repositories.GeofenceRepository
	definitions *DefinitionService
	hub         *websocket.Hub
}

func NewBoundarySink(repo *repositories.GeofenceRepository, definitions *DefinitionService, hub *websocket.Hub) *BoundarySink {
	return &BoundarySink{
		repo:        repo,
		definitions: definitions,
		hub:         hub,
	}
}

func (bs *BoundarySink) OnBoundaryEvent(ctx context.Context, event models.BoundaryEvent) {
	logrus.Infof("Boundary %s: entity %s, definition %s, %.0fm from center",
		event.Type, event.EntityID, event.DefinitionID, event.DistanceMeters)

	if bs.repo != nil {
		if err := bs.repo.CreateEvent(ctx, &event); err != nil {
			logrus.Errorf("Failed to persist boundary event: %v", err)
		}
	}

	if event.OneShot && bs.definitions != nil {
		if err := bs.definitions.Deactivate(ctx, event.DefinitionID); err != nil {
			logrus.Errorf("Failed to deactivate one-shot definition %s: %v", event.DefinitionID, err)
		}
	}

	if bs.hub != nil {
		bs.hub.BroadcastBoundaryEvent(event)
	}
}
