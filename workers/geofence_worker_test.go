package workers

import (
	"context"
	"testing"
	"time"

	"trackpulse/models"
	"trackpulse/services"
	"trackpulse/utils"
)

type mockStore struct {
	definitionsFn func(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error)
}

func (m *mockStore) ActiveDefinitions(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
	return m.definitionsFn(ctx, entityID)
}

type mockSink struct {
	events chan models.BoundaryEvent
}

func (m *mockSink) OnBoundaryEvent(ctx context.Context, event models.BoundaryEvent) {
	m.events <- event
}

type mockOwners struct {
	latestFn func(ctx context.Context, deviceID string) (*models.PositionReport, error)
}

func (m *mockOwners) Latest(ctx context.Context, deviceID string) (*models.PositionReport, error) {
	return m.latestFn(ctx, deviceID)
}

// Positions roughly 150 m and 500 m east of (0, 0).
var (
	insidePos  = models.Position{Latitude: 0, Longitude: 0.00135}
	outsidePos = models.Position{Latitude: 0, Longitude: 0.0045}
)

func fixedDef(id string) models.GeofenceDefinition {
	return models.GeofenceDefinition{
		ID:            id,
		Center:        &models.Position{Latitude: 0, Longitude: 0},
		RadiusMeters:  200,
		NotifyOnEnter: true,
		NotifyOnExit:  true,
	}
}

func TestGeofenceWorkerDetectsCrossings(t *testing.T) {
	store := &mockStore{
		definitionsFn: func(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
			return []models.GeofenceDefinition{fixedDef("gf-1")}, nil
		},
	}
	sink := &mockSink{events: make(chan models.BoundaryEvent, 8)}

	gw := NewGeofenceWorker(services.NewGeofenceEvaluator(), store, sink, nil, 2, 16)
	if err := gw.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer gw.Stop()

	// Baseline outside, then cross in.
	if err := gw.SubmitObservation("pet-1", outsidePos); err != nil {
		t.Fatalf("SubmitObservation() error = %v", err)
	}
	if err := gw.SubmitObservation("pet-1", insidePos); err != nil {
		t.Fatalf("SubmitObservation() error = %v", err)
	}

	select {
	case event := <-sink.events:
		if event.Type != models.BoundaryEnter {
			t.Errorf("event type = %v, want enter", event.Type)
		}
		if event.EntityID != "pet-1" || event.DefinitionID != "gf-1" {
			t.Errorf("event routing = %s/%s, want pet-1/gf-1", event.EntityID, event.DefinitionID)
		}
	case <-time.After(time.Second):
		t.Fatal("no boundary event arrived")
	}

	stats := gw.GetStats()
	if stats.EntersDetected != 1 {
		t.Errorf("EntersDetected = %d, want 1", stats.EntersDetected)
	}
}

func TestGeofenceWorkerLeashUsesOwnerPosition(t *testing.T) {
	def := models.GeofenceDefinition{
		ID:           "leash-1",
		OwnerID:      "owner-1",
		IsLeash:      true,
		RadiusMeters: 200,
		NotifyOnExit: true,
	}
	store := &mockStore{
		definitionsFn: func(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
			return []models.GeofenceDefinition{def}, nil
		},
	}
	sink := &mockSink{events: make(chan models.BoundaryEvent, 8)}
	owners := &mockOwners{
		latestFn: func(ctx context.Context, deviceID string) (*models.PositionReport, error) {
			return &models.PositionReport{
				DeviceID: deviceID,
				Position: models.Position{Latitude: 0, Longitude: 0},
			}, nil
		},
	}

	gw := NewGeofenceWorker(services.NewGeofenceEvaluator(), store, sink, owners, 1, 16)
	gw.Start()
	defer gw.Stop()

	gw.SubmitObservation("pet-1", insidePos)
	gw.SubmitObservation("pet-1", outsidePos)

	select {
	case event := <-sink.events:
		if event.Type != models.BoundaryExit {
			t.Errorf("event type = %v, want exit", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no boundary event arrived")
	}
}

func TestGeofenceWorkerSkipsLeashWithoutOwnerFix(t *testing.T) {
	def := models.GeofenceDefinition{
		ID:           "leash-1",
		OwnerID:      "owner-1",
		IsLeash:      true,
		RadiusMeters: 200,
		NotifyOnExit: true,
	}
	store := &mockStore{
		definitionsFn: func(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
			return []models.GeofenceDefinition{def}, nil
		},
	}
	sink := &mockSink{events: make(chan models.BoundaryEvent, 8)}
	owners := &mockOwners{
		latestFn: func(ctx context.Context, deviceID string) (*models.PositionReport, error) {
			return nil, utils.NewNotFoundError("report")
		},
	}

	gw := NewGeofenceWorker(services.NewGeofenceEvaluator(), store, sink, owners, 1, 16)
	gw.Start()
	defer gw.Stop()

	gw.SubmitObservation("pet-1", insidePos)
	gw.SubmitObservation("pet-1", outsidePos)

	select {
	case event := <-sink.events:
		t.Errorf("event %v fired without an owner fix", event.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestGeofenceWorkerRejectsWhenStopped(t *testing.T) {
	store := &mockStore{
		definitionsFn: func(ctx context.Context, entityID string) ([]models.GeofenceDefinition, error) {
			return nil, nil
		},
	}
	sink := &mockSink{events: make(chan models.BoundaryEvent, 1)}

	gw := NewGeofenceWorker(services.NewGeofenceEvaluator(), store, sink, nil, 1, 4)

	err := gw.SubmitObservation("pet-1", insidePos)
	if err == nil {
		t.Fatal("SubmitObservation() on a stopped worker succeeded")
	}
	svcErr, ok := utils.GetServiceError(err)
	if !ok || svcErr.Code != utils.ErrCodeNotRunning {
		t.Errorf("error = %v, want code %s", err, utils.ErrCodeNotRunning)
	}

	gw.Start()
	if err := gw.SubmitObservation("pet-1", insidePos); err != nil {
		t.Errorf("SubmitObservation() after start error = %v", err)
	}
	gw.Stop()

	if err := gw.SubmitObservation("pet-1", insidePos); err == nil {
		t.Error("SubmitObservation() after stop succeeded")
	}
}
